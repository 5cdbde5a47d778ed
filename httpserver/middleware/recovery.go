// Recovery turns a handler panic into a logged 500. It is the only path on
// which the service answers with a server error.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/pure-golang/mailrelay/logger"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			var stack []string
			for _, line := range strings.Split(strings.ReplaceAll(string(debug.Stack()), "\t", ""), "\n") {
				if line != "" {
					stack = append(stack, line)
				}
			}

			logger.FromContext(r.Context()).
				With("err", err).
				With("stack", stack).
				Error("Panic recovered from handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
		}()

		next.ServeHTTP(w, r)
	})
}
