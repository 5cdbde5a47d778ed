package api

import (
	"encoding/json"
	"net/http"

	"github.com/pure-golang/mailrelay/logger"
)

type handler struct {
	relay        Relay
	maxBodyBytes int64
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: HealthStatus})
}

// sendEmail answers 422 for bad input. Otherwise it answers 200 and the
// delivery outcome is in the body.
func (h *handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	req, verr := decodeEmailRequest(w, r, h.maxBodyBytes)
	if verr != nil {
		logger.FromContext(r.Context()).Info("send-email request rejected", "detail", verr.Error())
		writeJSON(w, r, http.StatusUnprocessableEntity, verr)
		return
	}

	writeJSON(w, r, http.StatusOK, h.relay.Send(r.Context(), req))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContextWithErr(r.Context(), err).Error("failed to write response")
	}
}
