package smtp

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal SMTP server recording the sessions it sees.
type fakeServer struct {
	listener net.Listener

	rejectAuth bool
	rejectRcpt bool
	rejectData bool
	stall      time.Duration // delay before the greeting

	mu  sync.Mutex
	rec record
}

// record is what the server observed across all sessions.
type record struct {
	conns    int
	authLine string
	from     string
	rcpt     string
	messages []string
	quits    int
}

// startFakeServer starts a plain-text server on a random localhost port.
func startFakeServer(t *testing.T, opts ...func(*fakeServer)) *fakeServer {
	t.Helper()
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to start SMTP server")
	return serveFake(t, ln, opts...)
}

// startImplicitTLSServer starts a server speaking TLS from the first byte,
// borrowing the self-signed certificate of an httptest TLS server.
func startImplicitTLSServer(t *testing.T, opts ...func(*fakeServer)) *fakeServer {
	t.Helper()
	ts := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to start SMTPS server")

	return serveFake(t, tls.NewListener(ln, &tls.Config{Certificates: ts.TLS.Certificates}), opts...)
}

func serveFake(t *testing.T, ln net.Listener, opts ...func(*fakeServer)) *fakeServer {
	s := &fakeServer{listener: ln}
	for _, o := range opts {
		o(s)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return // listener closed
			}
			go func() {
				defer conn.Close()
				s.handle(conn)
			}()
		}
	}()

	return s
}

func (s *fakeServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeServer) handle(conn net.Conn) {
	s.mu.Lock()
	s.rec.conns++
	s.mu.Unlock()

	if s.stall > 0 {
		time.Sleep(s.stall)
	}

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	reply := func(line string) {
		_, _ = writer.WriteString(line + "\r\n")
		_ = writer.Flush()
	}

	reply("220 localhost ESMTP fake")

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			reply("250-localhost\r\n250-AUTH PLAIN\r\n250 SIZE 10240000")
		case strings.HasPrefix(upper, "AUTH"):
			s.mu.Lock()
			s.rec.authLine = line
			s.mu.Unlock()
			if s.rejectAuth {
				reply("535 5.7.8 Username and Password not accepted")
				continue
			}
			reply("235 2.7.0 Accepted")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.rec.from = strings.TrimPrefix(line, "MAIL FROM:")
			s.mu.Unlock()
			reply("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.rejectRcpt {
				reply("550 5.1.1 No such user")
				continue
			}
			s.mu.Lock()
			s.rec.rcpt = strings.TrimPrefix(line, "RCPT TO:")
			s.mu.Unlock()
			reply("250 OK")
		case upper == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var msg strings.Builder
			for {
				text, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(text, "\r\n") == "." {
					break
				}
				msg.WriteString(text)
			}
			if s.rejectData {
				reply("554 5.7.0 Message rejected as spam")
				continue
			}
			s.mu.Lock()
			s.rec.messages = append(s.rec.messages, msg.String())
			s.mu.Unlock()
			reply("250 OK queued")
		case upper == "QUIT":
			s.mu.Lock()
			s.rec.quits++
			s.mu.Unlock()
			reply("221 bye")
			return
		case upper == "RSET", upper == "NOOP":
			reply("250 OK")
		default:
			reply("502 Command not implemented")
		}
	}
}

func (s *fakeServer) snapshot() record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rec
	r.messages = append([]string(nil), s.rec.messages...)
	return r
}

// waitQuits waits for the server goroutine to observe the final QUIT.
func (s *fakeServer) waitQuits(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.snapshot().quits >= n }, 2*time.Second, 10*time.Millisecond)
}
