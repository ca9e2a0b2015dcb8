// Package metricshttp is a thin, out-of-scope boundary collaborator: a
// two-route HTTP responder exposing engine uptime in a Prometheus-text
// style. It has no matching or transport design content of its own.
package metricshttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	buildVersion = "0.0.1"
	buildGitSHA  = "dev"
)

// Server serves GET /metrics with build/uptime gauges and "ok" for
// anything else.
type Server struct {
	startedAt time.Time
	srv       *http.Server
}

// New constructs a metrics server bound to addr. Call Run to serve.
func New(addr string) *Server {
	s := &Server{startedAt: time.Now()}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", s.handleOther)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Run blocks serving HTTP until the listener errors or is closed.
func (s *Server) Run() error {
	log.Info().Str("addr", s.srv.Addr).Msg("metrics server listening")
	err := s.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.startedAt).Seconds()
	body := fmt.Sprintf(
		"build_info{git_sha=\"%s\",version=\"%s\"} 1\nengine_uptime_seconds %f\n",
		buildGitSHA, buildVersion, uptime,
	)
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Header().Set("Connection", "close")
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleOther(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Connection", "close")
	_, _ = w.Write([]byte("ok\n"))
}
