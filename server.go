package kchart

import (
	"fmt"
	"net/http"

	"github.com/kchart-dev/kchart/chart"
	"github.com/kchart-dev/kchart/tools/log"
)

const defaultServerPort = 8080

const indexPage = `<!DOCTYPE html>
<html>
<head><title>kchart - %s</title></head>
<body style="margin:0;background:#131722">
<img id="chart" src="/chart.png" alt="%s">
<script>
setInterval(function () {
	document.getElementById("chart").src = "/chart.png?" + Date.now();
}, 1000);
</script>
</body>
</html>`

// Server exposes the session chart over HTTP: the index page embeds the
// rendered snapshot and refreshes it once per second.
type Server struct {
	session *ChartSession
	port    int
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerPort overrides the listen port.
func WithServerPort(port int) ServerOption {
	return func(s *Server) {
		s.port = port
	}
}

// NewServer creates an HTTP server around a chart session.
func NewServer(session *ChartSession, options ...ServerOption) *Server {
	server := &Server{session: session, port: defaultServerPort}
	for _, option := range options {
		option(server)
	}
	return server
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, indexPage, s.session.settings.Pair, s.session.settings.Pair)
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	if err := s.session.renderer.Render(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := s.session.renderer.Export(chart.FormatPNG, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		log.Errorf("write chart response fail: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// Handler returns the route table, usable without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chart.png", s.handleChart)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start blocks serving the chart until the listener fails.
func (s *Server) Start() error {
	fmt.Printf("Chart available at http://localhost:%d\n", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.Handler())
}
