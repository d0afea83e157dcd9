package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/G-Node/formtonic/templates"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server implements the web server for the form service.
type Server struct {
	*http.Server
	Router *mux.Router
	log    *zap.SugaredLogger
}

// New returns a web Server listening on the given port with an initialised
// mux.Router and http.Server.
func New(port uint16, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	srv := new(Server)
	srv.Router = new(mux.Router)
	srv.log = logger
	httpsrv := new(http.Server)
	httpsrv.Handler = srv.Router
	httpsrv.Addr = fmt.Sprintf(":%d", port)
	httpsrv.WriteTimeout = time.Second * 15
	httpsrv.ReadTimeout = time.Second * 15
	httpsrv.IdleTimeout = time.Second * 60
	srv.Server = httpsrv
	return srv
}

// SetLogger replaces the server logger.
func (ws *Server) SetLogger(logger *zap.SugaredLogger) {
	ws.log = logger
}

func parsePage(content string) (*template.Template, error) {
	tmpl, err := template.New("layout").Parse(templates.Layout)
	if err != nil {
		return nil, err
	}
	return tmpl.Parse(content)
}

// Render executes the content template inside the page layout.  Templates
// that fail to parse produce an error page.
func (ws *Server) Render(w http.ResponseWriter, status int, content string, data interface{}) {
	tmpl, err := parsePage(content)
	if err != nil {
		ws.log.Errorw("Failed to parse template", "error", err)
		ws.ErrorResponse(w, http.StatusInternalServerError, "Failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		ws.log.Errorw("Failed to render page", "error", err)
	}
}

// ErrorResponse logs an error and renders an error page with the given message,
// returning the given status code to the user.
func (ws *Server) ErrorResponse(w http.ResponseWriter, status int, message string) {
	ws.log.Debugw("Error response", "status", status, "message", message)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	tmpl, err := parsePage(templates.Fail)
	if err != nil {
		ws.log.Errorw("Failed to parse fail page", "error", err)
		io.WriteString(w, message)
		return
	}
	errinfo := struct {
		StatusCode int
		StatusText string
		Message    string
	}{status, http.StatusText(status), message}
	if err := tmpl.Execute(w, &errinfo); err != nil {
		ws.log.Errorw("Error rendering fail page", "error", err)
	}
}

// Start starts the embedded web server's ListenAndServe method in a goroutine
// and returns.  This method does not block. Use WaitForInterrupt() or
// implement your own blocking function to wait for any other stop condition.
func (ws *Server) Start() {
	go func() {
		if err := ws.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.log.Error(err)
		}
	}()
}

// Stop gracefully stops the web service.
func (ws *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Gracefully shut down, waiting for the timeout deadline for connections to close.
	if err := ws.Shutdown(ctx); err != nil {
		ws.log.Errorw("Error shutting down web server", "error", err)
	}
}
