package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ritzau/trust-graph/pkg/csvio"
	"github.com/ritzau/trust-graph/pkg/lens"
	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/metrics"
	"github.com/ritzau/trust-graph/pkg/model"
	"github.com/ritzau/trust-graph/pkg/notify"
	"github.com/ritzau/trust-graph/pkg/pubsub"
	"github.com/ritzau/trust-graph/pkg/scores"
	"github.com/ritzau/trust-graph/pkg/session"
)

//go:embed static/*
var staticFiles embed.FS

// maxImportBytes caps the size of an uploaded CSV file.
const maxImportBytes = 10 << 20

// AddEdgeRequest is the body of POST /api/edges.
type AddEdgeRequest struct {
	Source         string  `json:"source" validate:"required,max=200"`
	Target         string  `json:"target" validate:"required,max=200"`
	PositiveWeight float64 `json:"positiveWeight"`
	NegativeWeight float64 `json:"negativeWeight"`
}

// ReferenceRequest is the body of PUT /api/reference.
type ReferenceRequest struct {
	Node string `json:"node" validate:"max=200"`
}

// ImportResponse reports the outcome of a CSV import.
type ImportResponse struct {
	Accepted  int    `json:"accepted"`
	Skipped   int    `json:"skipped"`
	Reference string `json:"reference"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configure a Server.
type Options struct {
	CORSOrigins []string
	Metrics     *metrics.Collector
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	session   *session.Session
	surface   *lens.BroadcastSurface
	publisher *pubsub.SSEPublisher
	metrics   *metrics.Collector
	validate  *validator.Validate
}

// NewPublisher creates the publisher shared by the session and the server,
// with buffering set up for every topic the server streams.
func NewPublisher() *pubsub.SSEPublisher {
	ssePublisher := pubsub.NewSSEPublisher()

	// notifications: replay only the current notification
	ssePublisher.ConfigureTopic(notify.Topic, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	// graph_status: buffer last 10 events, replay only last event
	ssePublisher.ConfigureTopic(session.StatusTopic, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	// view: not buffered, NewServer attaches the current graph as snapshot
	return ssePublisher
}

// NewServer creates a new web server
func NewServer(sess *session.Session, surface *lens.BroadcastSurface, publisher *pubsub.SSEPublisher, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}

	s := &Server{
		router:    mux.NewRouter(),
		session:   sess,
		surface:   surface,
		publisher: publisher,
		metrics:   opts.Metrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	s.setupRoutes()

	publisher.ConfigureTopic(lens.ViewTopic, pubsub.TopicConfig{Snapshot: s.viewSnapshot})

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	})(s.router)

	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes() {
	// Node ids may contain "/", so routes match on the escaped path
	s.router.UseEncodedPath()
	s.router.Use(logging.RequestIDMiddleware)
	s.router.Use(s.metrics.Middleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/view", s.handleSubscribe(lens.ViewTopic)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/notifications", s.handleSubscribe(notify.Topic)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/graph_status", s.handleSubscribe(session.StatusTopic)).Methods("GET")

	s.router.HandleFunc("/api/state", s.handleState).Methods("GET")
	s.router.HandleFunc("/api/edges", s.handleAddEdge).Methods("POST")
	s.router.HandleFunc("/api/reference", s.handleSetReference).Methods("PUT")
	s.router.HandleFunc("/api/compute", s.handleCompute).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}/click", s.handleClick).Methods("POST")
	s.router.HandleFunc("/api/export", s.handleExport).Methods("GET")
	s.router.HandleFunc("/api/import", s.handleImport).Methods("POST")

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to load embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	var req AddEdgeRequest
	if !s.decode(w, r, &req) {
		return
	}

	source := strings.TrimSpace(req.Source)
	target := strings.TrimSpace(req.Target)
	err := s.session.AddEdge(r.Context(), source, target, req.PositiveWeight, req.NegativeWeight)
	switch {
	case errors.Is(err, model.ErrDuplicateEdge):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, model.ErrEmptyNode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, s.session.Snapshot())
}

func (s *Server) handleSetReference(w http.ResponseWriter, r *http.Request) {
	var req ReferenceRequest
	if !s.decode(w, r, &req) {
		return
	}

	table, err := s.session.SetReference(r.Context(), strings.TrimSpace(req.Node))
	if errors.Is(err, scores.ErrNoReference) {
		// Clearing the reference is allowed and leaves no table
		writeJSON(w, http.StatusOK, &scores.Table{})
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	table, err := s.session.Compute(r.Context())
	if errors.Is(err, scores.ErrNoReference) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid node id: %v", err))
		return
	}

	// Clicks go through the surface so they reach the handler bound on the
	// last rebuild, like a click in the browser would.
	if !s.surface.Click(id) {
		s.session.ClickNode(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body := s.session.ExportCSV(r.Context())

	w.Header().Set("Content-Type", csvio.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvio.FileName))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	text, err := readImport(r)
	if err != nil {
		logging.WarnContext(r.Context(), "could not read import", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.session.ImportCSV(r.Context(), text)
	if err != nil {
		writeError(w, http.StatusBadRequest, csvio.Message(err))
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Accepted:  result.Accepted,
		Skipped:   result.Skipped,
		Reference: s.session.Reference(),
	})
}

// readImport reads a multipart "file" field or, failing that, the raw body.
func readImport(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			return "", fmt.Errorf("only .csv files can be imported, got %q", header.Filename)
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}

// viewSnapshot gives a new view subscriber the full current graph.
func (s *Server) viewSnapshot() (string, any, bool) {
	view := s.session.Snapshot().View
	if view == nil {
		return "", nil, false
	}
	return "rebuild", view, true
}

func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, ok := s.openStream(w, r, topic)
		if !ok {
			return
		}
		defer sub.Close()
		s.stream(w, r, sub)
	}
}

func (s *Server) openStream(w http.ResponseWriter, r *http.Request, topic string) (pubsub.Subscription, bool) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return nil, false
	}

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)
	return sub, true
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, sub pubsub.Subscription) {
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "topic", sub.Topic(), "error", err)
				return
			}
			flush(w)
		}
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, validationMessage(verrs))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}
