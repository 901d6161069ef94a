package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/configurator/internal/dto"
	"github.com/aretw0/configurator/internal/metrics"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"github.com/aretw0/configurator/pkg/wizard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Server serves the gateway contract, the chat bridge and metrics.
type Server struct {
	Configurator ports.Configurator
	Pinger       ports.Pinger
	Wizard       *wizard.Service
	Streams      *StreamManager

	logger *zap.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithWizard mounts the chat bridge under /chat.
func WithWizard(svc *wizard.Service) Option {
	return func(s *Server) {
		s.Wizard = svc
	}
}

// WithPinger backs /health with a reachability check.
func WithPinger(p ports.Pinger) Option {
	return func(s *Server) {
		s.Pinger = p
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(c ports.Configurator, opts ...Option) http.Handler {
	s := &Server{
		Configurator: c,
		Streams:      NewStreamManager(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.GetHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/config/start", s.Start)
	r.Post("/config/init", s.Init)
	r.Post("/config/prepare", s.Prepare)
	r.Post("/config/create", s.Create)
	r.Post("/variants/of_template", s.VariantsOfTemplate)

	if s.Wizard != nil {
		r.Route("/chat/{user}", func(r chi.Router) {
			r.Get("/", s.ChatView)
			r.Delete("/", s.ChatCancel)
			r.Post("/start", s.ChatStart)
			r.Post("/text", s.ChatText)
			r.Post("/action", s.ChatAction)
			r.Get("/events", s.SubscribeEvents)
		})
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", w.Header().Get(requestIDHeader)),
		)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.Pinger != nil {
		if err := s.Pinger.Ping(r.Context()); err != nil {
			s.writeError(w, http.StatusBadGateway, dto.CodeBackend, "Health check failed: "+err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, dto.HealthResponse{Envelope: dto.Envelope{OK: true}, Status: "ok"})
}

// Start handles POST /config/start.
func (s *Server) Start(w http.ResponseWriter, r *http.Request) {
	var body dto.StartRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Configurator.Search(r.Context(), body.Query, body.CreatedBy)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.StartResponse{
		Envelope: dto.Envelope{OK: true, Message: res.Message},
		Matches:  res.Matches,
	})
}

// Init handles POST /config/init.
func (s *Server) Init(w http.ResponseWriter, r *http.Request) {
	var body dto.InitRequest
	if !s.decode(w, r, &body) {
		return
	}
	cat, err := s.Configurator.Init(r.Context(), body.TemplateID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.InitResponse{
		Envelope:   dto.Envelope{OK: true},
		Template:   cat.Template,
		Attributes: cat.Attributes,
	})
}

// Prepare handles POST /config/prepare.
func (s *Server) Prepare(w http.ResponseWriter, r *http.Request) {
	var body dto.SelectionRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Configurator.Prepare(r.Context(), body.TemplateID, body.Selections)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.PrepareResponse{
		Envelope:        dto.Envelope{OK: true, Message: res.Message},
		Template:        res.Template,
		Selections:      res.Selections,
		CanonicalIDs:    res.CanonicalIDs,
		ExistingVariant: res.ExistingVariant,
	})
}

// Create handles POST /config/create.
func (s *Server) Create(w http.ResponseWriter, r *http.Request) {
	var body dto.SelectionRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Configurator.Create(r.Context(), body.TemplateID, body.Selections, body.DefaultCode, body.Barcode)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.CreateResponse{
		Envelope: dto.Envelope{OK: true, Message: res.Message},
		Created:  res.Created,
		Variant:  res.Variant,
	})
}

// VariantsOfTemplate handles POST /variants/of_template. active_only defaults to true.
func (s *Server) VariantsOfTemplate(w http.ResponseWriter, r *http.Request) {
	var body dto.VariantsRequest
	if !s.decode(w, r, &body) {
		return
	}
	activeOnly := true
	if body.ActiveOnly != nil {
		activeOnly = *body.ActiveOnly
	}
	list, err := s.Configurator.ListVariants(r.Context(), body.TemplateID, activeOnly)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.VariantsResponse{
		Envelope: dto.Envelope{OK: true},
		Template: list.Template,
		Count:    list.Count,
		Variants: list.Variants,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, dto.CodeValidation, "Invalid request body: "+err.Error())
		s.logger.Warn("invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		return false
	}
	return true
}

// fail maps a domain error to a status and error code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, dto.CodeValidation
	case errors.Is(err, domain.ErrSelectionNotOnTemplate):
		status, code = http.StatusBadRequest, dto.CodeSelectionNotOnTemplate
	case errors.Is(err, domain.ErrTemplateNotFound):
		status, code = http.StatusNotFound, dto.CodeTemplateNotFound
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, dto.CodeNotFound
	case errors.Is(err, domain.ErrGateway), errors.Is(err, domain.ErrGatewayTimeout),
		errors.Is(err, domain.ErrGatewayConnection), errors.Is(err, domain.ErrGatewayHTTP):
		status, code = http.StatusBadGateway, dto.CodeBackend
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeError(w, status, code, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, detail string) {
	s.writeJSON(w, status, dto.ErrorBody{Detail: detail, Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", zap.Error(err))
	}
}
