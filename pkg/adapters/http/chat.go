package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aretw0/configurator/internal/dto"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/wizard"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// requestID tags every request and response with an id, reusing the caller's if present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// ChatStartRequest is the body of POST /chat/{user}/start.
type ChatStartRequest struct {
	Flow domain.Flow `json:"flow"`
}

// ChatTextRequest is the body of POST /chat/{user}/text.
type ChatTextRequest struct {
	Text string `json:"text"`
}

// ChatActionRequest is the body of POST /chat/{user}/action.
type ChatActionRequest struct {
	Data string `json:"data"`
}

// ChatView handles GET /chat/{user}.
func (s *Server) ChatView(w http.ResponseWriter, r *http.Request) {
	reply, err := s.Wizard.Current(r.Context(), chi.URLParam(r, "user"))
	s.reply(w, r, reply, err)
}

// ChatCancel handles DELETE /chat/{user}.
func (s *Server) ChatCancel(w http.ResponseWriter, r *http.Request) {
	reply, err := s.Wizard.Cancel(r.Context(), chi.URLParam(r, "user"))
	s.reply(w, r, reply, err)
}

// ChatStart handles POST /chat/{user}/start.
func (s *Server) ChatStart(w http.ResponseWriter, r *http.Request) {
	var body ChatStartRequest
	if !s.decode(w, r, &body) {
		return
	}
	switch body.Flow {
	case "":
		body.Flow = domain.FlowConfigure
	case domain.FlowConfigure, domain.FlowListVariants:
	default:
		s.writeError(w, http.StatusBadRequest, dto.CodeValidation, fmt.Sprintf("unknown flow %q", body.Flow))
		return
	}
	reply, err := s.Wizard.Begin(r.Context(), chi.URLParam(r, "user"), body.Flow)
	s.reply(w, r, reply, err)
}

// ChatText handles POST /chat/{user}/text.
func (s *Server) ChatText(w http.ResponseWriter, r *http.Request) {
	var body ChatTextRequest
	if !s.decode(w, r, &body) {
		return
	}
	reply, err := s.Wizard.Text(r.Context(), chi.URLParam(r, "user"), body.Text)
	s.reply(w, r, reply, err)
}

// ChatAction handles POST /chat/{user}/action.
func (s *Server) ChatAction(w http.ResponseWriter, r *http.Request) {
	var body ChatActionRequest
	if !s.decode(w, r, &body) {
		return
	}
	reply, err := s.Wizard.Action(r.Context(), chi.URLParam(r, "user"), body.Data)
	s.reply(w, r, reply, err)
}

// reply writes the view and pushes it to the user's event subscribers.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, reply wizard.Reply, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	if r.Method != http.MethodGet {
		if data, err := json.Marshal(reply); err == nil {
			s.Streams.Broadcast(chi.URLParam(r, "user"), string(data))
		}
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// StreamManager fans replies out to the SSE subscribers of each user.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // user -> set of channels
	logger      *zap.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      zap.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(userID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[userID]; !ok {
		sm.subscribers[userID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[userID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[userID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, userID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(userID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[userID] {
		select {
		case ch <- msg:
		default:
			// Slow client.
			sm.logger.Warn("sse buffer full, dropping message", zap.String("user_id", userID))
		}
	}
}

// SubscribeEvents handles GET /chat/{user}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	userID := chi.URLParam(r, "user")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(userID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
