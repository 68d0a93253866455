package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Server is an in-process stand-in for the chatbases backend. It serves the
// init, history and chat endpoints with canned data and streams chat replies
// one character per frame.
type Server struct {
	fixtures  Fixtures
	charDelay time.Duration
	router    *mux.Router

	mu       sync.Mutex
	sessions map[string]struct{}

	initCalls    atomic.Int64
	historyCalls atomic.Int64
	chatCalls    atomic.Int64
}

type Option func(*Server)

func WithFixtures(f Fixtures) Option {
	return func(s *Server) { s.fixtures = f }
}

// WithCharDelay pauses between streamed characters.
func WithCharDelay(d time.Duration) Option {
	return func(s *Server) { s.charDelay = d }
}

func New(opts ...Option) *Server {
	s := &Server{
		fixtures: DefaultFixtures(),
		sessions: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = mux.NewRouter()
	s.RegisterRoutes(s.router)
	return s
}

func (s *Server) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/chatbases").Subrouter()
	api.Use(requireAppID)
	api.HandleFunc("/init", s.handleInit).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) InitCalls() int64    { return s.initCalls.Load() }
func (s *Server) HistoryCalls() int64 { return s.historyCalls.Load() }
func (s *Server) ChatCalls() int64    { return s.chatCalls.Load() }

// Sessions returns the number of sessions handed out.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func requireAppID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("X-App-Id")) == "" {
			writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "App ID is required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    *int   `json:"code"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("component", "mockserver").Msg("failed to write response")
	}
}

func (s *Server) knownSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	s.initCalls.Add(1)
	sessionID := r.Header.Get("X-Session-Id")
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; !ok {
		sessionID = uuid.NewString()
		s.sessions[sessionID] = struct{}{}
	}
	s.mu.Unlock()

	log.Debug().Str("component", "mockserver").Str("session_id", sessionID).Msg("init")
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]string{
			"sessionId": sessionID,
			"message":   s.fixtures.Welcome,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.historyCalls.Add(1)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.fixtures.History})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.chatCalls.Add(1)
	var req struct {
		Message string `json:"message"`
		ChatID  string `json:"chatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid request body"})
		return
	}
	sessionID := req.ChatID
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-Id")
	}
	if !s.knownSession(sessionID) {
		writeJSON(w, http.StatusUnauthorized, envelope{Message: "unknown chat session"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	reply := fmt.Sprintf(s.fixtures.ResponseTemplate, req.Message)
	for _, ch := range reply {
		payload, _ := json.Marshal(map[string]string{"chunk": string(ch)})
		if _, err := fmt.Fprintf(w, "data: %s\n", payload); err != nil {
			return
		}
		flusher.Flush()
		if s.charDelay > 0 {
			select {
			case <-time.After(s.charDelay):
			case <-r.Context().Done():
				return
			}
		}
	}
	fmt.Fprint(w, "data: [DONE]\n")
	flusher.Flush()
}
