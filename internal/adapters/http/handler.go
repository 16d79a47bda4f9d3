package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/chatplanner/internal/app/conversation"
	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

type Server struct {
	svc *conversation.Service
}

// NewServer returns the inbound chat transport. A chat-platform webhook (or
// a test client) posts every user message to /messages and relays the reply.
func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /messages → handle one inbound message (POST)
	mux.HandleFunc("/messages", s.handleMessages)

	// /users/{id}/state → GET: current conversation state
	mux.HandleFunc("/users/", s.handleUserWithID)

	return chainMiddlewares(mux, withRecover, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageRequest struct {
	ClientID string     `json:"client_id"`
	Text     string     `json:"text"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
}

type messageResponse struct {
	Reply string   `json:"reply"`
	State string   `json:"state"`
	Menu  []string `json:"menu,omitempty"`
}

type stateResponse struct {
	ClientID string `json:"client_id"`
	State    string `json:"state"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /messages
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSendMessage(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /users/{id}/state
func (s *Server) handleUserWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "state" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetState(w, r, domain.UserID(parts[0]))
	default:
		methodNotAllowed(w)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.ClientID == "" {
		badRequest(w, "client_id is required")
		return
	}

	in := conversation.Incoming{
		ClientID: domain.UserID(req.ClientID),
		Text:     req.Text,
	}
	if req.SentAt != nil {
		in.At = *req.SentAt
	}

	reply, err := s.svc.HandleMessage(r.Context(), in)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Errorw("handle message failed", "client_id", req.ClientID, "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Reply: reply.Text,
		State: string(reply.State),
		Menu:  reply.Menu,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	state, err := s.svc.State(r.Context(), id)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Errorw("get state failed", "client_id", id, "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{ClientID: string(id), State: string(state)})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
