package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/go-cardology/internal/coach"
	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/core"
	"github.com/tartampluch/go-cardology/internal/engine"
	"github.com/tartampluch/go-cardology/internal/store"
)

// Service is the application surface used by the handlers.
type Service interface {
	Reading(name, birthDate string) (engine.Reading, error)
	CreateProfile(ctx context.Context, name, birthDate string) (store.Profile, engine.Reading, error)
	Profiles() []store.Profile
	Profile(id string) (store.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	ProfileReading(id string) (engine.Reading, error)
	ImportProfiles(ctx context.Context, r io.Reader) (core.ImportResult, error)
	Conversations(profileID string) ([]store.Conversation, error)
	SaveConversation(ctx context.Context, profileID, conversationID string, messages []store.Message, title string) (store.Conversation, error)
	RenameConversation(ctx context.Context, profileID, conversationID, title string) error
	DeleteConversation(ctx context.Context, profileID, conversationID string) error
	Chat(ctx context.Context, profileID, conversationID, persona, question string) (core.ChatResult, error)
	ProfileCalendar(profileID string) ([]byte, error)
}

type readingRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
}

type profileResponse struct {
	Profile store.Profile  `json:"profile"`
	Reading engine.Reading `json:"reading"`
}

type conversationRequest struct {
	Messages []store.Message `json:"messages"`
	Title    string          `json:"title"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type chatRequest struct {
	ConversationID string `json:"conversationID"`
	Persona        string `json:"persona"`
	Question       string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": config.HealthStatusOK})
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if !decode(w, r, &req) {
		return
	}
	reading, err := s.svc.Reading(req.Name, req.BirthDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Profiles())
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if !decode(w, r, &req) {
		return
	}
	p, reading, err := s.svc.CreateProfile(r.Context(), req.Name, req.BirthDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profileResponse{Profile: p, Reading: reading})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	res, err := s.svc.ImportProfiles(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profile(chi.URLParam(r, config.ParamProfileID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProfile(r.Context(), chi.URLParam(r, config.ParamProfileID)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfileReading(w http.ResponseWriter, r *http.Request) {
	reading, err := s.svc.ProfileReading(chi.URLParam(r, config.ParamProfileID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.svc.Conversations(chi.URLParam(r, config.ParamProfileID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleSaveConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !decode(w, r, &req) {
		return
	}
	conv, err := s.svc.SaveConversation(r.Context(),
		chi.URLParam(r, config.ParamProfileID),
		chi.URLParam(r, config.ParamConversationID),
		req.Messages, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.svc.RenameConversation(r.Context(),
		chi.URLParam(r, config.ParamProfileID),
		chi.URLParam(r, config.ParamConversationID),
		req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	err := s.svc.DeleteConversation(r.Context(),
		chi.URLParam(r, config.ParamProfileID),
		chi.URLParam(r, config.ParamConversationID))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.Chat(r.Context(), chi.URLParam(r, config.ParamProfileID), req.ConversationID, req.Persona, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCalendar serves the profile's iCalendar feed with ETag revalidation.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.ProfileCalendar(chi.URLParam(r, config.ParamProfileID))
	if err != nil {
		writeError(w, err)
		return
	}

	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, etag)

	if r.Header.Get(config.HeaderIfNoneMatch) == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if _, err := w.Write(data); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// decode reads a JSON body. On failure it writes a 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: config.HTTPMsgBadRequest})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// writeError maps service errors to status codes. Unexpected errors are logged and
// answered with a constant body; requests the client abandoned get no body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		slog.Debug(config.MsgRequestAborted,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		w.WriteHeader(config.StatusClientClosedRequest)
	case errors.Is(err, core.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrProfileNotFound), errors.Is(err, store.ErrConversationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, coach.ErrSessionBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.Error(config.MsgRequestFailed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: config.HTTPMsgInternalErr})
	}
}
