package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/polychat/polychat/internal/chat"
	"github.com/polychat/polychat/pkg/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	providerID, modelID := s.manager.CurrentModel()
	writeJSON(w, http.StatusOK, map[string]any{
		"models": s.manager.AllModels(),
		"current": map[string]string{
			"provider": providerID,
			"model":    modelID,
		},
	})
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	if err := s.manager.SelectModel(req.Provider, req.Model); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"provider": req.Provider, "model": req.Model})
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	params, err := s.manager.Params()
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"values": params.RequestValues(),
		"specs":  params.Specs(),
	})
}

func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	if err := s.manager.SetParameter(name, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": req.Value})
}

func (s *Server) handleResetParams(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ResetParameters(); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"contextLength": s.manager.ContextLength()})
}

func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContextLength int `json:"contextLength"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	if err := s.manager.SetContextLength(req.ContextLength); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"contextLength": req.ContextLength})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats := s.manager.Chats()
	summaries := make([]map[string]any, 0, len(chats))
	for _, c := range chats {
		summaries = append(summaries, map[string]any{
			"id":         c.ID,
			"name":       c.Name,
			"messages":   len(c.Messages),
			"lastActive": c.LastActive,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": summaries})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := s.manager.GetChat(id)
	if c == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "chat not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}

	if err := s.manager.RenameChat(r.Context(), id, req.Name); err != nil {
		switch {
		case strings.Contains(err.Error(), "already in use"):
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		case strings.Contains(err.Error(), "not found"):
			writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "name": req.Name})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.DeleteChat(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	s.manager.NewChat()
	w.WriteHeader(http.StatusNoContent)
}

type sendRequest struct {
	Text        string   `json:"text"`
	ChatID      string   `json:"chatId,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

func (s *Server) prepareSend(w http.ResponseWriter, r *http.Request) (*sendRequest, []types.ContentPart, bool) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return nil, nil, false
	}

	if req.ChatID != "" {
		if err := s.manager.SetCurrentChat(req.ChatID); err != nil {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return nil, nil, false
		}
	}

	parts := make([]types.ContentPart, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		part, err := chat.LoadAttachment(att)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return nil, nil, false
		}
		parts = append(parts, part)
	}
	return &req, parts, true
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	req, parts, ok := s.prepareSend(w, r)
	if !ok {
		return
	}

	assistant, err := s.manager.Send(r.Context(), req.Text, parts...)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	current := s.manager.CurrentChat()
	resp := map[string]any{"message": assistant}
	if current != nil {
		resp["chatId"] = current.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
