package httpapi

import (
	"net/http"

	"spotifly/internal/app/messages"
	"spotifly/internal/models"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	result, err := s.users.List(r.Context(), actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = []models.User{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	result, err := s.messages.Conversation(r.Context(), actor(r), pathParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = []models.Message{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleShareSong(w http.ResponseWriter, r *http.Request) {
	var req messages.ShareInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	share, err := s.messages.ShareSong(r.Context(), actor(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}
