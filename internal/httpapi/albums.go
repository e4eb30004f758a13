package httpapi

import (
	"net/http"

	"spotifly/internal/models"
)

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	result, err := s.albums.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = []models.Album{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.albums.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}
