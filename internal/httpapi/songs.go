package httpapi

import (
	"context"
	"net/http"

	"spotifly/internal/models"
)

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	s.writeSongs(w, r, s.songs.List)
}

func (s *Server) handleFeaturedSongs(w http.ResponseWriter, r *http.Request) {
	s.writeSongs(w, r, s.songs.Featured)
}

func (s *Server) handleMadeForYouSongs(w http.ResponseWriter, r *http.Request) {
	s.writeSongs(w, r, s.songs.MadeForYou)
}

func (s *Server) handleTrendingSongs(w http.ResponseWriter, r *http.Request) {
	s.writeSongs(w, r, s.songs.Trending)
}

func (s *Server) writeSongs(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]models.Song, error)) {
	result, err := fetch(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = []models.Song{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := s.songs.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	result, err := s.songs.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	song, err := s.messages.ResolveShare(r.Context(), pathParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
