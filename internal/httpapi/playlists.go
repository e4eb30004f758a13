package httpapi

import (
	"net/http"

	"spotifly/internal/app/playlists"
	"spotifly/internal/models"
)

type playlistRequest struct {
	PlaylistID  string   `json:"playlistId"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	SongIDs     []string `json:"songIds"`
}

type songIDsRequest struct {
	SongIDs []string `json:"songIds"`
}

type playlistResponse struct {
	Playlist *models.Playlist `json:"playlist"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	result, err := s.playlists.ListForUser(r.Context(), actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = []*models.Playlist{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleCreateOrUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var in playlists.Input

	if isMultipart(r) {
		cleanup, err := s.parseMultipart(w, r)
		defer cleanup()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		image, closeImage, err := formFile(r, "imageFile")
		defer closeImage()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		songIDs, err := formIDs(r, "songIds")
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		in.PlaylistID, _ = formValue(r, "playlistId")
		in.Title, _ = formValue(r, "title")
		in.ImageURL, _ = formValue(r, "imageUrl")
		if description, ok := formValue(r, "description"); ok {
			in.Description = &description
		}
		in.Image = image
		in.SongIDs = songIDs
	} else {
		var req playlistRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		in = playlists.Input{
			PlaylistID:  req.PlaylistID,
			Title:       req.Title,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			SongIDs:     req.SongIDs,
		}
	}

	playlist, err := s.playlists.CreateOrUpdate(r.Context(), actor(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleRemovePlaylistSongs(w http.ResponseWriter, r *http.Request) {
	var req songIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	playlist, err := s.playlists.RemoveSongs(r.Context(), actor(r), pathParam(r, "id"), req.SongIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse{Playlist: playlist})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), actor(r), pathParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Playlist deleted successfully"})
}
