package httpapi

import (
	"net/http"

	"spotifly/internal/app/albums"
	"spotifly/internal/app/songs"
	"spotifly/internal/apperr"
)

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		s.writeError(w, r, apperr.BadRequest("Please upload all files"))
		return
	}
	cleanup, err := s.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	audio, closeAudio, err := formFile(r, "audioFile")
	defer closeAudio()
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
	duration, err := formInt(r, "duration")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	song, err := s.songs.Create(r.Context(), songs.CreateInput{
		Title:    r.FormValue("title"),
		Artist:   r.FormValue("artist"),
		AlbumID:  r.FormValue("albumId"),
		Duration: duration,
		Audio:    audio,
		Image:    image,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := s.songs.Delete(r.Context(), pathParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Song deleted successfully"})
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		s.writeError(w, r, apperr.BadRequest("Please upload an album image"))
		return
	}
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
	year, err := formInt(r, "releaseYear")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	album, err := s.albums.Create(r.Context(), albums.CreateInput{
		Title:       r.FormValue("title"),
		Artist:      r.FormValue("artist"),
		ReleaseYear: year,
		Image:       image,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := s.albums.Delete(r.Context(), pathParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Album deleted successfully"})
}
