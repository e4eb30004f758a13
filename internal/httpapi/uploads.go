package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"spotifly/internal/apperr"
	"spotifly/internal/blob"
)

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart reads a size-capped multipart form. The returned cleanup
// closes every opened upload and removes spooled temp files.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, apperr.BadRequest("upload exceeds the %d byte limit", s.opts.MaxUploadBytes)
		}
		return func() {}, apperr.BadRequest("invalid multipart form")
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// formFile returns the named upload, or nil when the field is absent. The
// caller closes the file through the returned func.
func formFile(r *http.Request, field string) (*blob.File, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperr.BadRequest("invalid %s upload", field)
	}
	return &blob.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

// formIDs reads an id list field sent either as a JSON array or as repeated values.
func formIDs(r *http.Request, field string) ([]string, error) {
	values := r.MultipartForm.Value[field]
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var ids []string
		if err := json.Unmarshal([]byte(values[0]), &ids); err != nil {
			return nil, apperr.BadRequest("%s must be a JSON array of ids", field)
		}
		return ids, nil
	}
	return values, nil
}

func formValue(r *http.Request, field string) (string, bool) {
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.BadRequest("%s must be a whole number", field)
	}
	return value, nil
}
