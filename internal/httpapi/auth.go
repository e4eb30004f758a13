package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"spotifly/internal/app/users"
	"spotifly/internal/apperr"
	"spotifly/internal/identity"
	"spotifly/internal/logging"
	"spotifly/internal/models"
)

const maxWebhookBytes = 1 << 20

// authenticated verifies the bearer token and stores the caller's identity
// on the request context before calling next.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized - you must be logged in"})
			return
		}
		if s.identity == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication is not configured"})
			return
		}

		id, err := s.identity.Verify(r.Context(), token)
		if err != nil {
			logging.WithContext(r.Context()).Debug().Err(err).Msg("rejected bearer token")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized - invalid token"})
			return
		}

		ctx := identity.WithIdentity(r.Context(), id)
		ctx = logging.WithUserID(ctx, id.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// uploader extends authenticated with the upload permission check.
func (s *Server) uploader(next http.HandlerFunc) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := s.users.CanUpload(r.Context(), actor(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !allowed {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "You do not have permission to upload music"})
			return
		}
		next(w, r)
	})
}

// actor returns the verified identity subject of the request, or "" outside
// authenticated routes.
func actor(r *http.Request) string {
	id, _ := identity.FromContext(r.Context())
	return id.Subject
}

type authCallbackResponse struct {
	Success bool        `json:"success"`
	User    models.User `json:"user"`
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	var profile users.Profile
	if err := decodeJSON(r, &profile); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.AuthCallback(r.Context(), profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authCallbackResponse{Success: true, User: user})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unable to read webhook body"})
		return
	}
	if err := s.webhook.Verify(r.Header, body); err != nil {
		logging.WithContext(r.Context()).Warn().Err(err).Msg("webhook verification failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid webhook signature"})
		return
	}

	var event users.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.writeError(w, r, apperr.BadRequest("invalid webhook payload"))
		return
	}
	if err := s.users.HandleWebhook(r.Context(), event); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

func (s *Server) handleAdminCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Admin bool `json:"admin"`
	}{Admin: true})
}
