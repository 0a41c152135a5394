package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-tenant-notes/internal/errors"
	"github.com/jrsteele09/go-tenant-notes/service"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type inviteRequest struct {
	Email string         `json:"email"`
	Role  users.RoleType `json:"role"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.notes.Health(r.Context()))
	}
}

// LoginHandler exchanges credentials for a session token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.notes.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.notes.Logout(r.Context(), tokenFromRequest(r)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.notes.CurrentUser(r.Context(), tokenFromRequest(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) ListNotesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.notes.GetNotes(r.Context(), tokenFromRequest(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) CreateNoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createNoteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		note, err := s.notes.CreateNote(r.Context(), tokenFromRequest(r), req.Title, req.Content)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, note)
	}
}

func (s *Server) GetNoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := s.notes.GetNote(r.Context(), tokenFromRequest(r), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	}
}

// UpdateNoteHandler applies a partial update; omitted fields are unchanged.
func (s *Server) UpdateNoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update service.NoteUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		note, err := s.notes.UpdateNote(r.Context(), tokenFromRequest(r), r.PathValue("id"), update)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	}
}

func (s *Server) DeleteNoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := s.notes.DeleteNote(r.Context(), tokenFromRequest(r), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: deleted})
	}
}

func (s *Server) GetTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.notes.GetTenant(r.Context(), tokenFromRequest(r), r.PathValue("slug"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	}
}

func (s *Server) UpgradeTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.notes.UpgradeTenant(r.Context(), tokenFromRequest(r), r.PathValue("slug"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	}
}

func (s *Server) InviteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inviteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := s.notes.InviteUser(r.Context(), tokenFromRequest(r), req.Email, req.Role)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, string(apperrors.KindValidation), "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

// writeJSONError writes an error response body
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeServiceError maps a service error onto its HTTP status. Internal
// details are logged, never returned.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	status := statusForKind(kind)
	message := apperrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		log.Err(err).Msg("Request failed")
		kind = apperrors.KindInternal
		message = apperrors.ErrInternal.Message
	}
	writeJSONError(w, string(kind), message, status)
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindAuthentication, apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindInsufficientRole, apperrors.KindAccessDenied:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindQuotaExceeded:
		return http.StatusPaymentRequired
	case apperrors.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
