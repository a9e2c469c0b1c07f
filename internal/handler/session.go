package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"newsletteradmin/internal/service"
)

const (
	sessionHeader  = "X-Session-ID"
	sessionCookie  = "session_id"
	instanceHeader = "X-Instance-ID"
)

// sessionID returns the caller's message session, issuing a new one when
// the request carries none
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(sessionHeader, id)
	return id
}

// editContext reads the session and the optional instance scope
func editContext(w http.ResponseWriter, r *http.Request) (service.EditContext, bool) {
	ec := service.EditContext{Session: sessionID(w, r)}

	if raw := r.Header.Get(instanceHeader); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid instance ID")
			return ec, false
		}
		ec.InstanceID = &id
	}

	return ec, true
}
