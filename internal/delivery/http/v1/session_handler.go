package v1

import (
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/internal/store"
)

type SessionHandler struct {
	auth *store.AuthStore
}

func NewSessionHandler(auth *store.AuthStore) *SessionHandler {
	return &SessionHandler{auth: auth}
}

func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.auth.Snapshot())
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.Login(r.Context(), req.Email, req.Password); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.auth.Snapshot())
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.auth.Snapshot())
}

// Check revalidates the token with the backend; a rejected token logs out.
func (h *SessionHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.auth.CheckSession(r.Context())
	writeOK(w, h.auth.Snapshot())
}
