package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/model"
	"github.com/akulinich/clipshare/internal/service"
)

type createClipboardRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Pin               string `json:"pin"`
	RequirePinOnVisit bool   `json:"requirePinOnVisit"`
}

type updateClipboardRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	Pin               *string `json:"pin"`
	RequirePinOnVisit *bool   `json:"requirePinOnVisit"`
}

type verifyPinRequest struct {
	Pin string `json:"pin"`
}

type verifyPinResponse struct {
	ClipboardID string     `json:"clipboardId"`
	Marker      string     `json:"marker,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// clipboardResponse is the wire view of a clipboard. The PIN hash never
// leaves the server.
type clipboardResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	IsActive          bool      `json:"isActive"`
	RequirePinOnVisit bool      `json:"requirePinOnVisit"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toClipboardResponse(cb *model.Clipboard) clipboardResponse {
	return clipboardResponse{
		ID:                cb.ID.String(),
		Name:              cb.Name,
		Description:       cb.Description,
		IsActive:          cb.IsActive,
		RequirePinOnVisit: cb.RequirePinOnVisit,
		CreatedAt:         cb.CreatedAt,
		UpdatedAt:         cb.UpdatedAt,
	}
}

func (s *Server) handleCreateClipboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createClipboardRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	cb, err := s.clipboards.Create(r.Context(), uid, req.Name, req.Description, req.Pin, req.RequirePinOnVisit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClipboardResponse(cb))
}

func (s *Server) handleListClipboards(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := s.clipboards.List(r.Context(), uid)
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]clipboardResponse, 0, len(list))
	for i := range list {
		out = append(out, toClipboardResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetClipboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	cb, err := s.clipboards.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	// Inactive clipboards exist only for their owner.
	if !cb.IsActive && s.bearerUser(r) != cb.CreatedBy.String() {
		s.respondError(w, errs.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toClipboardResponse(cb))
}

func (s *Server) handleGetClipboardByName(w http.ResponseWriter, r *http.Request) {
	cb, err := s.clipboards.GetByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClipboardResponse(cb))
}

func (s *Server) handleUpdateClipboard(w http.ResponseWriter, r *http.Request) {
	cb, err := s.ownedClipboard(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	var req updateClipboardRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	upd, err := s.clipboards.Update(r.Context(), cb.ID, service.ClipboardUpdate{
		Name:              req.Name,
		Description:       req.Description,
		Pin:               req.Pin,
		RequirePinOnVisit: req.RequirePinOnVisit,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClipboardResponse(upd))
}

func (s *Server) handleDeactivateClipboard(w http.ResponseWriter, r *http.Request) {
	cb, err := s.ownedClipboard(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.clipboards.Deactivate(r.Context(), cb.ID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreClipboard(w http.ResponseWriter, r *http.Request) {
	cb, err := s.ownedClipboard(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.clipboards.Restore(r.Context(), cb.ID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurgeClipboard(w http.ResponseWriter, r *http.Request) {
	cb, err := s.ownedClipboard(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.clipboards.Purge(r.Context(), cb.ID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	var req verifyPinRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	grant, err := s.gate.Verify(r.Context(), id, req.Pin)
	if err != nil {
		s.respondError(w, err)
		return
	}
	resp := verifyPinResponse{ClipboardID: grant.ClipboardID.String(), Marker: grant.Marker}
	if grant.Marker != "" {
		resp.ExpiresAt = &grant.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// ownedClipboard loads the {id} clipboard and checks it belongs to the
// authenticated owner. Someone else's clipboard reads as absent.
func (s *Server) ownedClipboard(r *http.Request) (*model.Clipboard, error) {
	uid, ok := UserIDFromCtx(r.Context())
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	cb, err := s.clipboards.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if cb.CreatedBy != uid {
		return nil, errs.ErrNotFound
	}
	return cb, nil
}

// bearerUser returns the user ID string behind an optional Bearer token,
// or "" when the request carries none or the token does not verify.
func (s *Server) bearerUser(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		return ""
	}
	uid, err := s.auth.VerifyToken(token)
	if err != nil {
		return ""
	}
	return uid.String()
}
