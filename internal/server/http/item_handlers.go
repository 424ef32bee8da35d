package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/filestore"
	"github.com/akulinich/clipshare/internal/model"
)

type createItemRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type itemResponse struct {
	ID          string          `json:"id"`
	ClipboardID string          `json:"clipboardId"`
	Type        model.ItemType  `json:"type"`
	Content     string          `json:"content,omitempty"`
	File        *model.FileMeta `json:"file,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toItemResponse(pt *model.PlaintextItem) itemResponse {
	return itemResponse{
		ID:          pt.ID.String(),
		ClipboardID: pt.ClipboardID.String(),
		Type:        pt.Type,
		Content:     pt.Content,
		File:        pt.File,
		CreatedAt:   pt.CreatedAt,
		UpdatedAt:   pt.UpdatedAt,
	}
}

// storedItemResponse is the view returned from writes: ciphertext stays
// server-side, so only identity and timestamps come back.
type storedItemResponse struct {
	ID          string         `json:"id"`
	ClipboardID string         `json:"clipboardId"`
	Type        model.ItemType `json:"type"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toStoredItemResponse(it *model.ClipboardItem) storedItemResponse {
	return storedItemResponse{
		ID:          it.ID.String(),
		ClipboardID: it.ClipboardID.String(),
		Type:        it.Type,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	list, err := s.items.List(r.Context(), id, readAccess(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(list))
	for i := range list {
		out = append(out, toItemResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	cid, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.respondError(w, err)
		return
	}
	pt, err := s.items.Read(r.Context(), cid, itemID, readAccess(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(pt))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	cid, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.gate.Check(r.Context(), cid, readAccess(r)); err != nil {
		s.respondError(w, err)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		s.createFileItem(w, r, cid)
		return
	}

	var req createItemRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	it, err := s.items.Create(r.Context(), cid, model.ItemType(req.Type), req.Content)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoredItemResponse(it))
}

func (s *Server) createFileItem(w http.ResponseWriter, r *http.Request, cid uuid.UUID) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+maxJSONBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	it, err := s.items.CreateFile(r.Context(), cid, model.ItemType(r.FormValue("type")), filestore.Upload{
		Name: hdr.Filename,
		Size: hdr.Size,
		Data: file,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoredItemResponse(it))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	cid, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.gate.Check(r.Context(), cid, readAccess(r)); err != nil {
		s.respondError(w, err)
		return
	}
	var req createItemRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	it, err := s.items.Update(r.Context(), cid, itemID, model.ItemType(req.Type), req.Content)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoredItemResponse(it))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	cid, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.gate.Check(r.Context(), cid, readAccess(r)); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.items.Delete(r.Context(), cid, itemID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	cid, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.respondError(w, err)
		return
	}
	rc, meta, contentType, err := s.items.ServeFile(r.Context(), cid, itemID, readAccess(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", meta.OriginalName))
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warn("file stream aborted", zap.Error(err))
	}
}
