package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/learnvex/internal/storage"
)

// PresignUpload handles POST /api/uploads.
//
//	@Summary		Issue a presigned upload URL
//	@Tags			uploads
//	@Accept			json
//	@Produce		json
//	@Param			body	body		storage.UploadRequest	true	"File description"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads [post]
func (h *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req storage.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid Request Body"))
		return
	}
	put := req.PutRequest()
	u, err := h.objects.PresignPut(r.Context(), put)
	if err != nil {
		slog.Error("presign failed", slog.String("key", put.Key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to generate presigned URL"))
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{PresignedURL: u, Key: put.Key})
}

// DeleteUpload handles DELETE /api/uploads.
//
//	@Summary		Delete an uploaded object
//	@Tags			uploads
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteUploadRequest	true	"Object key"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uploads [delete]
func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	var req DeleteUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Key Not Found"))
		return
	}
	if err := h.objects.Delete(r.Context(), req.Key); err != nil {
		slog.Error("delete object failed", slog.String("key", req.Key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to delete file"))
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "File Deleted Successfully"})
}

// objectReceiver is implemented by providers that accept uploads through
// this service instead of a remote bucket.
type objectReceiver interface {
	Receive(key string, q url.Values, body io.Reader) error
}

// receiveObject handles PUT /api/objects/* for signed uploads.
func (h *Handler) receiveObject(recv objectReceiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := url.PathUnescape(strings.TrimPrefix(chi.URLParam(r, "*"), "/"))
		if err != nil || key == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize)
		err = recv.Receive(key, r.URL.Query(), r.Body)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, storage.ErrBadSignature), errors.Is(err, storage.ErrExpired):
			writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
		case errors.Is(err, storage.ErrSizeMismatch):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("receive object failed", slog.String("key", key), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
	}
}
