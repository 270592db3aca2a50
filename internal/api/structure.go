package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/models"
)

// Structure handles GET /api/courses/{courseID}/structure.
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	tree, err := h.svc.Structure(r.Context(), id)
	if err != nil {
		writeError(w, err, "get structure", slog.String("course_id", id))
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// CreateChapter handles POST /api/courses/{courseID}/chapters.
func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	var in courseservice.ChapterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	ch, err := h.svc.CreateChapter(r.Context(), id, in)
	if err != nil {
		writeError(w, err, "create chapter", slog.String("course_id", id))
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

// CreateLesson handles POST /api/courses/{courseID}/chapters/{chapterID}/lessons.
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	chapterID := chi.URLParam(r, "chapterID")
	var in courseservice.LessonInput
	if !decodeJSON(w, r, &in) {
		return
	}
	l, err := h.svc.CreateLesson(r.Context(), courseID, chapterID, in)
	if err != nil {
		writeError(w, err, "create lesson", slog.String("course_id", courseID), slog.String("chapter_id", chapterID))
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// ReorderChapters handles PUT /api/courses/{courseID}/chapters/order.
//
// The body is always a status/message Response; the HTTP status tells the
// failure class apart.
func (h *Handler) ReorderChapters(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.svc.ReorderChapters(r.Context(), id, req.Items)
	writeReorder(w, resp, err)
}

// ReorderLessons handles PUT /api/courses/{courseID}/chapters/{chapterID}/lessons/order.
func (h *Handler) ReorderLessons(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	chapterID := chi.URLParam(r, "chapterID")
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.svc.ReorderLessons(r.Context(), courseID, chapterID, req.Items)
	writeReorder(w, resp, err)
}

func writeReorder(w http.ResponseWriter, resp models.Response, err error) {
	if err != nil {
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
