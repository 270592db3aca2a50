package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/storage"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *courseservice.Service
	objects storage.Provider
}

// NewHandler creates a new Handler.
func NewHandler(svc *courseservice.Service, objects storage.Provider) *Handler {
	return &Handler{svc: svc, objects: objects}
}

// ListCourses handles GET /api/courses.
//
//	@Summary		List courses, newest first
//	@Tags			courses
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	CourseListResponse
//	@Security		BearerAuth
//	@Router			/courses [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	courses, total, err := h.svc.ListCourses(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err, "list courses")
		return
	}
	writeJSON(w, http.StatusOK, CourseListResponse{Courses: courses, Total: total})
}

// GetCourse handles GET /api/courses/{courseID}.
//
//	@Summary		Get a course with its checksum
//	@Tags			courses
//	@Produce		json
//	@Param			courseID	path		string	true	"Course ID"
//	@Success		200			{object}	CourseDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{courseID} [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	course, err := h.svc.GetCourse(r.Context(), id)
	if err != nil {
		writeError(w, err, "get course", slog.String("course_id", id))
		return
	}
	w.Header().Set("ETag", `"`+course.Checksum+`"`)
	writeJSON(w, http.StatusOK, course)
}

// CreateCourse handles POST /api/courses.
//
//	@Summary		Create a course
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		courseservice.CourseInput	true	"Course to create"
//	@Success		201		{object}	CourseDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses [post]
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var in courseservice.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	course, err := h.svc.CreateCourse(r.Context(), in)
	if err != nil {
		writeError(w, err, "create course", slog.String("slug", in.Slug))
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// UpdateCourse handles PUT /api/courses/{courseID}.
//
//	@Summary		Update a course with optimistic concurrency
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			courseID	path		string						true	"Course ID"
//	@Param			If-Match	header		string						false	"Checksum for optimistic concurrency"
//	@Param			body		body		courseservice.CourseInput	true	"Updated course"
//	@Success		200			{object}	CourseDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		429			{object}	models.Response
//	@Security		BearerAuth
//	@Router			/courses/{courseID} [put]
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	var in courseservice.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	course, err := h.svc.UpdateCourse(r.Context(), id, in, ifMatch)
	if err != nil {
		writeError(w, err, "update course", slog.String("course_id", id))
		return
	}
	w.Header().Set("ETag", `"`+course.Checksum+`"`)
	writeJSON(w, http.StatusOK, course)
}

// DeleteCourse handles DELETE /api/courses/{courseID}.
//
//	@Summary		Delete a course and its structure
//	@Tags			courses
//	@Param			courseID	path	string	true	"Course ID"
//	@Success		204			"Course deleted"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{courseID} [delete]
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	if err := h.svc.DeleteCourse(r.Context(), id); err != nil {
		writeError(w, err, "delete course", slog.String("course_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across courses
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
