package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/storage"
)

// Options configures the API router.
type Options struct {
	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// UpdateLimit and UpdateWindow bound course updates per client.
	UpdateLimit  int
	UpdateWindow time.Duration
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *courseservice.Service, objects storage.Provider, opts Options) chi.Router {
	h := NewHandler(svc, objects)

	r := chi.NewRouter()

	// Signed object uploads authenticate through their URL signature.
	if recv, ok := objects.(objectReceiver); ok {
		r.Put("/objects/*", h.receiveObject(recv))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

		// Courses CRUD.
		r.Get("/courses", h.ListCourses)
		r.Post("/courses", h.CreateCourse)
		r.Get("/courses/{courseID}", h.GetCourse)
		r.With(RateLimit(opts.UpdateLimit, opts.UpdateWindow)).Put("/courses/{courseID}", h.UpdateCourse)
		r.Delete("/courses/{courseID}", h.DeleteCourse)

		// Search.
		r.Get("/search", h.Search)

		// Structure.
		r.Get("/courses/{courseID}/structure", h.Structure)
		r.Post("/courses/{courseID}/chapters", h.CreateChapter)
		r.Put("/courses/{courseID}/chapters/order", h.ReorderChapters)
		r.Post("/courses/{courseID}/chapters/{chapterID}/lessons", h.CreateLesson)
		r.Put("/courses/{courseID}/chapters/{chapterID}/lessons/order", h.ReorderLessons)

		// Uploads.
		r.Post("/uploads", h.PresignUpload)
		r.Delete("/uploads", h.DeleteUpload)

		// SSE endpoint (protected by same auth middleware).
		if opts.Events != nil {
			r.Get("/events", opts.Events.ServeHTTP)
		}
	})

	return r
}
