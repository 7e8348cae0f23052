package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/instafeed/internal/logging"
	"github.com/dmitrijs2005/instafeed/internal/server/config"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
	"github.com/dmitrijs2005/instafeed/internal/server/uploads"
)

const defaultPerPage = 15

// Server wires the HTTP surface: routing, authentication, upload handling
// and the translation of model outcomes into responses.
type Server struct {
	cfg     *config.Config
	log     logging.Logger
	models  *models.Models
	uploads uploads.Store
	// static is set when the disk backend is active, so the upload
	// directory can be served under the static prefix.
	static *uploads.DiskStore
}

// New builds the server. When up is a DiskStore its directory is also served
// as static content.
func New(cfg *config.Config, log logging.Logger, m *models.Models, up uploads.Store) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log.With("module", "httpapi"),
		models:  m,
		uploads: up,
	}
	if disk, ok := up.(*uploads.DiskStore); ok {
		s.static = disk
	}
	return s
}

// Router assembles all routes. Public reads need no token; every mutation of
// owned state sits behind the auth middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/login", s.postLogin)

	r.Get("/users", s.getUsers)
	r.Post("/users", s.postUser)
	r.Get("/users/{id}", s.getUser)
	r.Get("/users/{id}/posts", s.getUserPosts)

	r.Get("/posts/{id}", s.getPost)
	r.Get("/posts/{id}/comments", s.getPostComments)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Put("/users", s.putUser)
		r.Post("/users/{id}/follow", s.postFollow)
		r.Post("/users/{id}/unfollow", s.postUnfollow)

		r.Post("/posts", s.postPost)
		r.Put("/posts/{id}", s.putPost)
		r.Delete("/posts/{id}", s.deletePost)
		r.Post("/posts/{id}/like", s.postLike)
		r.Post("/posts/{id}/unlike", s.postUnlike)
		r.Post("/posts/{id}/save", s.postSave)
		r.Post("/posts/{id}/unsave", s.postUnsave)

		r.Post("/posts/{id}/comments", s.postComment)
		r.Delete("/comments/{id}", s.deleteComment)
	})

	if s.static != nil {
		prefix := s.cfg.StaticURLPrefix
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(s.static.Dir())))
		r.Handle(prefix+"/*", fs)
	}

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

// pageParams reads the 1-based page window from the query string.
func pageParams(r *http.Request) (page, perPage int) {
	page, perPage = 1, defaultPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("perPage")); err == nil && v > 0 {
		perPage = v
	}
	return page, perPage
}
