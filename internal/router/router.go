package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ms-admission/internal/admission/admission_api"
	"ms-admission/internal/entrylog/history_api"
	"ms-admission/internal/logger"
	"ms-admission/internal/tickets/ticket_api"
)

type Handlers struct {
	Admission *admission_api.Handler
	Tickets   *ticket_api.Handler
	History   *history_api.Handler
}

// New builds the HTTP surface. allowedOrigins feeds the CORS policy.
func New(h Handlers, allowedOrigins []string, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		h.Admission.RegisterRoutes(r)
		log.Info("ROUTER", "Admission routes registered under /api/entry")

		h.Tickets.RegisterRoutes(r)
		log.Info("ROUTER", "Ticket routes registered under /api/tickets")

		h.History.RegisterRoutes(r)
		log.Info("ROUTER", "History routes registered under /api/history")
	})

	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), time.Since(start).String())
		})
	}
}
