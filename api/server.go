/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Request logging through zap
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /                     Discovery document
  /timesheets/*         Timecards, lines and transitions
  /scenarios/*          Demo data loaders

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warp/timesheets/timecard"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", h.Root)

	r.Get("/scenarios", h.ListScenarios)
	r.Post("/scenarios/load", h.LoadScenario)

	r.Route("/timesheets", func(r chi.Router) {
		r.Get("/", h.ListTimesheets)
		r.Post("/", h.CreateTimesheet)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTimesheet)
			r.Delete("/", h.DeleteTimesheet)

			r.Get("/lines", h.GetLines)
			r.Post("/lines", h.AddLine)
			r.Post("/lines/{lineId}", h.ReplaceLine)
			r.Patch("/lines/{lineId}", h.UpdateLine)

			r.Get("/transitions", h.GetTransitions)

			for path, kind := range map[string]timecard.DocumentKind{
				"/submittal":    timecard.DocSubmittal,
				"/cancellation": timecard.DocCancellation,
				"/rejection":    timecard.DocRejection,
				"/approval":     timecard.DocApproval,
			} {
				r.Post(path, h.Transition(kind))
				r.Get(path, h.TransitionDetail(kind))
			}
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
