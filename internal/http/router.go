package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the API router with its middleware stack.
func NewRouter(bookings *BookingHandler, rooms *RoomHandler, logger *slog.Logger) http.Handler {
	base := defaultLogger(logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(base))
	r.Use(RequireIdentity(base))

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", bookings.Create)
		r.Get("/{id}", withID(bookings.Get))
		r.Patch("/{id}", withID(bookings.Update))
		r.Delete("/{id}", withID(bookings.Cancel))
		r.Post("/{id}/check-in", withID(bookings.CheckIn))
		r.Post("/{id}/end", withID(bookings.EndEarly))
		r.Post("/{id}/extend", withID(bookings.Extend))
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", rooms.List)
		r.Post("/", rooms.Create)
		r.Get("/{id}", withID(rooms.Get))
		r.Put("/{id}", withID(rooms.Update))
		r.Delete("/{id}", withID(rooms.Delete))
		r.Get("/{id}/bookings", withID(bookings.ListForRoom))
	})

	return r
}

// withID adapts a handler expecting the {id} path parameter.
func withID(handler func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, chi.URLParam(r, "id"))
	}
}
