package http

import (
	"net/http"
	"time"

	httpmw "github.com/campus-planet/chat-service/internal/transport/http/middleware"
	"github.com/campus-planet/chat-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, identity httpmw.IdentityResolver, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoints authenticate themselves via access_token query param
	r.Get("/ws/courses/{id}", wsServer.HandleGroupWS)
	r.Get("/ws/private/{username}", wsServer.HandlePrivateWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(identity))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/chats", func(cr chi.Router) {
			cr.Get("/users", h.ListUsers)
			cr.Post("/private/{username}", h.ResolvePrivateChat)
			cr.Get("/{id}/messages", h.GetMessages)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
