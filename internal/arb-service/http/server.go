package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter monta o roteador com middlewares, a API REST e o endpoint WebSocket
func NewRouter(api *API, ws http.HandlerFunc, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// timeout não se aplica ao WebSocket, que é uma conexão longa
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		api.Routes(r)
	})
	if ws != nil {
		r.Get("/ws", ws)
	}
	return r
}

// NewServer cria o servidor HTTP público
func NewServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
