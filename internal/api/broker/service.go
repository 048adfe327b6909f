package broker

import (
	"net/http"

	"github.com/embedvm/session-broker/internal/config"
	"github.com/embedvm/session-broker/internal/credential"
	"github.com/embedvm/session-broker/internal/csrf"
	"github.com/embedvm/session-broker/internal/provider"
	"github.com/embedvm/session-broker/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Service represents the session broker API service
type Service struct {
	server *http.Server

	Config *config.Config

	Storage storage.Driver

	Provider provider.Client

	Codec credential.Codec

	guard *csrf.Guard
}

// Startup starts up the broker API
func (service *Service) Startup() error {
	server := &http.Server{
		Addr:    service.Config.ListenAddress,
		Handler: service.handler(),
	}
	service.server = server
	return server.ListenAndServe()
}

// handler assembles the HTTP handler tree of the broker API
func (service *Service) handler() http.Handler {
	// Create the CSRF guard
	service.guard = &csrf.Guard{
		CookieName: cookieNameCSRFToken,
		HeaderName: headerNameCSRFToken,
		MaxAge:     service.Config.CSRFTokenTTLSeconds,
		Secure:     service.Config.IsEnvProduction(),
	}

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.error(writer, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.error(writer, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Register the CSRF token issuance endpoint
	router.Get("/v1/csrf", service.EndpointIssueCSRFToken)

	// Register the session lifecycle endpoints
	router.Post("/v1/sessions", withMiddlewares(service.EndpointCreateSession, service.MiddlewareVerifyCSRF, service.MiddlewareVerifyAPISecret))
	router.Post("/v1/sessions/terminate", withMiddlewares(service.EndpointTerminateSession, service.MiddlewareVerifyCSRF))

	return router
}

// Shutdown shuts down the broker API
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
}

func withMiddlewares(end http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	final := end
	for i := len(middlewares); i > 0; i-- {
		final = middlewares[i-1](final)
	}
	return final
}
