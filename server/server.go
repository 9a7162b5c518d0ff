package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/stridehq/stride/auth"
	"github.com/stridehq/stride/engine"
	"github.com/stridehq/stride/review"
)

// contextKey is the type for values the middleware stashes in the request
// context.
type contextKey string

const userIDKey contextKey = "userID"

// Server wires the progression engine and its companion services behind a
// REST surface.
type Server struct {
	engine *engine.Engine
	auth   *auth.Service
	review *review.Service
	caps   auth.Capability
}

// NewServer creates a server over the given services.
func NewServer(eng *engine.Engine, authService *auth.Service, reviewService *review.Service, caps auth.Capability) *Server {
	return &Server{engine: eng, auth: authService, review: reviewService, caps: caps}
}

// jwtMiddleware reads the JWT from the Authorization header. A valid token
// puts the user's id into the request context under userIDKey; anything
// else leaves the context empty and lets the handlers decide, so public
// routes keep working behind the same middleware.
func jwtMiddleware(signingKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			splitToken := strings.Split(authHeader, "Bearer ")
			if len(splitToken) == 2 {
				token, err := jwt.Parse(splitToken[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
					}
					return []byte(signingKey), nil
				})
				if err != nil {
					log.Println("Error occurred while parsing JWT token:", err)
				} else if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
					if id, ok := claims["id"].(string); ok {
						ctx := context.WithValue(r.Context(), userIDKey, id)
						r = r.WithContext(ctx)
					}
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware is a middleware function that recovers from panics and provides a generic error message to the client.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %s\n", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Routes builds the router with the full middleware stack applied.
func (s *Server) Routes(signingKey string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", s.handleSignIn).Methods(http.MethodPost)

	r.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	r.HandleFunc("/items", s.handleCreateItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{id}", s.handleUpdateItem).Methods(http.MethodPatch)
	r.HandleFunc("/items/{id}", s.handleArchiveItem).Methods(http.MethodDelete)
	r.HandleFunc("/items/{id}/complete", s.handleCompleteItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{id}/undo", s.handleUndoCompletion).Methods(http.MethodPost)
	r.HandleFunc("/items/{id}/stats", s.handleItemStats).Methods(http.MethodGet)
	r.HandleFunc("/items/{id}/subtasks", s.handleAddSubtask).Methods(http.MethodPost)
	r.HandleFunc("/items/{id}/subtasks/{subtaskID}/complete", s.handleCompleteSubtask).Methods(http.MethodPost)

	r.HandleFunc("/today", s.handleTodayView).Methods(http.MethodGet)

	r.HandleFunc("/ledger", s.handleGetLedger).Methods(http.MethodGet)
	r.HandleFunc("/ledger/weekly-reset", s.handleWeeklyReset).Methods(http.MethodPost)

	r.HandleFunc("/submissions", s.handleListSubmissions).Methods(http.MethodGet)
	r.HandleFunc("/submissions", s.handleCreateSubmission).Methods(http.MethodPost)
	r.HandleFunc("/submissions/{id}/approve", s.handleApproveSubmission).Methods(http.MethodPost)
	r.HandleFunc("/submissions/{id}/reject", s.handleRejectSubmission).Methods(http.MethodPost)

	var h http.Handler = r
	h = jwtMiddleware(signingKey, h)
	h = recoveryMiddleware(h)

	// Apply the CORS middleware to the router
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	h = handlers.CORS(corsOrigins, corsMethods, corsHeaders)(h)

	// Apply the logging middleware
	return handlers.LoggingHandler(os.Stdout, h)
}

// Start initializes and starts the REST server at the given URL.
func (s *Server) Start(serverURL, signingKey string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("error parsing server URL: %w", err)
	}

	server := &http.Server{
		Handler:      s.Routes(signingKey),
		Addr:         u.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return server.ListenAndServe()
}
