package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spendly/internal/handlers"
	"spendly/internal/middlewares"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.Prometheus)
	r.Use(middlewares.Cors(s.allowedOrigins))

	ch := handlers.NewCommonHandler(s.db)
	r.HandleFunc("/", ch.HelloWorldHandler).Methods("GET")
	r.HandleFunc("/health", ch.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	s.registerUserRoutes(api)
	s.registerExpenseRoutes(api)

	return r
}

// public routes are limited per client IP.
func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.limiter.Middleware(h)
}

// protected routes need a session and are limited per user.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middlewares.AuthMiddleware(s.authService)(s.limiter.Middleware(h))
}

func (s *Server) registerUserRoutes(r *mux.Router) {
	uh := handlers.NewUserHandler(s.userService, s.authService)

	r.Handle("/user/register", s.public(uh.Register)).Methods("POST", "OPTIONS")
	r.Handle("/user/login", s.public(uh.Login)).Methods("POST", "OPTIONS")
	r.Handle("/user/logout", s.public(uh.Logout)).Methods("GET", "OPTIONS")
	r.Handle("/user/password", s.protected(uh.ChangePassword)).Methods("PUT", "OPTIONS")
}

func (s *Server) registerExpenseRoutes(r *mux.Router) {
	eh := handlers.NewExpenseHandler(s.expenseService)

	r.Handle("/expense/getall", s.protected(eh.GetAll)).Methods("GET", "OPTIONS")
	r.Handle("/expense/get/{id}", s.protected(eh.Get)).Methods("GET", "OPTIONS")
	r.Handle("/expense/add", s.protected(eh.Add)).Methods("POST", "OPTIONS")
	r.Handle("/expense/update/{id}", s.protected(eh.Update)).Methods("PUT", "OPTIONS")
	r.Handle("/expense/remove/{id}", s.protected(eh.Remove)).Methods("DELETE", "OPTIONS")
	r.Handle("/expense/removeall", s.protected(eh.RemoveAll)).Methods("DELETE", "OPTIONS")
	r.Handle("/expense/{id}/done", s.protected(eh.MarkDone)).Methods("PUT", "OPTIONS")
}
