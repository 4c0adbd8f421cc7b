package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/cost"
	"gitlab.com/examgrid-2026.net/internal/core/services/gateway"
	"gitlab.com/examgrid-2026.net/internal/core/services/lifecycle"
	"gitlab.com/examgrid-2026.net/internal/core/services/session"
	"gitlab.com/examgrid-2026.net/internal/handlers"
	"gitlab.com/examgrid-2026.net/internal/handlers/costs"
	"gitlab.com/examgrid-2026.net/internal/handlers/sessions"
)

type ServiceProvider struct {
	sessionService session.ISessionService
	gatewayService gateway.IGatewayService
	coordinator    lifecycle.ICoordinatorService
	completion     lifecycle.ICompletionService
	accountant     cost.IAccountantService
	events         secondary.EventRepository
	tokens         primary.OperatorTokenService
}

func NewServiceProvider(
	sessionService session.ISessionService,
	gatewayService gateway.IGatewayService,
	coordinator lifecycle.ICoordinatorService,
	completion lifecycle.ICompletionService,
	accountant cost.IAccountantService,
	events secondary.EventRepository,
	tokens primary.OperatorTokenService,
) *ServiceProvider {
	return &ServiceProvider{
		sessionService: sessionService,
		gatewayService: gatewayService,
		coordinator:    coordinator,
		completion:     completion,
		accountant:     accountant,
		events:         events,
		tokens:         tokens,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	mw := handlers.New(s.ServiceProvider.tokens)

	sessions.NewSessionHandler(
		s.ServiceProvider.sessionService,
		s.ServiceProvider.gatewayService,
		s.ServiceProvider.coordinator,
		s.ServiceProvider.completion,
		s.ServiceProvider.events,
		s.logger,
	).RegisterRoutes(r, mw)

	costs.NewCostHandler(
		s.ServiceProvider.accountant,
		s.ServiceProvider.sessionService,
		s.logger,
	).RegisterRoutes(r)

	s.router = r
	return nil
}

func (s *Server) Start(ctx context.Context) {
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		// Final submissions hold the connection through batch monitoring.
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}
}
