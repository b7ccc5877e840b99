// Пакет server — HTTP-сервер Key Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hostelms/key-module/internal/api/handlers"
	"github.com/hostelms/key-module/internal/api/middleware"
	"github.com/hostelms/key-module/internal/config"
	"github.com/hostelms/key-module/internal/domain/model"
)

// Server — HTTP-сервер Key Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware; может быть nil для тестирования без auth,
// тогда защищённые маршруты отвечают 401 из обработчиков (claims отсутствуют).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.RequestID())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// Публичные маршруты
		r.Get("/init", handler.InitDemoData)
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Get("/rooms", handler.ListRooms)
		r.Get("/rooms/{roomNumber}", handler.GetRoom)
		r.Get("/check-access/{roomNumber}", handler.CheckAccess)
		r.Get("/students", handler.ListStudents)
		r.Get("/securities", handler.ListSecurities)
		r.Get("/transactions", handler.ListTransactions)
		r.Get("/night-passes", handler.ListNightPasses)

		// Маршруты, требующие bearer JWT
		r.Group(func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(jwtAuth.Middleware())
			}

			r.Post("/key-transaction", handler.RecordKeyTransaction)
			r.Post("/night-pass", handler.SubmitNightPass)

			r.With(middleware.RequireRole(model.RoleSecurity)).
				Post("/give-access", handler.GiveAccess)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleWarden))
				r.Post("/approve-night-pass", handler.ApproveNightPass)
				r.Post("/manage-student", handler.ManageStudent)
				r.Post("/add-security", handler.AddSecurity)
			})
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Handler возвращает корневой http.Handler сервера (для httptest).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
