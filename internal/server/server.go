package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tartampluch/go-cardology/internal/config"
)

// Server exposes the cardology service over HTTP.
type Server struct {
	svc      Service
	BindAddr string
	Port     string
}

// New creates a server. Start must be called to listen.
func New(svc Service, bindAddr, port string) *Server {
	return &Server{svc: svc, BindAddr: bindAddr, Port: port}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.GetHead)
	r.Use(middleware.SetHeader(config.HeaderXContentType, config.MimeNoSniff))

	r.Route(config.RouteAPI, func(r chi.Router) {
		r.Get(config.RouteHealth, s.handleHealth)
		r.Post(config.RouteReadings, s.handleReading)

		r.Route(config.RouteProfiles, func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Post(config.RouteImport, s.handleImport)

			r.Route(config.RouteProfile, func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Delete("/", s.handleDeleteProfile)
				r.Get(config.RouteReading, s.handleProfileReading)
				r.Post(config.RouteChat, s.handleChat)

				r.Route(config.RouteConversations, func(r chi.Router) {
					r.Get("/", s.handleListConversations)
					r.Put(config.RouteConversation, s.handleSaveConversation)
					r.Patch(config.RouteConversation, s.handleRenameConversation)
					r.Delete(config.RouteConversation, s.handleDeleteConversation)
				})
			})
		})
	})

	r.Get(config.RouteCalendar, s.handleCalendar)
	return r
}

// Start listens and blocks until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := config.ValidatePort(s.Port); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         s.BindAddr + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Debug(config.MsgRequestServed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyMethod, r.Method,
			config.LogKeyPath, r.URL.Path,
			config.LogKeyStatus, ww.Status(),
			config.LogKeySizeBytes, ww.BytesWritten(),
			config.LogKeyDuration, time.Since(start).Milliseconds(),
			config.LogKeyRequestID, middleware.GetReqID(r.Context()),
		)
	})
}
