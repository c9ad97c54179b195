// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbeckert/formwerk/internal/config"
	"github.com/mbeckert/formwerk/internal/draft"
	"github.com/mbeckert/formwerk/internal/eventbus"
	"github.com/mbeckert/formwerk/internal/format"
	"github.com/mbeckert/formwerk/internal/handler"
	"github.com/mbeckert/formwerk/internal/history"
	"github.com/mbeckert/formwerk/internal/jurisdiction"
	"github.com/mbeckert/formwerk/internal/remote"
	"github.com/mbeckert/formwerk/internal/schema"
	"github.com/mbeckert/formwerk/internal/session"
	"github.com/mbeckert/formwerk/internal/suggest"
	"github.com/mbeckert/formwerk/internal/wire"
	"github.com/mbeckert/formwerk/internal/worker"
)

// eventBufSize bounds how many session events may queue up before the
// bus starts dropping them.
const eventBufSize = 256

// Config holds the assembled dependencies for the server.
type Config struct {
	Port       int
	Registry   *schema.Registry
	Sessions   *session.Manager
	Suggest    *suggest.Engine
	Formatter  *format.Manager
	DraftStore draft.Store
	History    history.Store
	Generator  remote.Generator
	Saver      remote.DocumentSaver
	Mailer     remote.Mailer
	Autosave   config.AutosaveConfig
	Country    string
}

// Run starts the HTTP server with all routes registered. It blocks until the
// context is cancelled, then drains in-flight requests and closes every live
// session so final drafts are flushed.
func Run(ctx context.Context, cfg Config) error {
	bus := eventbus.New(eventBufSize)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	if cfg.History != nil {
		bus.Subscribe("history", history.NewRecorder(cfg.History))
	}
	bus.Start(ctx)

	r := chi.NewRouter()
	r.Use(handler.Recovery)
	r.Use(handler.Logging)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	fh := &handler.FormHandler{
		Registry:   cfg.Registry,
		Sessions:   cfg.Sessions,
		Suggest:    cfg.Suggest,
		Formatter:  cfg.Formatter,
		DraftStore: cfg.DraftStore,
		Generator:  cfg.Generator,
		Saver:      cfg.Saver,
		Mailer:     cfg.Mailer,
		Bus:        bus,
		History:    cfg.History,
		Checker:    jurisdiction.NewChecker(jurisdiction.DefaultRulesDE()),
		Autosave:   cfg.Autosave,
		Country:    cfg.Country,
	}
	fh.RegisterRoutes(r)

	ws := wire.NewHandler(cfg.Sessions, cfg.Suggest)
	r.Get("/v1/sessions/{id}/ws", ws.ServeHTTP)

	maintenance := worker.NewMaintenance(worker.Config{
		Sessions: cfg.Sessions,
		Drafts:   cfg.DraftStore,
	})
	go maintenance.Run(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s (%d templates loaded)", addr, len(cfg.Registry.TemplateNames()))

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
		cfg.Sessions.CloseAll()
		bus.Stop()
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
