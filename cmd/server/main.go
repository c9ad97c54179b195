package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/mbeckert/formwerk/internal/config"
	"github.com/mbeckert/formwerk/internal/draft"
	"github.com/mbeckert/formwerk/internal/format"
	"github.com/mbeckert/formwerk/internal/history"
	"github.com/mbeckert/formwerk/internal/remote"
	"github.com/mbeckert/formwerk/internal/schema"
	"github.com/mbeckert/formwerk/internal/server"
	"github.com/mbeckert/formwerk/internal/session"
	"github.com/mbeckert/formwerk/internal/suggest"

	_ "modernc.org/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	// Enable foreign keys explicitly — required for SQLite.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		log.Fatalf("enabling foreign keys: %v", err)
	}

	draftStore := draft.NewSQLiteStore(db)
	if err := draftStore.CreateTable(ctx); err != nil {
		log.Fatalf("creating drafts table: %v", err)
	}
	suggestStore := suggest.NewSQLiteStore(db)
	if err := suggestStore.CreateTable(ctx); err != nil {
		log.Fatalf("creating suggestion history table: %v", err)
	}
	historyStore := history.NewSQLiteStore(db)
	if err := historyStore.CreateTable(ctx); err != nil {
		log.Fatalf("creating session history table: %v", err)
	}

	registry := schema.NewRegistry()
	if err := schema.LoadDir(registry, cfg.TemplatesDir); err != nil {
		log.Fatalf("loading templates: %v", err)
	}
	log.Printf("loaded %d templates from %s", len(registry.TemplateNames()), cfg.TemplatesDir)

	// An empty backend URL selects the in-memory fake (development mode).
	var (
		generator remote.Generator
		docSaver  remote.DocumentSaver
		mailer    remote.Mailer
	)
	if cfg.Remote.BaseURL != "" {
		client := remote.NewClient(cfg.Remote.BaseURL)
		generator, docSaver, mailer = client, client, client
	} else {
		log.Println("no backend configured, using in-memory fake")
		fake := remote.NewFake()
		generator, docSaver, mailer = fake, fake, fake
	}

	sessions := session.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout)

	if err := server.Run(ctx, server.Config{
		Port:       cfg.Port,
		Registry:   registry,
		Sessions:   sessions,
		Suggest:    suggest.New(suggestStore),
		Formatter:  format.NewManager(),
		DraftStore: draftStore,
		History:    historyStore,
		Generator:  generator,
		Saver:      docSaver,
		Mailer:     mailer,
		Autosave:   cfg.Autosave,
		Country:    cfg.Country,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
