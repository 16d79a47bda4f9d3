package main

import (
	"context"
	"fmt"

	"github.com/PabloGalante/chatplanner/internal/adapters/calendar"
	"github.com/PabloGalante/chatplanner/internal/adapters/llm"
	"github.com/PabloGalante/chatplanner/internal/adapters/notion"
	firestorestore "github.com/PabloGalante/chatplanner/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/chatplanner/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/chatplanner/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/chatplanner/internal/adapters/todoist"
	"github.com/PabloGalante/chatplanner/internal/app/conversation"
	"github.com/PabloGalante/chatplanner/internal/app/dispatch"
	"github.com/PabloGalante/chatplanner/internal/app/pipeline"
	"github.com/PabloGalante/chatplanner/internal/app/timenorm"
	"github.com/PabloGalante/chatplanner/internal/config"
	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// deps is everything built from the config.
type deps struct {
	cfg      *config.Config
	oracle   domain.Oracle
	norm     *timenorm.Normalizer
	users    domain.UserStore
	sessions domain.SessionStore
	calendar domain.CalendarService
	tasks    domain.TaskService

	closers []func() error
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			observability.Logger().Warnw("close failed", "error", err)
		}
	}
}

func (d *deps) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Temperatures:      d.cfg.Oracle.Temperatures,
		EscalationBackoff: d.cfg.GetEscalationBackoff(),
		CallTimeout:       d.cfg.GetOracleTimeout(),
	}
}

func (d *deps) parser() *pipeline.Parser {
	return pipeline.NewParser(d.oracle, d.norm, d.pipelineOptions())
}

func (d *deps) conversation() *conversation.Service {
	return conversation.NewService(
		d.users,
		d.sessions,
		d.calendar,
		d.tasks,
		d.parser(),
		dispatch.NewCoordinator(d.calendar, d.tasks, d.cfg.GetDispatchTimeout()),
		conversation.Options{
			MinTextLen:             d.cfg.Conversation.MinTextLen,
			TaskCredentialRequired: d.cfg.Tasks.Backend != "none",
			ValidateTimeout:        d.cfg.GetDispatchTimeout(),
		},
	)
}

// buildOracleOnly wires what the offline commands need.
func buildOracleOnly(ctx context.Context, cfg *config.Config) (*deps, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	oracle, err := buildOracle(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &deps{cfg: cfg, oracle: oracle, norm: timenorm.New(loc)}, nil
}

func buildAll(ctx context.Context, cfg *config.Config) (*deps, error) {
	d, err := buildOracleOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := d.buildStores(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.buildBackends(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func buildOracle(ctx context.Context, cfg *config.Config) (domain.Oracle, error) {
	log := observability.Logger()
	oc := cfg.Oracle

	switch oc.Provider {
	case "mock":
		log.Infow("using mock oracle")
		return llm.NewMockLLM(), nil
	case "gigachat":
		httpClient := llm.NewHTTPClient(cfg.GetOracleTimeout(), oc.InsecureSkipVerify)
		log.Infow("using gigachat oracle", "base_url", oc.BaseURL, "model", oc.Model)
		return llm.NewChatClient(oc.BaseURL, oc.Model, llm.NewGigaChatAuth(oc.AuthURL, oc.AuthKey, oc.Scope, httpClient), httpClient), nil
	case "openai":
		httpClient := llm.NewHTTPClient(cfg.GetOracleTimeout(), oc.InsecureSkipVerify)
		log.Infow("using chat-completions oracle", "base_url", oc.BaseURL, "model", oc.Model)
		return llm.NewChatClient(oc.BaseURL, oc.Model, llm.StaticToken(oc.APIKey), httpClient), nil
	case "gemini":
		log.Infow("using gemini oracle", "model", oc.Model, "vertex", oc.APIKey == "")
		c, err := llm.NewGeminiClient(ctx, llm.GeminiOptions{
			APIKey:    oc.APIKey,
			ProjectID: oc.GCPProjectID,
			Location:  oc.GCPLocation,
			Model:     oc.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini oracle: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", oc.Provider)
	}
}

func (d *deps) buildStores(ctx context.Context) error {
	log := observability.Logger()
	sc := d.cfg.Storage

	switch sc.Backend {
	case "firestore":
		log.Infow("using firestore storage", "project", sc.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, sc.GCPProjectID)
		if err != nil {
			return fmt.Errorf("init firestore store: %w", err)
		}
		d.closers = append(d.closers, fs.Close)
		// 1 store, implements 2 interfaces
		d.users, d.sessions = fs, fs
	case "sqlite":
		log.Infow("using sqlite storage", "path", sc.SQLitePath)
		db, err := sqlitestore.New(sc.SQLitePath)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		d.users, d.sessions = db, db
	default:
		log.Infow("using in-memory storage")
		d.users, d.sessions = memstore.NewUserStore(), memstore.NewSessionStore()
	}
	return nil
}

func (d *deps) buildBackends(ctx context.Context) error {
	log := observability.Logger()
	var dryRun *dispatch.LogSink
	sink := func() *dispatch.LogSink {
		if dryRun == nil {
			dryRun = dispatch.NewLogSink()
		}
		return dryRun
	}

	if f := d.cfg.Calendar.CredentialsFile; f != "" || d.cfg.Mode == config.ModeGCP {
		g, err := calendar.NewGoogle(ctx, f)
		if err != nil {
			return fmt.Errorf("init google calendar: %w", err)
		}
		log.Infow("using google calendar")
		d.calendar = g
	} else {
		log.Warnw("no calendar credentials, events are only logged")
		d.calendar = sink()
	}

	switch d.cfg.Tasks.Backend {
	case "todoist":
		log.Infow("using todoist tasks", "base_url", d.cfg.Tasks.BaseURL)
		d.tasks = todoist.NewClient(d.cfg.Tasks.BaseURL, nil)
	case "notion":
		log.Infow("using notion tasks")
		d.tasks = notion.NewTaskSink(notion.NewClient("", d.cfg.Tasks.NotionToken, nil))
	default:
		log.Warnw("no task backend, tasks are only logged")
		d.tasks = sink()
	}
	return nil
}
