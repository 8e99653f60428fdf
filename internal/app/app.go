// Package app wires the server: backend selection, secret resolution,
// stores, handlers and routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/kashw/keepsake/internal/adapter"
	"github.com/kashw/keepsake/internal/adapter/github"
	"github.com/kashw/keepsake/internal/adapter/memory"
	"github.com/kashw/keepsake/internal/auth"
	"github.com/kashw/keepsake/internal/config"
	"github.com/kashw/keepsake/internal/handler"
	"github.com/kashw/keepsake/internal/secret"
	"github.com/kashw/keepsake/internal/store"
)

// App holds the wired server.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	backend adapter.ContentStore
	handler http.Handler
}

// New initializes the application. In dev mode state lives in memory and
// secrets come from the environment; in production state lives in the
// GitHub content repository and secrets come from SSM Parameter Store.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	var resolver secret.Resolver
	if cfg.DevMode {
		resolver = secret.NewEnvResolver()
		logger.Info("using EnvResolver (DEV_MODE=true)")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(awsCfg))
		logger.Info("using SSMResolver (SSM Parameter Store)")
	}

	jwtSecret, err := resolver.GetSecret(ctx, cfg.JWTSecretParam)
	if err != nil {
		logger.Warn("failed to resolve JWT secret, using dev default", "error", err)
		jwtSecret = "default-dev-secret"
	}

	var backend adapter.ContentStore
	if cfg.DevMode {
		backend = memory.NewStore()
		logger.Info("using in-memory backend (DEV_MODE=true)")
	} else {
		githubToken, err := resolver.GetSecret(ctx, cfg.GitHubTokenParam)
		if err != nil {
			logger.Warn("failed to resolve backend token; writes will be rejected", "error", err)
		}
		backend = github.NewClient(github.Options{
			BaseURL: cfg.GitHubAPIURL,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			Token:   githubToken,
		})
	}

	fileStore := store.NewFileStore(backend)
	docStore := store.NewDocumentStore(backend, fileStore)

	authHandler := handler.NewAuthHandler(docStore, jwtSecret)
	memoriesHandler := handler.NewMemoriesHandler(fileStore)
	lettersHandler := handler.NewLettersHandler(docStore)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("POST /api/login", authHandler.Login)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(jwtSecret, h)
	}
	mux.Handle("GET /api/memories/{category}", authed(memoriesHandler.List))
	mux.Handle("POST /api/folders/{category}", authed(memoriesHandler.CreateFolder))
	mux.Handle("POST /api/upload/{category}", authed(memoriesHandler.Upload))
	mux.Handle("GET /api/proxy", authed(memoriesHandler.Proxy))
	mux.Handle("GET /api/letters", authed(lettersHandler.List))
	mux.Handle("POST /api/letters", authed(lettersHandler.Create))
	mux.Handle("GET /api/stats", authed(lettersHandler.Stats))

	if cfg.StaticDir != "" {
		mux.Handle("/", spaHandler(cfg.StaticDir))
	}

	app := &App{
		cfg:     cfg,
		log:     logger,
		backend: backend,
		handler: withCORS(requestLogger(logger, mux)),
	}
	app.probeBackend(ctx)
	return app, nil
}

// Handler returns the root handler with middleware applied.
func (a *App) Handler() http.Handler {
	return a.handler
}

// probeBackend checks the backend once at startup. Rejected credentials
// are a configuration fault worth a loud warning before the first user
// request trips over it.
func (a *App) probeBackend(ctx context.Context) {
	_, err := a.backend.FetchEntry(ctx, "db.json")
	switch {
	case err == nil, errors.Is(err, adapter.ErrNotFound):
		a.log.Info("backend reachable", "repo", a.cfg.GitHubRepo, "branch", a.cfg.GitHubBranch)
	case errors.Is(err, adapter.ErrUnauthorized):
		a.log.Error("CRITICAL: backend rejected credentials; check the access token", "error", err)
	default:
		a.log.Warn("backend probe failed", "error", err)
	}
}
