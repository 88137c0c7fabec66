package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturoeanton/certify-ai/internal/adapter/ai"
	"github.com/arturoeanton/certify-ai/internal/adapter/artifact"
	"github.com/arturoeanton/certify-ai/internal/adapter/auth"
	"github.com/arturoeanton/certify-ai/internal/adapter/render"
	"github.com/arturoeanton/certify-ai/internal/adapter/store"
	"github.com/arturoeanton/certify-ai/internal/handler"
	"github.com/arturoeanton/certify-ai/internal/logging"
	"github.com/arturoeanton/certify-ai/internal/mcp"
	"github.com/arturoeanton/certify-ai/internal/middleware"
	"github.com/arturoeanton/certify-ai/internal/policy"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/arturoeanton/certify-ai/internal/service"
	"github.com/arturoeanton/certify-ai/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("🚀 Starting Certify AI",
		"port", cfg.Port,
		"version", version,
		"auth_mode", cfg.AuthMode,
		"store", cfg.StoreDriver,
		"artifacts", cfg.ArtifactBackend,
		"ai_provider", cfg.AIProvider,
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────────
	st, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	artifacts, err := newArtifactStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open artifact store", "backend", cfg.ArtifactBackend, "error", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	verifier, err := newVerifier(cfg)
	if err != nil {
		slog.Error("failed to configure identity verifier", "mode", cfg.AuthMode, "error", err)
		os.Exit(1)
	}

	aiProvider, err := newAIProvider(ctx, cfg)
	if err != nil {
		slog.Warn("AI provider not configured, assistant routes will fail", "provider", cfg.AIProvider, "error", err)
		aiProvider = ai.NewUnavailableProvider(cfg.AIProvider, err)
	}

	renderer := render.NewPDFRenderer(cfg.AppName, cfg.TempDir, logger)

	engine, err := policy.Load(ctx, cfg.PolicyFile)
	if err != nil {
		slog.Error("failed to load access policy", "file", cfg.PolicyFile, "error", err)
		os.Exit(1)
	}

	// ── Services ─────────────────────────────────────────────────────────
	authService := service.NewAuthService(st, verifier, st, cfg.AutoProvisionOnFirstLogin)
	certService := service.NewCertificateService(st, renderer, artifacts, st)
	assistant := service.NewAssistantService(aiProvider, st, st, cfg.AITimeout)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(st))

	// ── Routes ───────────────────────────────────────────────────────────
	gate := middleware.AuthGate(authService)
	api := app.Group("/api")

	handler.NewHealthHandler(cfg.AppName, version).Register(api)
	handler.NewAuthHandler(authService).Register(api, gate, engine)
	handler.NewCertificateHandler(certService).Register(api, gate, engine)
	handler.NewAIHandler(assistant).Register(api, gate, engine)
	handler.NewAuditHandler(st).Register(api, gate, engine)

	// ── MCP Server (separate port) ───────────────────────────────────────
	var mcpServer *mcp.Server
	if cfg.MCPEnabled {
		mcpServer = mcp.NewServer(assistant, st, "certify-ai", version, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if mcpServer != nil {
			_ = mcpServer.Shutdown(shutdownCtx)
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func newStore(ctx context.Context, cfg *config.Config) (port.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	case "sqlite":
		return store.NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		slog.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (port.ArtifactStore, error) {
	switch cfg.ArtifactBackend {
	case "s3":
		return artifact.NewS3Store(ctx, artifact.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
	case "sftp":
		return artifact.NewSFTPStore(artifact.SFTPConfig{
			Host:      cfg.SFTPHost,
			Port:      cfg.SFTPPort,
			User:      cfg.SFTPUser,
			Pass:      cfg.SFTPPass,
			RemoteDir: cfg.SFTPRemoteDir,
		})
	default:
		return artifact.NewLocalStore(cfg.CertDir)
	}
}

func newVerifier(cfg *config.Config) (port.IdentityVerifier, error) {
	if cfg.AuthMode != port.AuthModeDelegated {
		return auth.NewJWTVerifier(auth.JWTConfig{
			Secret:    cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
			ExpiresIn: cfg.TokenTTL(),
		}), nil
	}

	projectID := cfg.FirebaseProjectID
	if projectID == "" {
		id, err := auth.ReadProjectID(cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("firebase project id: %w", err)
		}
		projectID = id
	}
	if projectID == "" {
		return nil, errors.New("firebase project id is empty")
	}

	keys := auth.NewGoogleCertSource("", cfg.IdentityProviderTimeout)
	return auth.NewFirebaseVerifier(projectID, keys, cfg.ClockSkew), nil
}

func newAIProvider(ctx context.Context, cfg *config.Config) (port.AIProvider, error) {
	if cfg.AIProvider == "ollama" {
		return ai.NewOllamaProvider(ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		}), nil
	}
	return ai.NewGeminiProvider(ctx, ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiURL,
	})
}
