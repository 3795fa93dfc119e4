package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/time/rate"

	"promo-studio-bot/internal/config"
	"promo-studio-bot/internal/copygen"
	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/jobstore"
	"promo-studio-bot/internal/render"
	"promo-studio-bot/internal/siliconflow"
)

// Pipeline is the wiring shared by the bot and the web API.
type Pipeline struct {
	AI       *siliconflow.Client
	Copy     *copygen.Generator
	Images   *imagegen.Manager
	Jobs     jobstore.Store
	Renderer *render.Renderer
	Format   render.Format

	closer io.Closer
}

// Build wires the pipeline. Jobs go to Redis when REDIS_ADDR is set and to
// memory otherwise.
func Build(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (*Pipeline, error) {
	format, err := render.ParseFormat(cfg.RenderFormat)
	if err != nil {
		return nil, err
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}

	ai := siliconflow.New(siliconflow.Options{
		APIKey:      cfg.SiliconFlowAPIKey,
		BaseURL:     cfg.SiliconFlowBaseURL,
		VisionModel: cfg.VisionModel,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		ImageSize:   cfg.ImageSize,
		CallTimeout: cfg.AICallTimeout,
		HTTPClient:  httpClient,
		Logger:      logger,
	})
	if !ai.Configured() {
		logger.Warn("SILICONFLOW_API_KEY is not set: template copy and local renders only")
	}

	limit := rate.Inf
	if cfg.ImageRateInterval > 0 {
		limit = rate.Every(cfg.ImageRateInterval)
	}

	p := &Pipeline{
		AI:       ai,
		Copy:     copygen.New(copygen.Options{AI: ai, Logger: logger}),
		Images:   imagegen.New(imagegen.Options{Generator: ai, Limiter: rate.NewLimiter(limit, cfg.ImageRateBurst), Logger: logger}),
		Renderer: renderer,
		Format:   format,
	}

	if cfg.RedisAddr != "" {
		store, err := jobstore.NewRedis(ctx, jobstore.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.JobTTL,
		})
		if err != nil {
			return nil, err
		}
		p.Jobs, p.closer = store, store
		logger.Info("job store: redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	} else {
		p.Jobs = jobstore.NewMemory(cfg.JobTTL)
		logger.Info("job store: memory", "ttl", cfg.JobTTL.String())
	}

	return p, nil
}

func (p *Pipeline) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func newRenderer(cfg config.Config) (*render.Renderer, error) {
	if cfg.RenderFontPath == "" {
		return render.Default(), nil
	}

	var opts render.Options
	data, err := os.ReadFile(cfg.RenderFontPath)
	if err != nil {
		return nil, fmt.Errorf("read RENDER_FONT_PATH: %w", err)
	}
	opts.FontRegular = data

	if cfg.RenderBoldPath != "" {
		bold, err := os.ReadFile(cfg.RenderBoldPath)
		if err != nil {
			return nil, fmt.Errorf("read RENDER_FONT_BOLD_PATH: %w", err)
		}
		opts.FontBold = bold
	}
	return render.New(opts)
}

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
