package copygen

import (
	"context"
	"log/slog"

	"promo-studio-bot/internal/copytpl"
	"promo-studio-bot/internal/normalize"
	"promo-studio-bot/internal/product"
)

type TextGenerator interface {
	Configured() bool
	GenerateCopy(ctx context.Context, p product.Product, accept func(content string) error) (string, error)
}

type Options struct {
	AI     TextGenerator
	Logger *slog.Logger
}

type Generator struct {
	ai     TextGenerator
	logger *slog.Logger
}

func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{ai: opts.AI, logger: logger}
}

// Generate always returns three variants. AI failures fall back to the
// template path with the error text kept in Diagnostic.
func (g *Generator) Generate(ctx context.Context, p product.Product) product.CopyResult {
	if g.ai == nil || !g.ai.Configured() {
		return copytpl.Generate(p)
	}

	accept := func(content string) error {
		_, err := normalize.Parse(content, p.Name)
		return err
	}

	raw, err := g.ai.GenerateCopy(ctx, p, accept)
	if err != nil {
		return g.fallback(p, err)
	}

	variants, err := normalize.Parse(raw, p.Name)
	if err != nil {
		return g.fallback(p, err)
	}

	return product.CopyResult{
		Variants: variants,
		Source:   product.SourceAI,
	}
}

func (g *Generator) fallback(p product.Product, err error) product.CopyResult {
	g.logger.Warn("ai copy failed, using template", "product", p.Name, "err", err)

	result := copytpl.Generate(p)
	result.Diagnostic = err.Error()
	return result
}
