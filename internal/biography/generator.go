// Package biography generates short character biographies with the
// Anthropic Messages API. The generator is only an upstream text producer:
// its output feeds the semantic index like any other biography text.
package biography

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/galaxyops/holocron/internal/models"
	"github.com/galaxyops/holocron/pkg/xmlutil"
)

// bioPromptTemplate asks for a 2-3 sentence biography. Character fields are
// injected via XML tags to prevent prompt injection from catalog data.
const bioPromptTemplate = `Write a short, engaging biography (2-3 sentences) for the fictional character described below.

<name>%s</name>
<species>%s</species>
<homeworld>%s</homeworld>
<affiliations>%s</affiliations>

Keep it concise, interesting, and true to the character's universe. Focus on their role and significance. Return only the biography text.`

// Generator produces biographies via Claude.
type Generator struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewGenerator creates a Claude-backed biography generator.
func NewGenerator(apiKey, model string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Generator{
		client: &client,
		model:  model,
		logger: logger,
	}
}

// Generate returns a biography for the character. On API failure it logs
// the error and falls back to a deterministic one-liner, so bulk seeding
// never stalls on the text generator.
func (g *Generator) Generate(ctx context.Context, ch models.Character) (string, error) {
	prompt := fmt.Sprintf(bioPromptTemplate,
		xmlutil.Escape(orUnknown(ch.Name, "Unknown Character")),
		xmlutil.Escape(orUnknown(ch.Species, "Unknown Species")),
		xmlutil.Escape(orUnknown(ch.Homeworld, "Unknown Homeworld")),
		xmlutil.Escape(joinOrNone(ch.Affiliations)),
	)

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You are a concise biographer for fictional characters. Output only the biography text."},
		},
	})
	if err != nil {
		g.logger.Warn("biography generation failed, using fallback", "character", ch.ID, "error", err)
		return FallbackBiography(ch), nil
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = strings.TrimSpace(block.Text)
			break
		}
	}
	if text == "" {
		g.logger.Warn("empty biography response, using fallback", "character", ch.ID)
		return FallbackBiography(ch), nil
	}

	g.logger.Debug("generated biography", "character", ch.ID, "length", len(text))
	return text, nil
}

// FallbackBiography is the deterministic one-liner used when generation fails.
func FallbackBiography(ch models.Character) string {
	return fmt.Sprintf("A %s from %s, %s is a character of interest.",
		orUnknown(ch.Species, "being"),
		orUnknown(ch.Homeworld, "parts unknown"),
		orUnknown(ch.Name, "this character"),
	)
}

func orUnknown(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOrNone(affiliations []string) string {
	if len(affiliations) == 0 {
		return "None known"
	}
	return strings.Join(affiliations, ", ")
}
