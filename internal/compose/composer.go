// Package compose builds personalized outreach messages. A prompt is
// assembled from the knowledge base, the recipient's profile, and one
// randomly chosen template line, then handed to the completion API; any
// failure falls back to the template line itself, so composition never
// fails a send.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/mvidalr/gramreach/internal/content"
)

// fallbackGreeting is used when the template file yields no lines.
const fallbackGreeting = "Hey! How are you?"

// systemInstruction is the fixed instruction sent with every completion.
const systemInstruction = "You are an assistant that writes short, natural, personalized direct messages for social media outreach."

// Composer generates one message per recipient.
type Composer struct {
	library *content.Library
	llm     CompletionClient
	logger  *slog.Logger

	// pick chooses a template index; overridable in tests.
	pick func(n int) int
}

// NewComposer creates a composer over the content library and completion
// client.
func NewComposer(library *content.Library, llm CompletionClient, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		library: library,
		llm:     llm,
		logger:  logger.With("component", "composer"),
		pick:    rand.Intn,
	}
}

// Compose returns a message for the recipient. The content files are
// reloaded on every call. On completion failure the chosen template line is
// returned unmodified; Compose never propagates an error.
func (c *Composer) Compose(ctx context.Context, name, biography string) string {
	templates := c.library.Templates()
	knowledge := c.library.KnowledgeBase()

	template := fallbackGreeting
	if len(templates) > 0 {
		template = templates[c.pick(len(templates))]
	}

	prompt := buildPrompt(knowledge, name, biography, template)

	text, err := c.llm.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		c.logger.Warn("completion failed, using template line", "recipient", name, "error", err)
		return template
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("completion returned empty text, using template line", "recipient", name)
		return template
	}
	return strings.TrimSpace(text)
}

// buildPrompt embeds the knowledge base, recipient profile, and suggested
// template line into the generation prompt.
func buildPrompt(knowledge, name, biography, template string) string {
	return fmt.Sprintf(`Context:
%s

User profile:
Name: %s
Bio: %s

Suggested message:
'%s'

Based on the context and the suggested message, write a personalized and natural message for this person.`,
		knowledge, name, biography, template)
}
