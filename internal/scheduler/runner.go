// Package scheduler delivers the daily practice prompt. A loop ticks
// once a minute, and a runner sends the morning message to every user
// whose preferred hour matches and who has not been prompted today.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avetisov/charla/internal/storage"
	"github.com/avetisov/charla/internal/topics"
)

const morningMessage = `🌅 **¡Buenos días!** Time for your daily Spanish practice!

🗣️ **Today's prompt:**
%s

_Reply with a voice message in Spanish._`

// UserStore selects due users and records deliveries.
type UserStore interface {
	UsersDueForHour(hour int) ([]storage.User, error)
	UpdateLastPrompt(chatID int64, prompt string) error
}

// TopicSource supplies conversation material for prompt generation.
type TopicSource interface {
	FetchTopic(ctx context.Context) topics.Topic
}

// PromptGenerator produces a practice prompt from a topic.
type PromptGenerator interface {
	GeneratePrompt(ctx context.Context, topic string, level storage.Difficulty) (string, error)
}

// MarkdownSender delivers the morning message.
type MarkdownSender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Runner sends one delivery batch. One user failing never affects the rest.
type Runner struct {
	store     UserStore
	source    TopicSource
	generator PromptGenerator
	sender    MarkdownSender
	logger    *slog.Logger
}

// NewRunner creates a batch runner over the given collaborators.
func NewRunner(store UserStore, source TopicSource, generator PromptGenerator, sender MarkdownSender) *Runner {
	return &Runner{
		store:     store,
		source:    source,
		generator: generator,
		sender:    sender,
		logger:    slog.Default(),
	}
}

// DeliverDue sends the morning prompt to every user due at hour and
// returns how many deliveries succeeded. Per-user failures are logged
// and skipped; only the user query itself can fail the batch.
func (r *Runner) DeliverDue(ctx context.Context, hour int) (int, error) {
	users, err := r.store.UsersDueForHour(hour)
	if err != nil {
		return 0, fmt.Errorf("selecting due users: %w", err)
	}
	if len(users) == 0 {
		return 0, nil
	}

	r.logger.Info("delivery batch starting", "hour", hour, "users", len(users))

	delivered := 0
	for _, user := range users {
		if err := r.deliver(ctx, user); err != nil {
			r.logger.Error("delivery failed", "chat_id", user.ChatID, "error", err)
			continue
		}
		delivered++
	}

	r.logger.Info("delivery batch finished", "hour", hour, "delivered", delivered, "failed", len(users)-delivered)
	return delivered, nil
}

func (r *Runner) deliver(ctx context.Context, user storage.User) error {
	topic := r.source.FetchTopic(ctx)

	prompt, err := r.generator.GeneratePrompt(ctx, topic.Text, user.Difficulty)
	if err != nil {
		return fmt.Errorf("generating prompt: %w", err)
	}

	// Record before sending so a send failure cannot double-prompt the
	// user on the next tick.
	if err := r.store.UpdateLastPrompt(user.ChatID, prompt); err != nil {
		return fmt.Errorf("recording delivery: %w", err)
	}

	if err := r.sender.SendMarkdown(ctx, user.ChatID, fmt.Sprintf(morningMessage, prompt)); err != nil {
		return fmt.Errorf("sending morning message: %w", err)
	}
	return nil
}
