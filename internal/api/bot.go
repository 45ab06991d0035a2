// Package api exposes the HTTP surface: a health endpoint and the
// webhook that receives chat updates, plus the dispatcher that turns
// updates into commands, settings changes, and voice submissions.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avetisov/charla/internal/pipeline"
	"github.com/avetisov/charla/internal/storage"
	"github.com/avetisov/charla/internal/telegram"
	"github.com/avetisov/charla/internal/topics"
)

const (
	msgWelcome = `👋 **¡Bienvenido a Charla!**

I'm your Spanish practice partner. Every day I'll send you a prompt in English, and you answer with a voice message in Spanish. I'll transcribe it and give you feedback on your mistakes.

• /new — get a practice prompt right now
• /settings — practice time, difficulty, timezone
• /help — how this works

Try /new to get started!`

	msgHelp = `ℹ️ **How it works**

1. You get a daily prompt at your preferred hour (see /settings).
2. Reply with a voice message in Spanish.
3. I transcribe it and send back corrections, an ideal response, and tips.

**Commands**
/new — get a fresh practice prompt
/settings — change practice time, difficulty, or timezone
/stats — your recent practice sessions
/help — this message`

	msgNotRegistered = "Please use /start first so I can set up your practice profile."
	msgNoPrompt      = "You don't have an active prompt yet. Use /new to get one!"
	msgProcessing    = "🎧 Processing your voice message..."
	msgUnknownText   = "Send a voice message to answer your prompt, or use /help to see what I can do."
)

const promptMessage = `🗣️ **Your practice prompt:**
%s

_Reply with a voice message in Spanish._`

// Messenger delivers messages, keyboards, and callback answers.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboard) error
	EditMessage(ctx context.Context, chatID, messageID int64, text string, kb *telegram.InlineKeyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// UserStore is the persistence surface the dispatcher needs.
type UserStore interface {
	UpsertUser(chatID int64, username string) (storage.User, error)
	GetUser(chatID int64) (storage.User, error)
	UpdateSettings(chatID int64, settings storage.Settings) (storage.User, error)
	UpdateLastPrompt(chatID int64, prompt string) error
	RecentSessions(chatID int64, limit int) ([]storage.Session, error)
}

// Claimer marks a submission identifier as in flight.
type Claimer interface {
	Claim(id string) bool
}

// Spawner starts a detached analysis run.
type Spawner interface {
	Spawn(sub pipeline.Submission)
}

// TopicSource supplies material for on-demand prompts.
type TopicSource interface {
	FetchTopic(ctx context.Context) topics.Topic
}

// PromptGenerator produces a practice prompt from a topic.
type PromptGenerator interface {
	GeneratePrompt(ctx context.Context, topic string, level storage.Difficulty) (string, error)
}

// Bot routes inbound updates to command, settings, and voice handling.
type Bot struct {
	store     UserStore
	messenger Messenger
	guard     Claimer
	pipeline  Spawner
	source    TopicSource
	generator PromptGenerator
	logger    *slog.Logger
}

// NewBot creates the update dispatcher.
func NewBot(store UserStore, messenger Messenger, guard Claimer, pl Spawner, source TopicSource, generator PromptGenerator) *Bot {
	return &Bot{
		store:     store,
		messenger: messenger,
		guard:     guard,
		pipeline:  pl,
		source:    source,
		generator: generator,
		logger:    slog.Default(),
	}
}

// HandleUpdate processes one inbound update. Errors are logged, never
// returned; the webhook always acknowledges.
func (b *Bot) HandleUpdate(ctx context.Context, upd telegram.Update) {
	if upd.CallbackQuery != nil {
		b.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}

	msg := upd.Message
	switch {
	case msg.Voice != nil:
		b.handleVoice(ctx, msg)
	case strings.HasPrefix(msg.Text, "/"):
		b.handleCommand(ctx, msg)
	case msg.Text != "":
		b.reply(ctx, msg.Chat.ID, msgUnknownText)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message) {
	command := strings.ToLower(strings.Fields(msg.Text)[0])
	// Strip the @botname suffix used in group chats.
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}

	switch command {
	case "/start":
		b.handleStart(ctx, msg)
	case "/new":
		b.handleNew(ctx, msg.Chat.ID)
	case "/settings":
		b.handleSettings(ctx, msg.Chat.ID)
	case "/stats":
		b.handleStats(ctx, msg.Chat.ID)
	case "/help":
		b.replyMarkdown(ctx, msg.Chat.ID, msgHelp)
	default:
		b.reply(ctx, msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	username := ""
	if msg.From != nil {
		username = msg.From.Username
	}
	if _, err := b.store.UpsertUser(msg.Chat.ID, username); err != nil {
		b.logger.Error("registering user failed", "chat_id", msg.Chat.ID, "error", err)
		b.reply(ctx, msg.Chat.ID, "Sorry, something went wrong. Please try /start again.")
		return
	}
	b.replyMarkdown(ctx, msg.Chat.ID, msgWelcome)
}

func (b *Bot) handleNew(ctx context.Context, chatID int64) {
	user, ok := b.requireUser(ctx, chatID)
	if !ok {
		return
	}

	topic := b.source.FetchTopic(ctx)
	prompt, err := b.generator.GeneratePrompt(ctx, topic.Text, user.Difficulty)
	if err != nil {
		b.logger.Error("generating prompt failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Sorry, I couldn't come up with a prompt right now. Please try again.")
		return
	}
	if err := b.store.UpdateLastPrompt(chatID, prompt); err != nil {
		b.logger.Error("recording prompt failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Sorry, something went wrong. Please try again.")
		return
	}
	b.replyMarkdown(ctx, chatID, fmt.Sprintf(promptMessage, prompt))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	if _, ok := b.requireUser(ctx, chatID); !ok {
		return
	}

	sessions, err := b.store.RecentSessions(chatID, 5)
	if err != nil {
		b.logger.Error("loading sessions failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Sorry, I couldn't load your history right now.")
		return
	}
	if len(sessions) == 0 {
		b.reply(ctx, chatID, "No practice sessions yet. Use /new and send me a voice message!")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 **Your recent practice:**\n\n")
	for _, sess := range sessions {
		fmt.Fprintf(&sb, "• %s — %d mistake(s)\n", sess.CreatedAt.Format("Jan 2"), sess.MistakeCount)
	}
	b.replyMarkdown(ctx, chatID, sb.String())
}

func (b *Bot) handleVoice(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	user, ok := b.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if user.LastPrompt == "" {
		b.reply(ctx, chatID, msgNoPrompt)
		return
	}

	id := fmt.Sprintf("%d:%d", chatID, msg.MessageID)
	if !b.guard.Claim(id) {
		b.logger.Debug("duplicate voice message ignored", "submission", id)
		return
	}

	b.reply(ctx, chatID, msgProcessing)
	b.pipeline.Spawn(pipeline.Submission{
		ID:     id,
		ChatID: chatID,
		FileID: msg.Voice.FileID,
		Prompt: user.LastPrompt,
		Level:  user.Difficulty,
	})
}

// requireUser loads the user and nudges unregistered chats toward /start.
func (b *Bot) requireUser(ctx context.Context, chatID int64) (storage.User, bool) {
	user, err := b.store.GetUser(chatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, msgNotRegistered)
		return storage.User{}, false
	}
	if err != nil {
		b.logger.Error("loading user failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Sorry, something went wrong. Please try again.")
		return storage.User{}, false
	}
	return user, true
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.messenger.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("sending reply failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyMarkdown(ctx context.Context, chatID int64, text string) {
	if err := b.messenger.SendMarkdown(ctx, chatID, text); err != nil {
		b.logger.Error("sending reply failed", "chat_id", chatID, "error", err)
	}
}
