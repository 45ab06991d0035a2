package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/avetisov/charla/internal/storage"
	"github.com/avetisov/charla/internal/telegram"
)

const msgSettingsMenu = "⚙️ Settings. What would you like to change?"

var practiceHours = []int{7, 8, 9, 10, 12, 18, 19, 20}

var timezoneChoices = []string{
	"UTC",
	"Europe/Madrid",
	"Europe/London",
	"America/New_York",
	"America/Mexico_City",
	"America/Argentina/Buenos_Aires",
}

func settingsMenuKeyboard() *telegram.InlineKeyboard {
	kb := &telegram.InlineKeyboard{}
	kb.Row(telegram.Button{Text: "⏰ Practice time", CallbackData: "settings:time"})
	kb.Row(telegram.Button{Text: "📊 Difficulty", CallbackData: "settings:difficulty"})
	kb.Row(telegram.Button{Text: "🌍 Timezone", CallbackData: "settings:timezone"})
	return kb
}

func hourKeyboard() *telegram.InlineKeyboard {
	kb := &telegram.InlineKeyboard{}
	row := make([]telegram.Button, 0, 4)
	for _, hour := range practiceHours {
		row = append(row, telegram.Button{
			Text:         fmt.Sprintf("%02d:00", hour),
			CallbackData: fmt.Sprintf("time:%d", hour),
		})
		if len(row) == 4 {
			kb.Row(row...)
			row = make([]telegram.Button, 0, 4)
		}
	}
	if len(row) > 0 {
		kb.Row(row...)
	}
	return kb
}

func difficultyKeyboard() *telegram.InlineKeyboard {
	kb := &telegram.InlineKeyboard{}
	kb.Row(telegram.Button{Text: "🌱 Beginner", CallbackData: "difficulty:beginner"})
	kb.Row(telegram.Button{Text: "🌿 Intermediate", CallbackData: "difficulty:intermediate"})
	kb.Row(telegram.Button{Text: "🌳 Advanced", CallbackData: "difficulty:advanced"})
	return kb
}

func timezoneKeyboard() *telegram.InlineKeyboard {
	kb := &telegram.InlineKeyboard{}
	for _, tz := range timezoneChoices {
		kb.Row(telegram.Button{Text: tz, CallbackData: "timezone:" + tz})
	}
	return kb
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) {
	if _, ok := b.requireUser(ctx, chatID); !ok {
		return
	}
	if err := b.messenger.SendKeyboard(ctx, chatID, msgSettingsMenu, settingsMenuKeyboard()); err != nil {
		b.logger.Error("sending settings menu failed", "chat_id", chatID, "error", err)
	}
}

// handleCallback routes inline keyboard presses. Data is either a
// submenu selector (settings:*) or a value pick (time:*, difficulty:*,
// timezone:*).
func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.Message == nil {
		b.answer(ctx, cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	action, value, _ := strings.Cut(cb.Data, ":")
	switch action {
	case "settings":
		b.showSubmenu(ctx, cb, value)
	case "time":
		b.applyTime(ctx, cb, chatID, messageID, value)
	case "difficulty":
		b.applyDifficulty(ctx, cb, chatID, messageID, value)
	case "timezone":
		b.applyTimezone(ctx, cb, chatID, messageID, value)
	default:
		b.logger.Warn("unknown callback", "data", cb.Data)
		b.answer(ctx, cb.ID, "")
	}
}

func (b *Bot) showSubmenu(ctx context.Context, cb *telegram.CallbackQuery, submenu string) {
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	var text string
	var kb *telegram.InlineKeyboard
	switch submenu {
	case "time":
		text = "⏰ When should I send your daily prompt?"
		kb = hourKeyboard()
	case "difficulty":
		text = "📊 Pick your level:"
		kb = difficultyKeyboard()
	case "timezone":
		text = "🌍 Pick your timezone:"
		kb = timezoneKeyboard()
	default:
		b.answer(ctx, cb.ID, "")
		return
	}

	b.answer(ctx, cb.ID, "")
	if err := b.messenger.EditMessage(ctx, chatID, messageID, text, kb); err != nil {
		b.logger.Error("showing submenu failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) applyTime(ctx context.Context, cb *telegram.CallbackQuery, chatID, messageID int64, value string) {
	hour, err := strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		b.answer(ctx, cb.ID, "Invalid hour")
		return
	}
	if _, err := b.store.UpdateSettings(chatID, storage.Settings{PreferredHour: &hour}); err != nil {
		b.logger.Error("updating practice time failed", "chat_id", chatID, "error", err)
		b.answer(ctx, cb.ID, "Something went wrong, please try again")
		return
	}
	b.answer(ctx, cb.ID, "✅ Practice time updated")
	b.confirm(ctx, chatID, messageID, fmt.Sprintf("⏰ Daily prompt set to %02d:00.", hour))
}

func (b *Bot) applyDifficulty(ctx context.Context, cb *telegram.CallbackQuery, chatID, messageID int64, value string) {
	level := storage.Difficulty(value)
	if !storage.ValidDifficulty(level) {
		b.answer(ctx, cb.ID, "Invalid level")
		return
	}
	if _, err := b.store.UpdateSettings(chatID, storage.Settings{Difficulty: &level}); err != nil {
		b.logger.Error("updating difficulty failed", "chat_id", chatID, "error", err)
		b.answer(ctx, cb.ID, "Something went wrong, please try again")
		return
	}
	b.answer(ctx, cb.ID, "✅ Difficulty updated")
	b.confirm(ctx, chatID, messageID, fmt.Sprintf("📊 Difficulty set to %s.", level))
}

func (b *Bot) applyTimezone(ctx context.Context, cb *telegram.CallbackQuery, chatID, messageID int64, value string) {
	valid := false
	for _, tz := range timezoneChoices {
		if tz == value {
			valid = true
			break
		}
	}
	if !valid {
		b.answer(ctx, cb.ID, "Invalid timezone")
		return
	}
	if _, err := b.store.UpdateSettings(chatID, storage.Settings{Timezone: &value}); err != nil {
		b.logger.Error("updating timezone failed", "chat_id", chatID, "error", err)
		b.answer(ctx, cb.ID, "Something went wrong, please try again")
		return
	}
	b.answer(ctx, cb.ID, "✅ Timezone updated")
	b.confirm(ctx, chatID, messageID, fmt.Sprintf("🌍 Timezone set to %s.", value))
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.messenger.AnswerCallback(ctx, callbackID, text); err != nil {
		b.logger.Debug("answering callback failed", "error", err)
	}
}

func (b *Bot) confirm(ctx context.Context, chatID, messageID int64, text string) {
	if err := b.messenger.EditMessage(ctx, chatID, messageID, text, nil); err != nil {
		b.logger.Error("confirming settings change failed", "chat_id", chatID, "error", err)
	}
}
