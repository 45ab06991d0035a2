package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avetisov/charla/internal/telegram"
)

const maxWebhookBodySize = 1 << 20 // 1MB

// UpdateHandler consumes one decoded webhook update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd telegram.Update)
}

// NewHandler builds the HTTP surface. The webhook path embeds the bot
// token, which is how Telegram webhooks are commonly authenticated: a
// request with the wrong token gets a 404.
func NewHandler(bot UpdateHandler, botToken string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/webhook/{token}", handleWebhook(bot, botToken))

	return r
}

func handleWebhook(bot UpdateHandler, botToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "token") != botToken {
			http.NotFound(w, r)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
		defer r.Body.Close()

		var upd telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			slog.Warn("discarding malformed webhook body", "error", err)
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		bot.HandleUpdate(r.Context(), upd)
		w.WriteHeader(http.StatusOK)
	}
}
