package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"financeflow/internal/domain/model"
	"financeflow/internal/infra/logging"
	"financeflow/internal/usecase"
)

const (
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxWebhookBody = 1 << 20
)

// handleTelegramWebhook acknowledges every handled outcome with {"ok":true}.
// Only malformed payloads (400) and internal failures (500) are reported
// back to Telegram, which redelivers on non-2xx.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	if s.deps.WebhookSecret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.deps.WebhookSecret)) != 1 {
			log.Warn().Msg("webhook secret mismatch")
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&upd); err != nil {
		log.Warn().Err(err).Msg("malformed webhook payload")
		writeJSON(w, http.StatusBadRequest, errorBody("invalid payload"))
		return
	}

	msg := upd.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		writeJSON(w, http.StatusOK, okBody)
		return
	}
	if msg.From == nil || msg.From.ID == 0 {
		log.Warn().Int("update_id", upd.UpdateID).Msg("message without sender")
		writeJSON(w, http.StatusBadRequest, errorBody("missing sender"))
		return
	}
	if s.deps.Ingest == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("ingestion disabled"))
		return
	}

	in := usecase.InboundMessage{
		Source:         model.SourceTelegram,
		ExternalUserID: strconv.FormatInt(msg.From.ID, 10),
		MessageID:      strconv.Itoa(msg.MessageID),
		Text:           msg.Text,
	}
	if msg.Chat != nil {
		in.ChatID = strconv.FormatInt(msg.Chat.ID, 10)
	}
	if msg.Date > 0 {
		in.At = msg.Time().UTC()
	}

	outcome, err := s.deps.Ingest.Ingest(r.Context(), in)
	if err != nil {
		log.Error().Err(err).Str("telegram_user", in.ExternalUserID).Msg("ingest failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	log.Debug().Str("outcome", string(outcome)).Msg("webhook handled")
	writeJSON(w, http.StatusOK, okBody)
}
