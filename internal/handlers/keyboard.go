package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/jobstore"
)

const callbackPrefix = "st"

const (
	actionRetry  = "r"
	actionRender = "p"
)

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}

	action, jobID, style, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	chatID := q.Message.Chat.ID

	job, err := h.jobs.Get(ctx, jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		_ = h.tg.AnswerCallback(q.ID, "This product has expired. Please send it again.", true)
		return nil
	}
	if err != nil {
		h.logger.Error("load job failed", "job_id", jobID, "err", err)
		_ = h.tg.AnswerCallback(q.ID, "Something went wrong, please try again.", true)
		return nil
	}

	switch action {
	case actionRetry:
		_ = h.tg.AnswerCallback(q.ID, fmt.Sprintf("Retrying style %d…", style+1), false)
		return h.retry(ctx, chatID, job, style)
	case actionRender:
		_ = h.tg.AnswerCallback(q.ID, "Rendering…", false)
		return h.sendRender(chatID, job.Product, job.Copy, style, styleCaption(style, job.Copy.Variant(style)))
	}
	return nil
}

func retryKeyboard(jobID string, styles []int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(styles))
	for _, style := range styles {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔁 Retry style %d", style+1), cb(actionRetry, jobID, style)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🖼 Render style %d", style+1), cb(actionRender, jobID, style)),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cb(action, jobID string, style int) string {
	return fmt.Sprintf("%s:%s:%s:%d", callbackPrefix, action, jobID, style)
}

func parseCallback(data string) (action, jobID string, style int, ok bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) != 4 || parts[0] != callbackPrefix {
		return "", "", 0, false
	}
	if parts[1] != actionRetry && parts[1] != actionRender {
		return "", "", 0, false
	}
	style, err := strconv.Atoi(parts[3])
	if err != nil || style < 0 || style >= imagegen.StyleCount || parts[2] == "" {
		return "", "", 0, false
	}
	return parts[1], parts[2], style, true
}
