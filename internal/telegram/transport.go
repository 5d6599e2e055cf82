package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"review-bot/internal/dialog"
)

// Transport delivers dialog messages through the Bot API.
type Transport struct {
	s         sender
	parseMode string
}

func NewTransport(api *tgbotapi.BotAPI, parseMode string) *Transport {
	return &Transport{s: botAPISender{api: api}, parseMode: parseMode}
}

func (t *Transport) Send(_ context.Context, out dialog.Outbound) error {
	msg := tgbotapi.NewMessage(out.SessionID, t.escapeIfNeeded(out.Text))
	msg.ParseMode = t.parseMode

	switch {
	case len(out.Inline) > 0:
		msg.ReplyMarkup = inlineKeyboard(out.Inline)
	case len(out.Menu) > 0:
		msg.ReplyMarkup = menuKeyboard(out.Menu)
	case out.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}

	if _, err := t.s.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", out.SessionID, err)
	}
	return nil
}

// SendText sends a plain message outside any dialog.
func (t *Transport) SendText(chatID int64, text string) error {
	return t.Send(context.Background(), dialog.Outbound{SessionID: chatID, Text: text})
}

func (t *Transport) escapeIfNeeded(s string) string {
	if t.parseMode == tgbotapi.ModeHTML {
		return html.EscapeString(s)
	}
	return s
}

func inlineKeyboard(rows [][]dialog.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Token))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

func menuKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	kb := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		kb = append(kb, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(kb...)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = false
	return markup
}
