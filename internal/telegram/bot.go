package telegram

import (
	"context"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"review-bot/internal/dialog"
)

const (
	reportCmd  = "report"
	reportJSON = "json"
)

// EventSink accepts dialog events. *dialog.Controller satisfies it.
type EventSink interface {
	Submit(ctx context.Context, ev dialog.Event)
}

// Reporter renders the admin report on demand, as indented JSON when asJSON
// is set.
type Reporter func(ctx context.Context, asJSON bool) (string, error)

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	sink        EventSink
	adminUserID int64
	reporter    Reporter

	reports sync.WaitGroup
}

// NewAPI authorizes against the Bot API.
func NewAPI(botToken string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(botToken)
}

func New(api *tgbotapi.BotAPI, sink EventSink, adminUserID int64, reporter Reporter) *Bot {
	return &Bot{
		api:         api,
		s:           botAPISender{api: api},
		sink:        sink,
		adminUserID: adminUserID,
		reporter:    reporter,
	}
}

// Start long-polls updates until ctx is cancelled, then waits for running
// reports.
func (b *Bot) Start(ctx context.Context) {
	defer b.reports.Wait()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Printf("bot @%s started", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleIncomingMessage(ctx, update.Message)
		return
	}
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	env := dialog.Envelope{SessionID: msg.Chat.ID, SubmitterID: msg.From.ID}

	if msg.IsCommand() {
		if msg.Command() == reportCmd {
			b.handleReport(ctx, msg)
			return
		}
		b.sink.Submit(ctx, dialog.Command{Envelope: env, Name: msg.Command()})
		return
	}
	b.sink.Submit(ctx, dialog.Text{Envelope: env, Body: msg.Text})
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("failed to answer callback %s: %v", cb.ID, err)
	}
	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return
	}
	b.sink.Submit(ctx, dialog.Action{
		Envelope: dialog.Envelope{SessionID: cb.Message.Chat.ID, SubmitterID: cb.From.ID},
		Token:    cb.Data,
	})
}

// handleReport answers /report off the update loop so a slow store query
// does not hold up other chats.
func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	if b.adminUserID == 0 || msg.From.ID != b.adminUserID || b.reporter == nil {
		log.Printf("report requested by non-admin %d", msg.From.ID)
		return
	}
	chatID := msg.Chat.ID
	asJSON := strings.EqualFold(strings.TrimSpace(msg.CommandArguments()), reportJSON)

	b.reports.Add(1)
	go func() {
		defer b.reports.Done()
		text, err := b.reporter(ctx, asJSON)
		if err != nil {
			log.Printf("report failed: %v", err)
			text = "report failed: " + err.Error()
		}
		b.sendMessage(chatID, text)
	}()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
