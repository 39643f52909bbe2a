package messenger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/config"
	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/usecase"
)

// TelegramMessenger bridges Telegram chats onto the inbound pipeline with
// concurrent polling, and delivers outbound messages as inline-keyboard
// messages. Chat ids double as customer ids.
type TelegramMessenger struct {
	bot      *tgbotapi.BotAPI
	cfg      *config.BotConfig
	pipeline usecase.PipelineUseCase
	log      *zerolog.Logger

	// updateWorkers is how many goroutines will concurrently process updates.
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewTelegramMessenger(cfg *config.BotConfig, pipeline usecase.PipelineUseCase, logger *zerolog.Logger) (*TelegramMessenger, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	l := logger.With().Str("component", "telegram").Logger()
	return &TelegramMessenger{
		bot:           bot,
		cfg:           cfg,
		pipeline:      pipeline,
		log:           &l,
		updateWorkers: workers,
	}, nil
}

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (t *TelegramMessenger) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	t.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < t.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := t.handleUpdate(ctx, update); err != nil {
						t.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	// Dispatcher goroutine: feed updates into updateChan
	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	t.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (t *TelegramMessenger) StopPolling() {
	if t.cancelPolling != nil {
		t.cancelPolling()
	}
}

// handleUpdate maps one Telegram update to an inbound event. Update ids
// are Telegram-unique, which gives the pipeline a stable event id for
// replay suppression.
func (t *TelegramMessenger) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ev, ok := t.toEvent(update)
	if !ok {
		return nil
	}
	err := t.pipeline.ProcessInbound(ctx, ev)
	if errors.Is(err, domain.ErrDuplicateEvent) {
		return nil
	}
	return err
}

func (t *TelegramMessenger) toEvent(update tgbotapi.Update) (model.InboundEvent, bool) {
	eventID := fmt.Sprintf("tg-%d", update.UpdateID)

	if cb := update.CallbackQuery; cb != nil && cb.Message != nil {
		// Button taps arrive as callback queries; the data is the reply id.
		ack := tgbotapi.NewCallback(cb.ID, "")
		_, _ = t.bot.Request(ack)
		return model.InboundEvent{
			EventID:    eventID,
			CustomerID: strconv.FormatInt(cb.Message.Chat.ID, 10),
			ReplyID:    cb.Data,
			ReceivedAt: time.Now().UTC(),
		}, true
	}

	if msg := update.Message; msg != nil && msg.Text != "" {
		return model.InboundEvent{
			EventID:    eventID,
			CustomerID: strconv.FormatInt(msg.Chat.ID, 10),
			Text:       msg.Text,
			ReceivedAt: time.Now().UTC(),
		}, true
	}
	return model.InboundEvent{}, false
}

// Send delivers one outbound message, rendering button rows as an inline
// keyboard.
func (t *TelegramMessenger) Send(ctx context.Context, m model.OutboundMessage) error {
	chatID, err := strconv.ParseInt(m.CustomerID, 10, 64)
	if err != nil {
		return fmt.Errorf("customer id %q is not a telegram chat id: %w", m.CustomerID, domain.ErrInvalidArgument)
	}

	msg := tgbotapi.NewMessage(chatID, m.Text)
	if len(m.Buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Buttons))
		for _, row := range m.Buttons {
			btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.ReplyID))
			}
			rows = append(rows, btns)
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	_, err = t.bot.Send(msg)
	return err
}
