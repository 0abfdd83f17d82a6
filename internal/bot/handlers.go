package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendText(message.Chat.ID, "Произошла ошибка. Пожалуйста, попробуйте ещё раз.")
		}
	}()

	userID := message.From.ID
	ctx := context.Background()

	// Check if user is in a conversation
	if state, ok := b.getState(userID); ok {
		if message.IsCommand() {
			// Any command interrupts an ongoing conversation
			b.endConversation(ctx, message.Chat.ID, userID)
			if message.Command() == "cancel" {
				b.sendText(message.Chat.ID, "Действие отменено.")
				return
			}
		} else {
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if !message.IsCommand() {
		b.sendText(message.Chat.ID, "Используйте /start, чтобы увидеть список команд.")
		return
	}

	switch message.Command() {
	case "start", "help":
		b.handleStart(message)
	case cmdNatal:
		b.handleNatalStart(ctx, message)
	case "profile":
		b.handleProfile(ctx, message)
	case cmdBooking:
		b.handleBookingStart(ctx, message)
	case cmdSchedule:
		b.handleScheduleStart(ctx, message)
	case cmdReport:
		b.handleReportStart(ctx, message)
	case "cancel":
		b.sendText(message.Chat.ID, "Нечего отменять.")
	default:
		b.sendText(message.Chat.ID, "Неизвестная команда. Используйте /start, чтобы увидеть список команд.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	// Answer the callback query to remove loading state
	b.request(tgbotapi.NewCallback(query.ID, ""))

	if query.Message == nil || query.Data == ignoreData {
		return
	}

	userID := query.From.ID
	ctx := withCallback(context.Background(), query)

	state, ok := b.getState(userID)
	if !ok {
		b.logger.Debug("Callback without conversation",
			zap.Int64("user_id", userID),
			zap.String("callback_data", query.Data),
		)
		return
	}

	prefix, item, ok := splitCallback(query.Data)
	if !ok {
		return
	}

	if _, isWidget := b.widgets[prefix]; isWidget {
		b.handlePickerCallback(ctx, query, state, prefix, item)
		return
	}

	switch prefix {
	case cmdNatal:
		b.handleNatalCallback(ctx, query, state, item)
	case cmdBooking:
		b.handleBookingCallback(ctx, query, state, item)
	case cmdReport:
		b.handleReportCallback(ctx, query, state, item)
	}
}
