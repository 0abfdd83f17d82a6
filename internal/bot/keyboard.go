package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"astrobot/internal/picker"
)

// gridMarkup turns a picker grid into an inline keyboard. Enabled items get
// "<widget>:<item>" callback data, inert ones get ignoreData
func gridMarkup(widgetID string, g picker.Grid) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(g.Rows))
	for _, row := range g.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, item := range row {
			data := ignoreData
			if item.Enabled && item.ID != "" {
				data = widgetID + ":" + item.ID
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(item.Label, data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pickerMarkup is gridMarkup plus the buttons a widget carries below its grid
func pickerMarkup(widgetID string, g picker.Grid) tgbotapi.InlineKeyboardMarkup {
	markup := gridMarkup(widgetID, g)
	if widgetID == widgetReportStart {
		markup.InlineKeyboard = append(markup.InlineKeyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 За последние 30 дней", cmdReport+":default"),
		))
	}
	return markup
}

// splitCallback separates the widget prefix from the item identifier
func splitCallback(data string) (widgetID, itemID string, ok bool) {
	return strings.Cut(data, ":")
}

// sendPicker renders a widget for a session and sends it as a new message.
// Returns the ID of the sent message
func (b *Bot) sendPicker(ctx context.Context, chatID int64, session, widgetID, text string) (int, error) {
	w := b.widgets[widgetID]
	grid, err := w.Render(ctx, session)
	if err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = pickerMarkup(widgetID, grid)
	sent, err := b.sendMessage(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// confirmMarkup builds a one-row keyboard of two buttons
func confirmMarkup(yesText, yesData, noText, noData string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(yesText, yesData),
			tgbotapi.NewInlineKeyboardButtonData(noText, noData),
		),
	)
}
