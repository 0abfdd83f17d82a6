package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendMessage sends a message and logs failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	if b.api == nil {
		return tgbotapi.Message{}, nil // For testing
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", msg.ChatID))
	}
	return sent, err
}

// sendText sends a plain text message
func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// request sends a method whose result is not a message (edits, callback answers)
func (b *Bot) request(c tgbotapi.Chattable) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Request(c); err != nil {
		b.logger.Warn("Telegram request failed", zap.Error(err))
	}
}

// editText replaces the text of a message and drops its keyboard
func (b *Bot) editText(chatID int64, messageID int, text string) {
	b.request(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

// editTextWithMarkup replaces the text and keyboard of a message
func (b *Bot) editTextWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	b.request(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
}

// sessionKey identifies the picker states of one user in one chat
func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// getState returns the conversation of a user
func (b *Bot) getState(userID int64) (*ConversationState, bool) {
	b.statesMu.RLock()
	defer b.statesMu.RUnlock()
	state, ok := b.states[userID]
	return state, ok
}

// startConversation replaces any conversation of a user with a new one
func (b *Bot) startConversation(userID int64, command string, step int) *ConversationState {
	state := &ConversationState{
		Command: command,
		Step:    step,
		Data:    make(map[string]interface{}),
	}
	b.statesMu.Lock()
	b.states[userID] = state
	b.statesMu.Unlock()
	return state
}

// endConversation forgets the conversation and the picker states that belong to it
func (b *Bot) endConversation(ctx context.Context, chatID, userID int64) {
	b.statesMu.Lock()
	delete(b.states, userID)
	b.statesMu.Unlock()

	session := sessionKey(chatID, userID)
	for id, w := range b.widgets {
		if err := w.Reset(ctx, session); err != nil {
			b.logger.Warn("Failed to reset picker", zap.Error(err), zap.String("widget", id))
		}
	}
}

// userLock is a per-user mutex shared by the updates waiting on it
type userLock struct {
	mu   sync.Mutex
	refs int
}

// lockUser serialises update handling per user. The entry is dropped once
// no update holds or waits for it.
func (b *Bot) lockUser(userID int64) func() {
	b.userLocksMu.Lock()
	l, ok := b.userLocks[userID]
	if !ok {
		l = &userLock{}
		b.userLocks[userID] = l
	}
	l.refs++
	b.userLocksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		b.userLocksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(b.userLocks, userID)
		}
		b.userLocksMu.Unlock()
	}
}

// isAllowed reports whether a user may talk to the bot
func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || b.allowedUsers[userID]
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUsers[userID]
}
