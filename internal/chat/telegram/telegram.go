// Package telegram provides Telegram Bot API integration using go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"movienight/internal/chat"
	"movienight/internal/core"
)

const (
	chatTypeGroup      = "group"
	chatTypeSuperGroup = "supergroup"
)

// Frontend implements the chat.Frontend interface for Telegram.
type Frontend struct {
	config *core.TelegramConfig
	logger *zap.Logger
	bot    *bot.Bot

	messageHandler func(*chat.Message)
}

// NewFrontend creates a new Telegram frontend.
func NewFrontend(config *core.TelegramConfig, logger *zap.Logger) *Frontend {
	return &Frontend{
		config: config,
		logger: logger,
	}
}

// Start initializes the Telegram bot.
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("Telegram frontend is disabled, skipping initialization")
		return nil
	}

	f.logger.Info("Starting Telegram frontend",
		zap.Int64("group_id", f.config.GroupID))

	b, err := bot.New(f.config.BotToken, bot.WithDefaultHandler(f.handleUpdate))
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	f.bot = b

	if f.config.GroupID != 0 {
		if err := f.verifyGroupAccess(ctx); err != nil {
			return fmt.Errorf("failed to verify group access: %w", err)
		}
	}

	f.logger.Info("Telegram frontend started successfully")
	return nil
}

// Listen starts listening for messages and calls the handler for each message.
func (f *Frontend) Listen(ctx context.Context, handler func(*chat.Message)) error {
	if !f.config.Enabled {
		<-ctx.Done()
		return nil
	}

	f.messageHandler = handler
	f.bot.Start(ctx)

	return nil
}

// SendText sends a text message to the specified chat, optionally as a reply.
func (f *Frontend) SendText(ctx context.Context, chatID, replyToID, text string) (string, error) {
	if !f.config.Enabled {
		return "", fmt.Errorf("telegram frontend is disabled")
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	params := &bot.SendMessageParams{
		ChatID: chatIDInt,
		Text:   text,
	}

	// The bot mostly echoes movie page links; Telegram's previews for those
	// get noisy, so suppress them.
	disabled := true
	params.LinkPreviewOptions = &models.LinkPreviewOptions{
		IsDisabled: &disabled,
	}

	if replyToID != "" {
		messageID, parseErr := strconv.Atoi(replyToID)
		if parseErr != nil {
			return "", fmt.Errorf("invalid reply message ID: %w", parseErr)
		}
		params.ReplyParameters = &models.ReplyParameters{
			MessageID: messageID,
		}
	}

	msg, err := f.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// React adds an emoji reaction to a message.
func (f *Frontend) React(ctx context.Context, chatID, msgID string, r chat.Reaction) error {
	if !f.config.Enabled {
		return fmt.Errorf("telegram frontend is disabled")
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	messageID, err := strconv.Atoi(msgID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	_, err = f.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chatIDInt,
		MessageID: messageID,
		Reaction: []models.ReactionType{
			{
				Type: models.ReactionTypeTypeEmoji,
				ReactionTypeEmoji: &models.ReactionTypeEmoji{
					Emoji: string(r),
				},
			},
		},
	})
	if err != nil {
		f.logger.Debug("Failed to set reaction, reactions may not be supported",
			zap.Error(err))
		return nil
	}

	return nil
}

// History is unsupported: the Telegram Bot API only delivers live updates
// and offers no way to page through past group messages.
func (f *Frontend) History(_ context.Context, _ string, _ int) ([]chat.Message, error) {
	return nil, chat.ErrHistoryUnsupported
}

// handleUpdate processes incoming Telegram updates.
func (f *Frontend) handleUpdate(_ context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message != nil {
		f.handleMessage(update.Message)
	}
}

// handleMessage normalizes a Telegram message and hands it to the dispatcher.
func (f *Frontend) handleMessage(msg *models.Message) {
	// Only process messages from the configured group.
	if msg.Chat.ID != f.config.GroupID {
		return
	}

	if msg.From == nil || msg.From.IsBot {
		return
	}

	text := normalizeText(msg.Text)
	command, args, isCommand := parseCommand(text)

	message := chat.Message{
		ID:        strconv.Itoa(msg.ID),
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		Sender:    displayName(msg.From),
		Text:      text,
		IsCommand: isCommand,
		Command:   command,
		Args:      args,
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		Raw:       msg,
	}

	if f.messageHandler != nil {
		f.messageHandler(&message)
	}
}

// verifyGroupAccess checks if the bot has access to the configured group.
func (f *Frontend) verifyGroupAccess(ctx context.Context) error {
	group, err := f.bot.GetChat(ctx, &bot.GetChatParams{
		ChatID: f.config.GroupID,
	})
	if err != nil {
		return fmt.Errorf("cannot access group %d: %w", f.config.GroupID, err)
	}

	if group.Type != chatTypeGroup && group.Type != chatTypeSuperGroup {
		f.logger.Warn("Configured chat is not a group",
			zap.String("chat_type", string(group.Type)))
	}

	f.logger.Info("Bot has access to group",
		zap.String("group_title", group.Title),
		zap.String("group_type", string(group.Type)))

	return nil
}

// normalizeText applies NFKC normalization so lookalike unicode variants in
// pasted URLs match the link patterns.
func normalizeText(text string) string {
	return norm.NFKC.String(strings.TrimSpace(text))
}

// parseCommand splits a leading /command from its arguments. Telegram
// appends the bot name in groups (/stats@movienight_bot), which is stripped.
func parseCommand(text string) (command string, args []string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}

	command = strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}

	return strings.ToLower(command), fields[1:], true
}

// displayName creates a display name for the user.
func displayName(user *models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}

	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}

	return name
}
