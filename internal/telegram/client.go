// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/roulettemon/internal/analytics"
	"github.com/rewired-gh/roulettemon/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	status         func() []models.TableState
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// OnStatus registers the source of table scores reported by /status.
func (c *Client) OnStatus(fn func() []models.TableState) {
	c.status = fn
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	case "status":
		var states []models.TableState
		if c.status != nil {
			states = c.status()
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, formatStatus(states))
		reply.ParseMode = "MarkdownV2"
		c.bot.Send(reply) //nolint:errcheck
	case "help":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Commands: /ping, /status")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, lastErr = c.bot.Send(msg)
		if lastErr == nil {
			return nil
		}
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// Send sends a notification with the tables that crossed the alert threshold.
func (c *Client) Send(alerts []models.Alert) error {
	return c.sendMarkdownV2(formatMessage(alerts))
}

// formatMessage formats alerts into a Telegram MarkdownV2 message.
func formatMessage(alerts []models.Alert) string {
	var b strings.Builder
	b.WriteString("🎰 *Unusual Table Behaviour*\n\n")

	if len(alerts) > 0 {
		dateStr := escapeMarkdownV2(alerts[0].DetectedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "📅 Detected: %s\n\n", dateStr)
	}

	for i, alert := range alerts {
		name := alert.TableName
		if name == "" {
			name = alert.TableID
		}
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, escapeMarkdownV2(name))

		emoji := "🟡"
		switch alert.Label {
		case analytics.LabelStrong:
			emoji = "🔴"
		case analytics.LabelNormal:
			emoji = "⚪"
		}
		scoreStr := escapeMarkdownV2(fmt.Sprintf("%d/100", alert.Score))
		fmt.Fprintf(&b, "   %s *%s* %s\n", emoji, scoreStr, escapeMarkdownV2(alert.Label))

		stats := fmt.Sprintf("n=%d, χ² p=%.4f, z=%+.2f", alert.N, alert.ChiP, alert.ScoreZ)
		fmt.Fprintf(&b, "   📊 %s\n", escapeMarkdownV2(stats))

		for _, flag := range alert.Flags {
			fmt.Fprintf(&b, "   ⚑ %s\n", escapeMarkdownV2(flag))
		}

		if len(alert.HotSpots) > 0 {
			spots := make([]string, len(alert.HotSpots))
			for j, n := range alert.HotSpots {
				spots[j] = strconv.Itoa(n)
			}
			fmt.Fprintf(&b, "   🔥 Hot sectors: %s\n", escapeMarkdownV2(strings.Join(spots, ", ")))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// formatStatus lists the latest score of every analyzed table.
func formatStatus(states []models.TableState) string {
	if len(states) == 0 {
		return "No tables analyzed yet"
	}
	var b strings.Builder
	b.WriteString("*Table status*\n")
	for _, st := range states {
		line := fmt.Sprintf("%s: %d/100 %s (%d cycles)", st.TableID, st.LastScore, st.LastLabel, st.WelfordCount)
		b.WriteString(escapeMarkdownV2(line))
		b.WriteString("\n")
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
