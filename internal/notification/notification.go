package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"liquidity-matrix-bot/internal/analysis"
	"liquidity-matrix-bot/internal/strategy"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyPlan     NotificationType = "plan"
	NotifySnapshot NotificationType = "snapshot"
	NotifyError    NotificationType = "error"
	NotifyInfo     NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Price     float64
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendPlanAlert sends a triggered trade plan alert.
func (m *Manager) SendPlanAlert(plan *strategy.TradePlan, price float64) error {
	emoji := "🟢"
	if plan.Side == strategy.SideShort {
		emoji = "🔴"
	}

	return m.Send(&Notification{
		Type:  NotifyPlan,
		Title: fmt.Sprintf("%s %s %s setup triggered", emoji, plan.Symbol, plan.Side),
		Message: fmt.Sprintf(
			"Price %.4f touched entry zone\nEntry: %.4f\nSL: %.4f\nTP: %.4f (TP1: %.4f)\nConfidence: %.0f%%\nLogic: %s",
			price, plan.Entry, plan.StopLoss, plan.TakeProfit, plan.TakeProfit1,
			plan.Confidence*100, plan.Logic,
		),
		Symbol:    plan.Symbol,
		Price:     price,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"plan_id":     plan.ID,
			"side":        string(plan.Side),
			"entry":       plan.Entry,
			"stop_loss":   plan.StopLoss,
			"take_profit": plan.TakeProfit,
			"confidence":  plan.Confidence,
		},
	})
}

// SendLiquiditySnapshot sends the pre-session liquidity zone summary.
func (m *Manager) SendLiquiditySnapshot(symbol string, zone *analysis.LiquidityZone) error {
	return m.Send(&Notification{
		Type:  NotifySnapshot,
		Title: fmt.Sprintf("📊 %s Liquidity", symbol),
		Message: fmt.Sprintf("Low: %.4f\nHigh: %.4f\nLast: %.4f",
			zone.RecentLow, zone.RecentHigh, zone.LastClose),
		Symbol:    symbol,
		Price:     zone.LastClose,
		Timestamp: time.Now(),
	})
}

// SendPreSession announces the pre-session scan kicking off.
func (m *Manager) SendPreSession(localTime string) error {
	return m.Send(&Notification{
		Type:      NotifyInfo,
		Title:     "🕒 Pre-Session",
		Message:   fmt.Sprintf("Local time: %s", localTime),
		Timestamp: time.Now(),
	})
}

// SendError sends an advisory error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	// Create Discord embed
	color := 0x00FF00 // Green
	if notification.Type == NotifyError {
		color = 0xFF0000 // Red
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	if notification.Symbol != "" {
		fields := []map[string]interface{}{
			{"name": "Symbol", "value": notification.Symbol, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.4f", notification.Price), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
