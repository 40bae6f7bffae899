package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService sends manager notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// FormatAmount formats an order amount in rubles with thousand separators.
func FormatAmount(amount decimal.Decimal) string {
	whole := amount.Truncate(0).Abs().String()

	var result strings.Builder
	if amount.IsNegative() {
		result.WriteString("-")
	}
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			result.WriteString(" ")
		}
		result.WriteRune(digit)
	}
	return result.String() + " ₽"
}

// NewClientNotification describes a client created from an unknown order code.
type NewClientNotification struct {
	ClientName   string
	OrderCode    string
	Amount       decimal.Decimal
	WelcomeBreed string
	Actor        string
}

// NotifyNewClient tells managers that an order code created a new client.
func (s *TelegramService) NotifyNewClient(n NewClientNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	welcome := "—"
	if n.WelcomeBreed != "" {
		welcome = n.WelcomeBreed
	}

	message := fmt.Sprintf(`<b>🧲 НОВЫЙ УЧАСТНИК</b>
<b>👤 Клиент:</b> %s
<b>📋 Заказ:</b> %s
<b>💰 Сумма:</b> %s
<b>🎁 Приветственный магнит:</b> %s
<b>🧑‍💼 Менеджер:</b> %s
━━━━━━━━━━━━━━━━━━`,
		n.ClientName,
		n.OrderCode,
		FormatAmount(n.Amount),
		welcome,
		n.Actor,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyStockDepleted tells managers that a breed ran out of stock.
func (s *TelegramService) NotifyStockDepleted(breed string) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>⚠️ МАГНИТЫ ЗАКОНЧИЛИСЬ</b>
<b>🪵 Порода:</b> %s
<i>Пополните остаток в разделе склада</i>`, breed)

	return s.SendToAdmin(strings.TrimSpace(message))
}
