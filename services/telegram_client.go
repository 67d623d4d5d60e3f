package services

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Messenger отправляет текстовые сообщения во внешний канал
type Messenger interface {
	SendMessage(chatID string, message string) error
}

// TelegramClient представляет клиент для работы с Telegram Bot API
type TelegramClient struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramClient создает новый экземпляр Telegram клиента
func NewTelegramClient(token string) (*TelegramClient, error) {
	if token == "" {
		return nil, fmt.Errorf("не задан токен Telegram бота")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram бота: %w", err)
	}

	// В продакшене отключаем debug
	bot.Debug = false

	log.WithField("bot", bot.Self.UserName).Info("Telegram бот авторизован")
	return &TelegramClient{bot: bot}, nil
}

// SendMessage отправляет HTML сообщение в чат
func (tc *TelegramClient) SendMessage(chatID string, message string) error {
	chatIDInt, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatIDInt, message)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := tc.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	return nil
}

// IsHealthy проверяет доступность Telegram API
func (tc *TelegramClient) IsHealthy() bool {
	_, err := tc.bot.GetMe()
	return err == nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("неверный chat ID: %s", chatID)
	}
	return id, nil
}
