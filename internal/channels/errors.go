// Package channels holds delivery destinations and their shared error types.
package channels

import (
	"fmt"
	"time"

	"github.com/aatumaykin/quotebot/internal/logger"
)

// ErrorDetails - универсальный интерфейс для детализации ошибок каналов доставки
type ErrorDetails interface {
	// Error возвращает текстовое описание ошибки
	Error() string

	// IsRetryable указывает, можно ли повторить отправку
	IsRetryable() bool

	// RetryAfter возвращает задержку перед повторной отправкой
	RetryAfter() time.Duration

	// LogFields возвращает поля для структурированного логирования
	LogFields() []logger.Field
}

// TelegramErrorDetails - детализация ошибки Telegram API
type TelegramErrorDetails struct {
	ErrorCode     int       // Код ошибки (400, 429, 403 и т.д.)
	Description   string    // Описание ошибки от Telegram
	RetryAfterSec int       // Задержка в секундах (для rate limiting)
	ChatID        int64     // ID чата
	Timestamp     time.Time // Время ошибки
	Err           error     // Исходная ошибка
}

var _ ErrorDetails = (*TelegramErrorDetails)(nil)

// Error возвращает текстовое описание ошибки
func (d *TelegramErrorDetails) Error() string {
	return fmt.Sprintf("telegram error %d: %s", d.ErrorCode, d.Description)
}

// Unwrap возвращает исходную ошибку
func (d *TelegramErrorDetails) Unwrap() error {
	return d.Err
}

// IsRetryable проверяет, можно ли повторить отправку
func (d *TelegramErrorDetails) IsRetryable() bool {
	// Rate limiting (429) и временные ошибки можно повторить
	return d.ErrorCode == 429 || (d.ErrorCode >= 500 && d.ErrorCode < 600)
}

// RetryAfter возвращает задержку перед повторной отправкой
func (d *TelegramErrorDetails) RetryAfter() time.Duration {
	if d.RetryAfterSec > 0 {
		return time.Duration(d.RetryAfterSec) * time.Second
	}
	// Для временных ошибок - дефолтная задержка
	if d.ErrorCode >= 500 && d.ErrorCode < 600 {
		return 5 * time.Second
	}
	return 0
}

// LogFields возвращает поля для структурированного логирования
func (d *TelegramErrorDetails) LogFields() []logger.Field {
	return []logger.Field{
		{Key: "error_code", Value: d.ErrorCode},
		{Key: "error_description", Value: d.Description},
		{Key: "retry_after", Value: d.RetryAfterSec},
		{Key: "chat_id", Value: d.ChatID},
	}
}
