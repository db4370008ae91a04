// Package telegram delivers quotes to a single Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aatumaykin/quotebot/internal/channels"
	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/retry"
	"github.com/mymmrac/telego"
	telegoapi "github.com/mymmrac/telego/telegoapi"
	"golang.org/x/time/rate"
)

// ErrNotStarted is returned by Send before Start has connected the bot.
var ErrNotStarted = errors.New("telegram sender not started")

// Sender sends plain-text messages to the configured chat. Sends are rate
// limited and retried on rate-limit, server and network errors.
type Sender struct {
	cfg     config.TelegramConfig
	logger  *logger.Logger
	bot     BotInterface
	limiter *rate.Limiter
	retry   retry.Config
}

// New creates a sender for cfg. The bot is created by Start.
func New(cfg config.TelegramConfig, log *logger.Logger) *Sender {
	if log == nil {
		log = logger.Nop()
	}
	return &Sender{
		cfg:     cfg,
		logger:  log,
		limiter: newLimiter(cfg.RatePerSecond),
		retry: retry.Config{
			MaxAttempts: cfg.MaxAttempts,
			Logger:      log,
		},
	}
}

// NewWithBot creates a sender around an existing bot, mainly for tests.
func NewWithBot(cfg config.TelegramConfig, bot BotInterface, log *logger.Logger) *Sender {
	s := New(cfg, log)
	s.bot = bot
	return s
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Start creates the bot if needed and checks the token with getMe.
func (s *Sender) Start(ctx context.Context) error {
	if s.bot == nil {
		if strings.TrimSpace(s.cfg.Token) == "" {
			return fmt.Errorf("telegram token is required")
		}
		bot, err := telego.NewBot(s.cfg.Token)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		s.bot = NewBotAdapter(bot)
	}

	user, err := s.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	s.logger.Info("telegram bot authorized",
		logger.Field{Key: "username", Value: user.Username},
		logger.Field{Key: "bot_id", Value: user.ID},
		logger.Field{Key: "chat_id", Value: s.cfg.ChatID})

	return nil
}

// Send delivers text to the configured chat.
func (s *Sender) Send(ctx context.Context, text string) error {
	if s.bot == nil {
		return ErrNotStarted
	}

	params := &telego.SendMessageParams{
		ChatID:              telego.ChatID{ID: s.cfg.ChatID},
		Text:                text,
		DisableNotification: s.cfg.QuietMode,
	}

	attempt := 0
	err := retry.DoWithRetry(ctx, func() error {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		sendCtx, cancel := s.sendContext(ctx)
		defer cancel()

		if _, err := s.bot.SendMessage(sendCtx, params); err != nil {
			return s.describe(err)
		}
		return nil
	}, s.retry)
	if err != nil {
		fields := []logger.Field{
			{Key: "chat_id", Value: s.cfg.ChatID},
			{Key: "attempts", Value: attempt},
		}
		var details *channels.TelegramErrorDetails
		if errors.As(err, &details) {
			fields = append(fields, details.LogFields()...)
		}
		s.logger.ErrorCtx(ctx, "failed to send telegram message", err, fields...)
		return err
	}

	s.logger.DebugCtx(ctx, "telegram message sent",
		logger.Field{Key: "chat_id", Value: s.cfg.ChatID},
		logger.Field{Key: "attempts", Value: attempt})
	return nil
}

func (s *Sender) sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.cfg.SendTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// describe converts Telegram API errors into channels.TelegramErrorDetails,
// which carry their own retry classification.
func (s *Sender) describe(err error) error {
	var telErr *telegoapi.Error
	if !errors.As(err, &telErr) {
		return err
	}

	details := &channels.TelegramErrorDetails{
		ErrorCode:   telErr.ErrorCode,
		Description: telErr.Description,
		ChatID:      s.cfg.ChatID,
		Timestamp:   time.Now(),
		Err:         err,
	}
	if telErr.Parameters != nil {
		details.RetryAfterSec = telErr.Parameters.RetryAfter
	}
	return details
}
