package builders

import (
	"context"
	"fmt"

	"github.com/aatumaykin/quotebot/internal/channels"
	"github.com/aatumaykin/quotebot/internal/channels/telegram"
	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/aatumaykin/quotebot/internal/engine"
	"github.com/aatumaykin/quotebot/internal/logger"
)

type SinkBuilder struct {
	config *config.Config
	logger *logger.Logger
	bot    telegram.BotInterface
}

func NewSinkBuilder(cfg *config.Config, log *logger.Logger) *SinkBuilder {
	return &SinkBuilder{
		config: cfg,
		logger: log,
	}
}

// WithBot makes the Telegram sink use bot instead of connecting with the token.
func (b *SinkBuilder) WithBot(bot telegram.BotInterface) *SinkBuilder {
	b.bot = bot
	return b
}

// Build returns the Telegram sender when Telegram is enabled and a
// logging sink otherwise.
func (b *SinkBuilder) Build(ctx context.Context) (engine.DeliverySink, error) {
	if !b.config.Telegram.Enabled {
		b.logger.Warn("telegram disabled, quotes will only be logged")
		return channels.NewLogSink(b.logger), nil
	}

	var sender *telegram.Sender
	if b.bot != nil {
		sender = telegram.NewWithBot(b.config.Telegram, b.bot, b.logger)
	} else {
		sender = telegram.New(b.config.Telegram, b.logger)
	}
	if err := sender.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start telegram sender: %w", err)
	}

	return sender, nil
}
