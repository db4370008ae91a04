package telegram

import (
	"context"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/mock"
)

// MockBot is a mock implementation of BotInterface for testing.
// It uses testify/mock to record and verify method calls.
type MockBot struct {
	mock.Mock
}

// GetMe returns basic information about the bot.
func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.User), args.Error(1)
}

// SendMessage sends a text message to a chat.
func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

// NewMockBotSuccess creates a MockBot that succeeds for every call.
// All expectations are optional (.Maybe()), so only called methods are checked.
func NewMockBotSuccess() *MockBot {
	mockBot := new(MockBot)

	mockBot.On("GetMe", mock.Anything).Return(&telego.User{
		ID:        123456789,
		FirstName: "Quotes",
		Username:  "quotes_bot",
	}, nil).Maybe()

	mockBot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{
		MessageID: 1,
	}, nil).Maybe()

	return mockBot
}

// NewMockBotError creates a MockBot that returns err for every call.
func NewMockBotError(err error) *MockBot {
	mockBot := new(MockBot)

	mockBot.On("GetMe", mock.Anything).Return((*telego.User)(nil), err).Maybe()
	mockBot.On("SendMessage", mock.Anything, mock.Anything).Return((*telego.Message)(nil), err).Maybe()

	return mockBot
}
