package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// MockTransport is a mock implementation of ports.Transport
type MockTransport struct {
	mock.Mock
}

var _ ports.Transport = (*MockTransport)(nil)

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) MutualGuilds(ctx context.Context, userID string) ([]domain.Guild, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Guild), args.Error(1)
}

func (m *MockTransport) FetchUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockTransport) FetchChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *MockTransport) EnsureCategory(ctx context.Context, guildID, name string) (string, error) {
	args := m.Called(ctx, guildID, name)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) CreateChannel(ctx context.Context, guildID, parentID, name, topic string) (*domain.Channel, error) {
	args := m.Called(ctx, guildID, parentID, name, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *MockTransport) DeleteChannel(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockTransport) SendChannelMessage(ctx context.Context, channelID string, msg domain.OutboundMessage) (string, error) {
	args := m.Called(ctx, channelID, msg)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) SendDirectMessage(ctx context.Context, userID string, msg domain.OutboundMessage) (string, error) {
	args := m.Called(ctx, userID, msg)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) EditMessage(ctx context.Context, channelID, messageID string, msg domain.OutboundMessage) error {
	args := m.Called(ctx, channelID, messageID, msg)
	return args.Error(0)
}

func (m *MockTransport) React(ctx context.Context, channelID, messageID, emoji string) error {
	args := m.Called(ctx, channelID, messageID, emoji)
	return args.Error(0)
}

func (m *MockTransport) RespondToInteraction(ctx context.Context, it domain.Interaction, resp domain.InteractionResponse) error {
	args := m.Called(ctx, it, resp)
	return args.Error(0)
}

// MockTicketStore is a mock implementation of ports.TicketStore
type MockTicketStore struct {
	mock.Mock
}

var _ ports.TicketStore = (*MockTicketStore)(nil)

func NewMockTicketStore() *MockTicketStore {
	return &MockTicketStore{}
}

func (m *MockTicketStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketStore) AppendMessage(ctx context.Context, params ports.AppendMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockTicketStore) CloseTicket(ctx context.Context, ticketID, closedBy string) error {
	args := m.Called(ctx, ticketID, closedBy)
	return args.Error(0)
}

// SyncStoreWriter runs persistence tasks inline so tests can assert store
// calls deterministically.
type SyncStoreWriter struct{}

var _ ports.StoreWriter = (*SyncStoreWriter)(nil)

func NewSyncStoreWriter() *SyncStoreWriter {
	return &SyncStoreWriter{}
}

func (w *SyncStoreWriter) Go(key, op string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}

func (w *SyncStoreWriter) Shutdown() {}
