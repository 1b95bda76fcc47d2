package service

import (
	"context"
	"time"

	"sattbot/events"
	"sattbot/models"

	"github.com/stretchr/testify/mock"
)

// MockGuildSettingsRepository is a mock implementation of GuildSettingsRepository
type MockGuildSettingsRepository struct {
	mock.Mock
}

func (m *MockGuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockGuildSettingsRepository) DeleteGuild(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

// MockCommandPolicyRepository is a mock implementation of CommandPolicyRepository
type MockCommandPolicyRepository struct {
	mock.Mock
}

func (m *MockCommandPolicyRepository) GetAccess(ctx context.Context, guildID int64, command string) (models.AccessLevel, bool, error) {
	args := m.Called(ctx, guildID, command)
	return args.Get(0).(models.AccessLevel), args.Bool(1), args.Error(2)
}

func (m *MockCommandPolicyRepository) SetAccess(ctx context.Context, guildID int64, command string, access models.AccessLevel) error {
	args := m.Called(ctx, guildID, command, access)
	return args.Error(0)
}

func (m *MockCommandPolicyRepository) SeedDefaults(ctx context.Context, guildID int64, defaults map[string]models.AccessLevel) error {
	args := m.Called(ctx, guildID, defaults)
	return args.Error(0)
}

func (m *MockCommandPolicyRepository) GetRoles(ctx context.Context, guildID int64, command string) ([]int64, error) {
	args := m.Called(ctx, guildID, command)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCommandPolicyRepository) AddRole(ctx context.Context, guildID int64, command string, roleID int64) error {
	args := m.Called(ctx, guildID, command, roleID)
	return args.Error(0)
}

func (m *MockCommandPolicyRepository) RemoveRole(ctx context.Context, guildID int64, command string, roleID int64) error {
	args := m.Called(ctx, guildID, command, roleID)
	return args.Error(0)
}

func (m *MockCommandPolicyRepository) GetAllAccess(ctx context.Context, guildID int64) (map[string]models.AccessLevel, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.AccessLevel), args.Error(1)
}

func (m *MockCommandPolicyRepository) GetAllRoleGrants(ctx context.Context, guildID int64) (map[string][]int64, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]int64), args.Error(1)
}

// MockFeedRepository is a mock implementation of FeedRepository
type MockFeedRepository struct {
	mock.Mock
}

func (m *MockFeedRepository) GetChannel(ctx context.Context, guildID int64) (*int64, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockFeedRepository) SetChannel(ctx context.Context, guildID int64, channelID *int64) error {
	args := m.Called(ctx, guildID, channelID)
	return args.Error(0)
}

func (m *MockFeedRepository) ListConfiguredGuilds(ctx context.Context) ([]models.FeedChannelConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedChannelConfig), args.Error(1)
}

func (m *MockFeedRepository) InsertNewItems(ctx context.Context, guildID int64, items []models.FeedItem) (int, error) {
	args := m.Called(ctx, guildID, items)
	return args.Int(0), args.Error(1)
}

func (m *MockFeedRepository) GetRecentItems(ctx context.Context, guildID int64, since time.Time) ([]*models.FeedItem, error) {
	args := m.Called(ctx, guildID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FeedItem), args.Error(1)
}

func (m *MockFeedRepository) DeleteItemsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockPollRepository is a mock implementation of PollRepository
type MockPollRepository struct {
	mock.Mock
}

func (m *MockPollRepository) GetChannel(ctx context.Context, guildID int64) (*int64, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockPollRepository) SetChannel(ctx context.Context, guildID int64, channelID *int64) error {
	args := m.Called(ctx, guildID, channelID)
	return args.Error(0)
}

func (m *MockPollRepository) ListConfiguredGuilds(ctx context.Context) ([]models.QOTDChannelConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QOTDChannelConfig), args.Error(1)
}

func (m *MockPollRepository) CreatePoll(ctx context.Context, poll *models.ActivePoll) error {
	args := m.Called(ctx, poll)
	return args.Error(0)
}

func (m *MockPollRepository) GetDuePolls(ctx context.Context, now time.Time) ([]*models.ActivePoll, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActivePoll), args.Error(1)
}

func (m *MockPollRepository) MarkRevealed(ctx context.Context, pollID int64) (bool, error) {
	args := m.Called(ctx, pollID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPollRepository) DeletePollsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockJobStateRepository is a mock implementation of JobStateRepository
type MockJobStateRepository struct {
	mock.Mock
}

func (m *MockJobStateRepository) Get(ctx context.Context, jobName string) (*models.JobState, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobState), args.Error(1)
}

func (m *MockJobStateRepository) Upsert(ctx context.Context, jobName string, firedAt time.Time) error {
	args := m.Called(ctx, jobName, firedAt)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plugged in with SetRepositories; nil slots get fresh unconfigured mocks
// so tests only wire what they touch.
type MockUnitOfWork struct {
	mock.Mock

	guildSettingsRepo GuildSettingsRepository
	commandPolicyRepo CommandPolicyRepository
	feedRepo          FeedRepository
	pollRepo          PollRepository
	jobStateRepo      JobStateRepository
	eventBus          EventPublisher
}

func (m *MockUnitOfWork) SetRepositories(
	guildSettings GuildSettingsRepository,
	commandPolicy CommandPolicyRepository,
	feed FeedRepository,
	poll PollRepository,
	jobState JobStateRepository,
) {
	if guildSettings == nil {
		guildSettings = new(MockGuildSettingsRepository)
	}
	if commandPolicy == nil {
		commandPolicy = new(MockCommandPolicyRepository)
	}
	if feed == nil {
		feed = new(MockFeedRepository)
	}
	if poll == nil {
		poll = new(MockPollRepository)
	}
	if jobState == nil {
		jobState = new(MockJobStateRepository)
	}
	m.guildSettingsRepo = guildSettings
	m.commandPolicyRepo = commandPolicy
	m.feedRepo = feed
	m.pollRepo = poll
	m.jobStateRepo = jobState
}

func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) GuildSettingsRepository() GuildSettingsRepository {
	return m.guildSettingsRepo
}

func (m *MockUnitOfWork) CommandPolicyRepository() CommandPolicyRepository {
	return m.commandPolicyRepo
}

func (m *MockUnitOfWork) FeedRepository() FeedRepository {
	return m.feedRepo
}

func (m *MockUnitOfWork) PollRepository() PollRepository {
	return m.pollRepo
}

func (m *MockUnitOfWork) JobStateRepository() JobStateRepository {
	return m.jobStateRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		m.eventBus = new(noopPublisher)
	}
	return m.eventBus
}

// noopPublisher swallows events for tests that don't assert on them
type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockMessenger is a mock implementation of Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) PostNews(ctx context.Context, channelID int64, items []*models.FeedItem) error {
	args := m.Called(ctx, channelID, items)
	return args.Error(0)
}

func (m *MockMessenger) PostPoll(ctx context.Context, channelID int64, question string, openFor time.Duration) (int64, error) {
	args := m.Called(ctx, channelID, question, openFor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) PostReveal(ctx context.Context, channelID, pollMessageID int64, question string, item *models.FeedItem) error {
	args := m.Called(ctx, channelID, pollMessageID, question, item)
	return args.Error(0)
}

func (m *MockMessenger) Announce(ctx context.Context, channelID int64, content string) error {
	args := m.Called(ctx, channelID, content)
	return args.Error(0)
}

func (m *MockMessenger) MuteMember(ctx context.Context, guildID, memberID int64, duration time.Duration, reason string) error {
	args := m.Called(ctx, guildID, memberID, duration, reason)
	return args.Error(0)
}

// MockFeedFetcher is a mock implementation of FeedFetcher
type MockFeedFetcher struct {
	mock.Mock
}

func (m *MockFeedFetcher) FetchNews(ctx context.Context) ([]models.FeedItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedItem), args.Error(1)
}

func (m *MockFeedFetcher) FetchQOTD(ctx context.Context) ([]models.FeedItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedItem), args.Error(1)
}
