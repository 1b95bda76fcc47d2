package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sattbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func qotdFixture() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockPollRepository, *MockFeedFetcher, *MockMessenger, *qotdService) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPollRepo := new(MockPollRepository)
	mockUoW.SetRepositories(nil, nil, nil, mockPollRepo, nil)

	mockFetcher := new(MockFeedFetcher)
	mockMessenger := new(MockMessenger)

	service := NewQOTDService(mockFactory, mockFetcher, mockMessenger, nil, 8*time.Hour).(*qotdService)
	return mockUoW, mockFactory, mockPollRepo, mockFetcher, mockMessenger, service
}

func marshalItem(t *testing.T, item models.FeedItem) []byte {
	t.Helper()
	data, err := json.Marshal(item)
	assert.NoError(t, err)
	return data
}

func TestQOTDService_PostPollForGuild(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockPollRepo, _, mockMessenger, service := qotdFixture()

	base := time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	item := models.FeedItem{Title: "2026-02-27: Is the sky blue?", Link: "https://example.com/q"}

	mockMessenger.On("PostPoll", ctx, int64(500), "Is the sky blue?", 8*time.Hour).Return(int64(9001), nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPollRepo.On("CreatePoll", ctx, mock.MatchedBy(func(p *models.ActivePoll) bool {
		return p.GuildID == 100 &&
			p.ChannelID == 500 &&
			p.MessageID == 9001 &&
			p.Question == "Is the sky blue?" &&
			p.RevealAt.Equal(base.Add(8*time.Hour)) &&
			!p.Revealed
	})).Return(nil)

	poll, err := service.PostPollForGuild(ctx, 100, 500, item)

	assert.NoError(t, err)
	assert.NotNil(t, poll)
	mockPollRepo.AssertExpectations(t)
	mockMessenger.AssertExpectations(t)
}

func TestQOTDService_PostPollForGuild_PostFails(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, mockPollRepo, _, mockMessenger, service := qotdFixture()

	item := models.FeedItem{Title: "2026-02-27: Is the sky blue?"}

	mockMessenger.On("PostPoll", ctx, int64(500), "Is the sky blue?", 8*time.Hour).
		Return(int64(0), errors.New("missing access"))

	_, err := service.PostPollForGuild(ctx, 100, 500, item)

	assert.Error(t, err)
	// Nothing gets registered when the poll message never existed
	mockFactory.AssertNotCalled(t, "Create")
	mockPollRepo.AssertNotCalled(t, "CreatePoll")
}

func TestQOTDService_RunDailyPoll_GuildFailureIsolated(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockPollRepo, mockFetcher, mockMessenger, service := qotdFixture()

	item := models.FeedItem{Title: "2026-02-27: Is the sky blue?"}
	mockFetcher.On("FetchQOTD", ctx).Return([]models.FeedItem{item}, nil)

	chanA, chanB := int64(500), int64(600)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockPollRepo.On("ListConfiguredGuilds", ctx).Return([]models.QOTDChannelConfig{
		{GuildID: 100, ChannelID: &chanA},
		{GuildID: 200, ChannelID: &chanB},
		{GuildID: 300, ChannelID: nil},
	}, nil)

	// Guild 100's channel rejects the post; guild 200 still gets its poll
	mockMessenger.On("PostPoll", ctx, chanA, "Is the sky blue?", 8*time.Hour).
		Return(int64(0), errors.New("missing access"))
	mockMessenger.On("PostPoll", ctx, chanB, "Is the sky blue?", 8*time.Hour).
		Return(int64(9002), nil)
	mockPollRepo.On("CreatePoll", ctx, mock.MatchedBy(func(p *models.ActivePoll) bool {
		return p.GuildID == 200
	})).Return(nil)

	err := service.RunDailyPoll(ctx)

	assert.NoError(t, err)
	mockMessenger.AssertExpectations(t)
	mockPollRepo.AssertExpectations(t)
}

func TestQOTDService_RevealDuePolls_PostsOnce(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockPollRepo, _, mockMessenger, service := qotdFixture()

	item := models.FeedItem{Title: "2026-02-27: Is the sky blue?", Description: "Yes."}
	poll := &models.ActivePoll{
		ID:         1,
		GuildID:    100,
		ChannelID:  500,
		MessageID:  9001,
		Question:   "Is the sky blue?",
		AnswerData: marshalItem(t, item),
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPollRepo.On("GetDuePolls", ctx, mock.Anything).Return([]*models.ActivePoll{poll}, nil)
	mockPollRepo.On("MarkRevealed", ctx, int64(1)).Return(true, nil).Once()
	mockMessenger.On("PostReveal", ctx, int64(500), int64(9001), "Is the sky blue?", mock.MatchedBy(func(i *models.FeedItem) bool {
		return i.Description == "Yes."
	})).Return(nil).Once()

	err := service.RevealDuePolls(ctx)

	assert.NoError(t, err)
	mockPollRepo.AssertExpectations(t)
	mockMessenger.AssertExpectations(t)
}

func TestQOTDService_RevealDuePolls_LostRaceSkipsPost(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockPollRepo, _, mockMessenger, service := qotdFixture()

	poll := &models.ActivePoll{ID: 1, GuildID: 100, ChannelID: 500, AnswerData: []byte(`{}`)}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPollRepo.On("GetDuePolls", ctx, mock.Anything).Return([]*models.ActivePoll{poll}, nil)
	// Another sweep already flipped the flag
	mockPollRepo.On("MarkRevealed", ctx, int64(1)).Return(false, nil)

	err := service.RevealDuePolls(ctx)

	assert.NoError(t, err)
	mockMessenger.AssertNotCalled(t, "PostReveal")
}

func TestQOTDService_RevealDuePolls_FailedPostStaysRevealed(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockPollRepo, _, mockMessenger, service := qotdFixture()

	item := models.FeedItem{Title: "2026-02-27: Is the sky blue?"}
	poll := &models.ActivePoll{
		ID:         1,
		GuildID:    100,
		ChannelID:  500,
		MessageID:  9001,
		Question:   "Is the sky blue?",
		AnswerData: marshalItem(t, item),
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPollRepo.On("GetDuePolls", ctx, mock.Anything).Return([]*models.ActivePoll{poll}, nil)
	// The flag flips exactly once even though the answer post fails:
	// at-most-once delivery, never a retry storm
	mockPollRepo.On("MarkRevealed", ctx, int64(1)).Return(true, nil).Once()
	mockMessenger.On("PostReveal", ctx, int64(500), int64(9001), "Is the sky blue?", mock.Anything).
		Return(errors.New("channel deleted")).Once()

	err := service.RevealDuePolls(ctx)
	assert.NoError(t, err)

	// A second sweep finds nothing left to do for this poll
	err = service.RevealDuePolls(ctx)
	assert.NoError(t, err)

	mockPollRepo.AssertExpectations(t)
	mockMessenger.AssertExpectations(t)
}

func TestQOTDService_RevealDuePolls_ConcurrentSweeps(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockPollRepo, _, mockMessenger, service := qotdFixture()

	item := models.FeedItem{Title: "2026-02-27: Is the sky blue?"}
	poll := &models.ActivePoll{
		ID:         1,
		GuildID:    100,
		ChannelID:  500,
		MessageID:  9001,
		Question:   "Is the sky blue?",
		AnswerData: marshalItem(t, item),
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPollRepo.On("GetDuePolls", ctx, mock.Anything).Return([]*models.ActivePoll{poll}, nil)

	// Simulate the conditional update: exactly one caller wins the flip
	mockPollRepo.On("MarkRevealed", ctx, int64(1)).Return(true, nil).Once()
	mockPollRepo.On("MarkRevealed", ctx, int64(1)).Return(false, nil)
	mockMessenger.On("PostReveal", ctx, int64(500), int64(9001), "Is the sky blue?", mock.Anything).
		Return(nil).Once()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, service.RevealDuePolls(ctx))
		}()
	}
	wg.Wait()

	// Eight sweeps raced over the same due poll; the answer posted once
	mockMessenger.AssertNumberOfCalls(t, "PostReveal", 1)
}

func TestQOTDService_DueTiming(t *testing.T) {
	posted := time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)
	poll := &models.ActivePoll{RevealAt: posted.Add(8 * time.Hour)}

	assert.False(t, poll.Due(posted.Add(7*time.Hour+59*time.Minute)))
	assert.True(t, poll.Due(posted.Add(8*time.Hour)))
	assert.True(t, poll.Due(posted.Add(8*time.Hour+time.Minute)))

	revealed := &models.ActivePoll{RevealAt: posted, Revealed: true}
	assert.False(t, revealed.Due(posted.Add(time.Hour)))
}

func TestExtractQuestion(t *testing.T) {
	assert.Equal(t, "Is the sky blue?", ExtractQuestion("2026-02-27: Is the sky blue?"))
	assert.Equal(t, "No date prefix here", ExtractQuestion("No date prefix here"))
	assert.Equal(t, "", ExtractQuestion(""))
}
