package service

import (
	"context"
	"errors"
	"testing"

	"sattbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func feedFixture() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockFeedRepository, *MockFeedFetcher, *MockMessenger, FeedService) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockFeedRepo := new(MockFeedRepository)
	mockUoW.SetRepositories(nil, nil, mockFeedRepo, nil, nil)

	mockFetcher := new(MockFeedFetcher)
	mockMessenger := new(MockMessenger)

	service := NewFeedService(mockFactory, mockFetcher, mockMessenger)
	return mockUoW, mockFactory, mockFeedRepo, mockFetcher, mockMessenger, service
}

func TestFeedService_FetchAndPostNews(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockFeedRepo, mockFetcher, mockMessenger, service := feedFixture()

	items := []models.FeedItem{
		{Title: "Today's brief", Link: "https://example.com/1"},
		{Title: "Yesterday's brief", Link: "https://example.com/2"},
	}
	mockFetcher.On("FetchNews", ctx).Return(items, nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// One of the two items is already known for this guild
	mockFeedRepo.On("InsertNewItems", ctx, int64(100), items).Return(1, nil)
	mockMessenger.On("PostNews", ctx, int64(500), mock.MatchedBy(func(posted []*models.FeedItem) bool {
		return len(posted) == 1 && posted[0].Title == "Today's brief"
	})).Return(nil)

	fetched, stored, err := service.FetchAndPostNews(ctx, 100, 500)

	assert.NoError(t, err)
	assert.Equal(t, 2, fetched)
	assert.Equal(t, 1, stored)
	mockFeedRepo.AssertExpectations(t)
	mockMessenger.AssertExpectations(t)
}

func TestFeedService_FetchAndPostNews_FetchFails(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, mockFetcher, _, service := feedFixture()

	mockFetcher.On("FetchNews", ctx).Return(nil, errors.New("feed unreachable"))

	_, _, err := service.FetchAndPostNews(ctx, 100, 500)

	assert.Error(t, err)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestFeedService_FetchAndPostNews_PostFailureKeepsIngest(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockFeedRepo, mockFetcher, mockMessenger, service := feedFixture()

	items := []models.FeedItem{{Title: "Today's brief", Link: "https://example.com/1"}}
	mockFetcher.On("FetchNews", ctx).Return(items, nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockFeedRepo.On("InsertNewItems", ctx, int64(100), items).Return(1, nil)
	mockMessenger.On("PostNews", ctx, int64(500), mock.Anything).Return(errors.New("missing access"))

	_, stored, err := service.FetchAndPostNews(ctx, 100, 500)

	// The items commit before the post attempt, so the failed post does
	// not undo dedup state
	assert.Error(t, err)
	assert.Equal(t, 1, stored)
	mockUoW.AssertCalled(t, "Commit")
}

func TestFeedService_RunDailyNews_GuildFailureIsolated(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockFeedRepo, mockFetcher, mockMessenger, service := feedFixture()

	items := []models.FeedItem{{Title: "Today's brief", Link: "https://example.com/1"}}
	mockFetcher.On("FetchNews", ctx).Return(items, nil)

	chanA, chanB := int64(500), int64(600)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockFeedRepo.On("ListConfiguredGuilds", ctx).Return([]models.FeedChannelConfig{
		{GuildID: 100, ChannelID: &chanA},
		{GuildID: 200, ChannelID: &chanB},
	}, nil)

	// Guild 100's insert blows up; guild 200 still gets its post
	mockFeedRepo.On("InsertNewItems", ctx, int64(100), items).Return(0, errors.New("constraint violation"))
	mockFeedRepo.On("InsertNewItems", ctx, int64(200), items).Return(1, nil)
	mockMessenger.On("PostNews", ctx, chanB, mock.Anything).Return(nil)

	err := service.RunDailyNews(ctx)

	assert.NoError(t, err)
	mockMessenger.AssertNumberOfCalls(t, "PostNews", 1)
	mockFeedRepo.AssertExpectations(t)
}

func TestFeedService_RunDailyNews_EmptyFeed(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, mockFetcher, mockMessenger, service := feedFixture()

	mockFetcher.On("FetchNews", ctx).Return([]models.FeedItem{}, nil)

	err := service.RunDailyNews(ctx)

	assert.NoError(t, err)
	mockFactory.AssertNotCalled(t, "Create")
	mockMessenger.AssertNotCalled(t, "PostNews")
}

func TestFeedService_SetNewsChannel(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockFeedRepo, _, _, service := feedFixture()

	channelID := int64(500)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockFeedRepo.On("SetChannel", ctx, int64(100), &channelID).Return(nil)

	err := service.SetNewsChannel(ctx, 100, &channelID)

	assert.NoError(t, err)
	mockFeedRepo.AssertExpectations(t)
}
