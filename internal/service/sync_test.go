package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"social_syncer/internal/config"
	"social_syncer/internal/domain"
	"social_syncer/internal/service/mocks"
)

type SyncServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	adapter     *mocks.MockAdapter
	posts       *mocks.MockPostStore
	media       *mocks.MockMediaStore
	checkpoints *mocks.MockCheckpointStore
	txManager   *mocks.MockTransactionManager
	cache       *mocks.MockMediaCache
	publisher   *mocks.MockPublisher
	metrics     *mocks.MockMetrics

	service *SyncService
	logger  *slog.Logger
}

var publishedAt = time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

func feedItem(id string, media ...string) domain.FeedItem {
	return domain.FeedItem{
		ExternalID:  id,
		Platform:    domain.PlatformYouTube,
		PublishedAt: publishedAt,
		Title:       "Video " + id,
		Count:       1500,
		MediaURLs:   media,
	}
}

func thumb(id string) string {
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.adapter = mocks.NewMockAdapter(s.ctrl)
	s.posts = mocks.NewMockPostStore(s.ctrl)
	s.media = mocks.NewMockMediaStore(s.ctrl)
	s.checkpoints = mocks.NewMockCheckpointStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.cache = mocks.NewMockMediaCache(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.metrics = mocks.NewMockMetrics(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.adapter.EXPECT().Platform().Return(domain.PlatformYouTube).AnyTimes()
	s.adapter.EXPECT().LeadingID(gomock.Any()).DoAndReturn(func(items []domain.FeedItem) string {
		if len(items) == 0 {
			return ""
		}
		return items[0].ExternalID
	}).AnyTimes()
	s.adapter.EXPECT().MediaTargets(gomock.Any()).DoAndReturn(func(item domain.FeedItem) []string {
		targets := make([]string, len(item.MediaURLs))
		for i := range item.MediaURLs {
			targets[i] = fmt.Sprintf("youtube/thumbnails/%s-%d", item.ExternalID, i)
		}
		return targets
	}).AnyTimes()
	s.adapter.EXPECT().ToStoredPost(gomock.Any()).DoAndReturn(domain.NewStoredPost).AnyTimes()

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	s.service = s.newService(config.SyncConfig{}, s.publisher)
}

func (s *SyncServiceTestSuite) newService(cfg config.SyncConfig, publisher Publisher) *SyncService {
	return NewSyncService(
		s.adapter,
		s.posts,
		s.media,
		s.checkpoints,
		s.txManager,
		s.cache,
		publisher,
		s.metrics,
		s.logger,
		cfg,
	)
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func (s *SyncServiceTestSuite) expectRecord(state domain.SyncState) {
	s.metrics.EXPECT().RecordSync(
		string(domain.PlatformYouTube), string(state),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	)
}

func (s *SyncServiceTestSuite) expectCheckpoint(lastSeen string) {
	s.checkpoints.EXPECT().GetOrCreate(gomock.Any(), domain.PlatformYouTube).Return(
		&domain.Checkpoint{Platform: domain.PlatformYouTube, LastSeenID: lastSeen}, nil,
	)
}

func (s *SyncServiceTestSuite) expectLocalized(id string) {
	s.cache.EXPECT().Localize(gomock.Any(), thumb(id), "youtube/thumbnails/"+id+"-0").Return(
		domain.LocalMediaAsset{RelativePath: "youtube/thumbnails/" + id + "-0.jpg", ContentType: "image/jpeg"}, nil,
	)
}

func (s *SyncServiceTestSuite) TestSync_FirstRunInsertsAllAndAdvances() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("vidA", thumb("vidA")), feedItem("vidB", thumb("vidB"))}

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(items, nil)
	s.expectCheckpoint("")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"vidA", "vidB"}).Return(map[string]int64{}, nil)
	s.expectLocalized("vidA")
	s.expectLocalized("vidB")

	gomock.InOrder(
		s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *domain.StoredPost) (int64, bool, error) {
				s.Equal("vidA", p.ExternalID)
				s.Equal("1.5K", p.CountDisplay)
				return 1, true, nil
			},
		),
		s.media.EXPECT().Replace(gomock.Any(), int64(1), []domain.PostMedia{
			{Position: 0, RemoteURL: thumb("vidA"), LocalPath: "youtube/thumbnails/vidA-0.jpg"},
		}).Return(nil),
		s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(2), true, nil),
		s.media.EXPECT().Replace(gomock.Any(), int64(2), gomock.Any()).Return(nil),
		s.checkpoints.EXPECT().Advance(gomock.Any(), domain.PlatformYouTube, "vidA", gomock.Any()).Return(nil),
	)

	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(nil).Times(2)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(domain.StateDone, stats.State)
	s.NotEmpty(stats.RunID)
	s.Equal(2, stats.Fetched)
	s.Equal(2, stats.New)
	s.Equal(0, stats.Updated)
	s.Equal(2, stats.Published)
	s.Equal("vidA", stats.LeadingID)
	s.True(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_UnchangedLeadingRefreshesMetricsOnly() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("vidA", thumb("vidA")), feedItem("vidB", thumb("vidB"))}

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(items, nil)
	s.expectCheckpoint("vidA")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"vidA", "vidB"}).Return(
		map[string]int64{"vidA": 1, "vidB": 2}, nil,
	)

	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(1), false, nil)
	s.media.EXPECT().RefreshRemote(gomock.Any(), int64(1), []string{thumb("vidA")}).Return(nil)
	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(2), false, nil)
	s.media.EXPECT().RefreshRemote(gomock.Any(), int64(2), []string{thumb("vidB")}).Return(nil)

	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(nil).Times(2)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(0, stats.New)
	s.Equal(2, stats.Updated)
	s.False(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_UnchangedLeadingWithoutRefreshSkips() {
	ctx := context.Background()
	refresh := false
	service := s.newService(config.SyncConfig{RefreshMetrics: &refresh}, s.publisher)

	items := []domain.FeedItem{feedItem("vidA", thumb("vidA")), feedItem("vidB", thumb("vidB"))}
	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(items, nil)
	s.expectCheckpoint("vidA")
	s.expectRecord(domain.StateDone)

	stats, err := service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(2, stats.Skipped)
	s.Equal(0, stats.New+stats.Updated)
	s.False(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_DetectsNewItemsInResponseOrder() {
	ctx := context.Background()
	items := []domain.FeedItem{
		feedItem("vidC", thumb("vidC")),
		feedItem("vidA", thumb("vidA")),
		feedItem("vidB", thumb("vidB")),
	}

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(items, nil)
	s.expectCheckpoint("vidA")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"vidC", "vidA", "vidB"}).Return(
		map[string]int64{"vidA": 1, "vidB": 2}, nil,
	)
	s.expectLocalized("vidC")

	var order []string
	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *domain.StoredPost) (int64, bool, error) {
			order = append(order, p.ExternalID)
			switch p.ExternalID {
			case "vidA":
				return 1, false, nil
			case "vidB":
				return 2, false, nil
			}
			return 3, true, nil
		},
	).Times(3)
	s.media.EXPECT().Replace(gomock.Any(), int64(3), gomock.Any()).Return(nil)
	s.media.EXPECT().RefreshRemote(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.checkpoints.EXPECT().Advance(gomock.Any(), domain.PlatformYouTube, "vidC", gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal([]string{"vidC", "vidA", "vidB"}, order)
	s.Equal(1, stats.New)
	s.Equal(2, stats.Updated)
	s.True(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_PartialMediaFailureStillStoresPost() {
	ctx := context.Background()
	item := feedItem("p2", "https://cdn.test/p2-0.jpg", "https://cdn.test/p2-1.jpg")

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return([]domain.FeedItem{item}, nil)
	s.expectCheckpoint("")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"p2"}).Return(map[string]int64{}, nil)

	s.cache.EXPECT().Localize(gomock.Any(), "https://cdn.test/p2-0.jpg", "youtube/thumbnails/p2-0").Return(
		domain.LocalMediaAsset{RelativePath: "youtube/thumbnails/p2-0.jpg"}, nil,
	)
	s.cache.EXPECT().Localize(gomock.Any(), "https://cdn.test/p2-1.jpg", "youtube/thumbnails/p2-1").Return(
		domain.LocalMediaAsset{}, &domain.DownloadError{URL: "https://cdn.test/p2-1.jpg", StatusCode: http.StatusNotFound},
	)
	s.metrics.EXPECT().RecordMediaFailure(string(domain.PlatformYouTube))

	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(7), true, nil)
	s.media.EXPECT().Replace(gomock.Any(), int64(7), []domain.PostMedia{
		{Position: 0, RemoteURL: "https://cdn.test/p2-0.jpg", LocalPath: "youtube/thumbnails/p2-0.jpg"},
		{Position: 1, RemoteURL: "https://cdn.test/p2-1.jpg"},
	}).Return(nil)
	s.checkpoints.EXPECT().Advance(gomock.Any(), domain.PlatformYouTube, "p2", gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(nil)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.New)
	s.Equal(1, stats.MediaFailures)
	s.Equal(0, stats.Errors)
	s.True(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_FetchErrorAborts() {
	ctx := context.Background()
	upstream := &domain.UpstreamError{Platform: domain.PlatformYouTube, StatusCode: http.StatusServiceUnavailable}

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(nil, upstream)
	s.expectRecord(domain.StateAborted)

	stats, err := s.service.Sync(ctx)

	s.Require().Error(err)
	s.True(errors.Is(err, domain.ErrUpstreamUnavailable))
	s.Equal(http.StatusServiceUnavailable, domain.StatusCodeOf(err))
	s.Contains(err.Error(), "fetch items")
	s.Require().NotNil(stats)
	s.Equal(domain.StateAborted, stats.State)
	s.False(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_ItemErrorBlocksCheckpoint() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("vidB"), feedItem("vidA")}

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(items, nil)
	s.expectCheckpoint("vidA")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"vidB", "vidA"}).Return(
		map[string]int64{"vidA": 1}, nil,
	)

	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(0), false, errors.New("connection reset"))
	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(1), false, nil)
	s.media.EXPECT().RefreshRemote(gomock.Any(), int64(1), []string{}).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(nil)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(1, stats.Updated)
	s.False(stats.CheckpointAdvanced)
}

func (s *SyncServiceTestSuite) TestSync_DuplicateIDsProcessedOnce() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("t1"), feedItem("t1")}

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return(items, nil)
	s.expectCheckpoint("")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"t1", "t1"}).Return(map[string]int64{}, nil)
	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(1), true, nil)
	s.media.EXPECT().Replace(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	s.checkpoints.EXPECT().Advance(gomock.Any(), domain.PlatformYouTube, "t1", gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(nil)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.New)
	s.Equal(1, stats.Skipped)
}

func (s *SyncServiceTestSuite) TestSync_PublisherNil() {
	ctx := context.Background()
	service := s.newService(config.SyncConfig{}, nil)

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return([]domain.FeedItem{feedItem("vidA")}, nil)
	s.expectCheckpoint("")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"vidA"}).Return(map[string]int64{}, nil)
	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(1), true, nil)
	s.media.EXPECT().Replace(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	s.checkpoints.EXPECT().Advance(gomock.Any(), domain.PlatformYouTube, "vidA", gomock.Any()).Return(nil)
	s.expectRecord(domain.StateDone)

	stats, err := service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.New)
	s.Equal(0, stats.Published)
}

func (s *SyncServiceTestSuite) TestSync_PublishFailureDoesNotBlockCheckpoint() {
	ctx := context.Background()

	s.adapter.EXPECT().FetchItems(gomock.Any()).Return([]domain.FeedItem{feedItem("vidA")}, nil)
	s.expectCheckpoint("")
	s.posts.EXPECT().GetExisting(gomock.Any(), domain.PlatformYouTube, []string{"vidA"}).Return(map[string]int64{}, nil)
	s.posts.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(int64(1), true, nil)
	s.media.EXPECT().Replace(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(errors.New("channel closed"))
	s.checkpoints.EXPECT().Advance(gomock.Any(), domain.PlatformYouTube, "vidA", gomock.Any()).Return(nil)
	s.expectRecord(domain.StateDone)

	stats, err := s.service.Sync(ctx)

	s.Require().NoError(err)
	s.Equal(0, stats.Published)
	s.Equal(0, stats.Errors)
	s.True(stats.CheckpointAdvanced)
}
