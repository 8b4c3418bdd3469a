package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/model"
	storagemock "gitlab.com/manasline/api/wa-helpline-bot/internal/storage/mock"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
)

type aggregatorFixture struct {
	userRepo    *storagemock.UserRepoMock
	sessionRepo *storagemock.SessionRepoMock
	flowRepo    *storagemock.SessionFlowRepoMock
	messageRepo *storagemock.ChatMessageRepoMock
	eventRepo   *storagemock.AnalyticsEventRepoMock
	metricRepo  *storagemock.DashboardMetricRepoMock
	aggregator  *Aggregator
}

func newAggregatorFixture(t *testing.T) *aggregatorFixture {
	logger.Log = zaptest.NewLogger(t).Named("test")
	f := &aggregatorFixture{
		userRepo:    new(storagemock.UserRepoMock),
		sessionRepo: new(storagemock.SessionRepoMock),
		flowRepo:    new(storagemock.SessionFlowRepoMock),
		messageRepo: new(storagemock.ChatMessageRepoMock),
		eventRepo:   new(storagemock.AnalyticsEventRepoMock),
		metricRepo:  new(storagemock.DashboardMetricRepoMock),
	}
	f.aggregator = NewAggregator(f.userRepo, f.sessionRepo, f.flowRepo, f.messageRepo, f.eventRepo, f.metricRepo)
	return f
}

func TestAggregator_RangeValidation(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	_, err := f.aggregator.ActiveUsers(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRange)

	_, err = f.aggregator.TopSteps(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRange)

	_, err = f.aggregator.HourlyActivity(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRange)

	_, err = f.aggregator.Funnel(ctx, -7)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRange)

	now := time.Now().UTC()
	_, err = f.aggregator.EventStats(ctx, now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrInvalidRange)
}

func TestAggregator_ActiveUsers(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	f.eventRepo.On("ActiveUsers", ctx, mock.MatchedBy(func(since time.Time) bool {
		return time.Since(since) < 16*time.Minute && time.Since(since) > 14*time.Minute
	})).Return(int64(42), nil)

	count, err := f.aggregator.ActiveUsers(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestAggregator_HourlyActivity_ZeroFills(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	f.sessionRepo.On("CountPerHour", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(map[int]int64{9: 12, 18: 30}, nil)

	buckets, err := f.aggregator.HourlyActivity(ctx, 7)
	require.NoError(t, err)
	require.Len(t, buckets, 24)
	assert.Equal(t, int64(12), buckets[9].Count)
	assert.Equal(t, int64(30), buckets[18].Count)
	assert.Equal(t, int64(0), buckets[0].Count)
	assert.Equal(t, 23, buckets[23].Hour)
}

func TestAggregator_Funnel_OrderedStagesWithZeros(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	counts := map[model.FlowStep]int64{
		model.FlowWelcome:  100,
		model.FlowMenuMain: 60,
	}
	for _, step := range model.FunnelStages {
		f.flowRepo.On("CountByStepInRange", ctx, step, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return(counts[step], nil)
	}

	stages, err := f.aggregator.Funnel(ctx, 30)
	require.NoError(t, err)
	require.Len(t, stages, len(model.FunnelStages))
	assert.Equal(t, model.FlowWelcome, stages[0].Step)
	assert.Equal(t, int64(100), stages[0].Count)
	assert.Equal(t, model.FlowConfirmation, stages[4].Step)
	assert.Equal(t, int64(0), stages[4].Count)
}

func TestAggregator_RealTimeStats(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	f.eventRepo.On("ActiveUsers", ctx, mock.AnythingOfType("time.Time")).Return(int64(7), nil)
	f.sessionRepo.On("CountInRange", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(int64(4), nil)
	f.messageRepo.On("CountInRange", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(int64(19), nil)

	stats, err := f.aggregator.RealTimeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.ActiveUsers)
	assert.Equal(t, int64(4), stats.RecentSessions)
	assert.Equal(t, int64(19), stats.RecentMessages)
}

func TestAggregator_SessionStats(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	f.sessionRepo.On("Stats", ctx).Return(&model.SessionStats{
		Total:       120,
		Active:      3,
		BySource:    map[string]int64{"ORGANIC": 100, "QR_CODE": 20},
		AvgDuration: 95,
	}, nil)

	stats, err := f.aggregator.SessionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), stats.Total)
	assert.Equal(t, int64(3), stats.Active)
	assert.Equal(t, int64(20), stats.BySource["QR_CODE"])
	assert.Equal(t, int64(95), stats.AvgDuration)
}

func TestAggregator_CalculateDailyMetrics(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	dayEnd := day.Add(24 * time.Hour)

	f.eventRepo.On("DistinctUsersInRange", ctx, day, dayEnd).Return(int64(50), nil)
	f.eventRepo.On("DistinctUsersByTypeInRange", ctx, day, dayEnd).
		Return(map[string]int64{"NEW": 20, "RETURNING": 30}, nil)
	f.userRepo.On("CountNewInRange", ctx, day, dayEnd).Return(int64(20), nil)
	f.sessionRepo.On("CountInRange", ctx, day, dayEnd).Return(int64(80), nil)
	f.sessionRepo.On("CountBySourceInRange", ctx, day, dayEnd).Return(map[string]int64{"ORGANIC": 80}, nil)
	f.sessionRepo.On("AvgDurationInRange", ctx, day, dayEnd).Return(123.4, nil)
	f.messageRepo.On("CountInRange", ctx, day, dayEnd).Return(int64(300), nil)
	f.messageRepo.On("CountBySenderInRange", ctx, day, dayEnd).Return(map[string]int64{"USER": 150, "BOT": 150}, nil)

	var upserted []*model.DashboardMetric
	f.metricRepo.On("Upsert", ctx, mock.AnythingOfType("*model.DashboardMetric")).Run(func(args mock.Arguments) {
		upserted = append(upserted, args.Get(1).(*model.DashboardMetric))
	}).Return(nil)

	err := f.aggregator.CalculateDailyMetrics(ctx, date)
	require.NoError(t, err)
	require.Len(t, upserted, 5)

	byName := make(map[string]*model.DashboardMetric, len(upserted))
	for _, metric := range upserted {
		assert.Equal(t, day, metric.MetricDate)
		byName[metric.MetricName] = metric
	}
	assert.Equal(t, float64(50), byName[model.MetricDailyActiveUsers].MetricValue)
	assert.NotEmpty(t, byName[model.MetricDailyActiveUsers].Breakdown)
	assert.Equal(t, float64(20), byName[model.MetricNewUsers].MetricValue)
	assert.Empty(t, byName[model.MetricNewUsers].Breakdown)
	assert.Equal(t, float64(80), byName[model.MetricTotalSessions].MetricValue)
	assert.Equal(t, 123.4, byName[model.MetricAvgSessionDuration].MetricValue)
	assert.Equal(t, float64(300), byName[model.MetricMessagesSent].MetricValue)
}

func TestAggregator_CalculateDailyMetrics_EmptyDayIsZero(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()
	day := model.MetricDay(time.Now().UTC())
	dayEnd := day.Add(24 * time.Hour)

	f.eventRepo.On("DistinctUsersInRange", ctx, day, dayEnd).Return(int64(0), nil)
	f.eventRepo.On("DistinctUsersByTypeInRange", ctx, day, dayEnd).Return(map[string]int64{}, nil)
	f.userRepo.On("CountNewInRange", ctx, day, dayEnd).Return(int64(0), nil)
	f.sessionRepo.On("CountInRange", ctx, day, dayEnd).Return(int64(0), nil)
	f.sessionRepo.On("CountBySourceInRange", ctx, day, dayEnd).Return(map[string]int64{}, nil)
	f.sessionRepo.On("AvgDurationInRange", ctx, day, dayEnd).Return(float64(0), nil)
	f.messageRepo.On("CountInRange", ctx, day, dayEnd).Return(int64(0), nil)
	f.messageRepo.On("CountBySenderInRange", ctx, day, dayEnd).Return(map[string]int64{}, nil)
	f.metricRepo.On("Upsert", ctx, mock.MatchedBy(func(metric *model.DashboardMetric) bool {
		return metric.MetricValue == 0
	})).Return(nil)

	err := f.aggregator.CalculateDailyMetrics(ctx, time.Now())
	require.NoError(t, err)
	f.metricRepo.AssertNumberOfCalls(t, "Upsert", 5)
}

func TestNextRunAt(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	next := nextRunAt(now, 12)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), next)

	next = nextRunAt(now, 10)
	assert.Equal(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC), next)

	next = nextRunAt(now, 99)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), next)
}
