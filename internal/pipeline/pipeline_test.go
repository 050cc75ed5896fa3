package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
	"github.com/couchcryptid/weather-anomaly-etl/internal/observability"
)

// Stage mocks.

type mockFetcher struct {
	obs *domain.Observation
	err error
}

func (m *mockFetcher) FetchCurrent(context.Context) (*domain.Observation, error) {
	return m.obs, m.err
}

// mockSource is safe for concurrent use: the scheduler tests drive it from a
// goroutine while the test body inspects it.
type mockSource struct {
	mu    sync.Mutex
	rows  []domain.RawRow
	err   error
	calls int
}

func (m *mockSource) LoadRaw(context.Context) ([]domain.RawRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.rows, m.err
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockSource) set(rows []domain.RawRow, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
	m.err = err
}

type mockPublisher struct {
	mu        sync.Mutex
	published [][]domain.WideRow
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, rows []domain.WideRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, rows)
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type mockSink struct {
	published [][]domain.WideRow
	err       error
}

func (m *mockSink) PublishRows(_ context.Context, rows []domain.WideRow) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, rows)
	return nil
}

func intp(v int) *int         { return &v }
func f64p(v float64) *float64 { return &v }
func strp(v string) *string   { return &v }

// historicalRows gives three Junes of TMAX for one (month, day) so the daily
// baseline is well defined, plus one TMIN row to pivot alongside.
func historicalRows() []domain.RawRow {
	return []domain.RawRow{
		{Year: intp(2018), Month: intp(6), Day: intp(1), Element: strp("TMAX"), ValueC: f64p(10)},
		{Year: intp(2019), Month: intp(6), Day: intp(1), Element: strp("TMAX"), ValueC: f64p(14)},
		{Year: intp(2020), Month: intp(6), Day: intp(1), Element: strp("TMAX"), ValueC: f64p(18)},
		{Year: intp(2020), Month: intp(6), Day: intp(1), Element: strp("TMIN"), ValueC: f64p(8)},
	}
}

func newTestPipeline(f *mockFetcher, s *mockSource, pub *mockPublisher, sink RowSink, clock clockwork.Clock) *Pipeline {
	return New(f, s, pub, sink,
		slog.New(slog.DiscardHandler), observability.NewMetricsForTesting(), clock, time.Hour)
}

func TestRunOnce_PublishesCombinedTable(t *testing.T) {
	obs := &domain.Observation{
		TemperatureC: 24.5,
		Time:         time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
		Windspeed:    f64p(11.2),
	}
	fetcher := &mockFetcher{obs: obs}
	source := &mockSource{rows: historicalRows()}
	publisher := &mockPublisher{}

	p := newTestPipeline(fetcher, source, publisher, nil, clockwork.NewFakeClock())
	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.RawRows)
	assert.Equal(t, 4, res.CanonicalRows)
	assert.True(t, res.LiveFetched)
	assert.Empty(t, res.LiveError)

	require.Len(t, publisher.published, 1)
	rows := publisher.published[0]
	// Three historical dates plus the live reading.
	require.Len(t, rows, 4)

	liveRow := rows[len(rows)-1]
	assert.Equal(t, "2026-08-25 14:30:00", liveRow.Date)
	assert.Equal(t, domain.SourceAPI, liveRow.Source)
	require.NotNil(t, liveRow.TMAX)
	assert.Equal(t, 24.5, *liveRow.TMAX)
	// No August baseline exists, so the live reading carries no flags.
	assert.Nil(t, liveRow.DailyFlag)
	assert.Nil(t, liveRow.MonthlyFlag)

	assert.Equal(t, 4, res.PublishedRows)
}

func TestRunOnce_LiveReadingFlaggedAgainstBaseline(t *testing.T) {
	// 24.5 °C against a June 1 daily mean of 14 °C classifies Above.
	obs := &domain.Observation{
		TemperatureC: 24.5,
		Time:         time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{obs: obs}, &mockSource{rows: historicalRows()}, publisher, nil, clockwork.NewFakeClock())

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	rows := publisher.published[0]
	liveRow := rows[len(rows)-1]
	require.NotNil(t, liveRow.DailyFlag)
	assert.Equal(t, domain.FlagAbove, *liveRow.DailyFlag)
	require.NotNil(t, liveRow.MonthlyFlag)
	assert.Equal(t, domain.FlagAbove, *liveRow.MonthlyFlag)
}

func TestRunOnce_LiveFetchFailureDegrades(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("upstream down")}
	publisher := &mockPublisher{}
	p := newTestPipeline(fetcher, &mockSource{rows: historicalRows()}, publisher, nil, clockwork.NewFakeClock())

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err, "a failed live fetch must not fail the run")

	assert.False(t, res.LiveFetched)
	assert.Contains(t, res.LiveError, "upstream down")
	require.Len(t, publisher.published, 1)
	for _, row := range publisher.published[0] {
		assert.NotEqual(t, domain.SourceAPI, row.Source)
	}
}

func TestRunOnce_HistoricalLoadFailureIsFatal(t *testing.T) {
	source := &mockSource{err: errors.New("bucket unreachable")}
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, source, publisher, nil, clockwork.NewFakeClock())

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load historical rows")
	assert.Empty(t, publisher.published)
}

func TestRunOnce_PublishFailureIsFatal(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("access denied")}
	p := newTestPipeline(&mockFetcher{}, &mockSource{rows: historicalRows()}, publisher, nil, clockwork.NewFakeClock())

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish artifact")
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestRunOnce_SinkFailureDoesNotFailRun(t *testing.T) {
	sink := &mockSink{err: errors.New("broker down")}
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, &mockSource{rows: historicalRows()}, publisher, sink, clockwork.NewFakeClock())

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)
}

func TestRunOnce_SinkReceivesPublishedRows(t *testing.T) {
	sink := &mockSink{}
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, &mockSource{rows: historicalRows()}, publisher, sink, clockwork.NewFakeClock())

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.published, 1)
	assert.Equal(t, publisher.published[0], sink.published[0])
}

func TestCheckReadiness(t *testing.T) {
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, &mockSource{rows: historicalRows()}, publisher, nil, clockwork.NewFakeClock())

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestLastResult(t *testing.T) {
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, &mockSource{rows: historicalRows()}, publisher, nil, clockwork.NewFakeClock())

	_, ok := p.LastResult()
	assert.False(t, ok)

	want, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	got, ok := p.LastResult()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRun_RepeatsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &mockSource{rows: historicalRows()}
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, source, publisher, nil, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	// First run fires immediately; wait for the loop to block on the ticker.
	require.Eventually(t, func() bool { return publisher.count() == 1 }, time.Second, 5*time.Millisecond)
	clock.BlockUntilContext(ctx, 1)

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return publisher.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_KeepsGoingAfterFailedRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &mockSource{err: errors.New("bucket unreachable")}
	publisher := &mockPublisher{}
	p := newTestPipeline(&mockFetcher{}, source, publisher, nil, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool { return source.callCount() == 1 }, time.Second, 5*time.Millisecond)
	clock.BlockUntilContext(ctx, 1)

	source.set(historicalRows(), nil)
	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return publisher.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
