package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
)

/* ──── helpers ──── */

// scriptedChannel returns errs[i] for the i-th Send and nil once the script runs out.
type scriptedChannel struct {
	mu    sync.Mutex
	errs  []error
	sent  []string
	calls int
}

func (c *scriptedChannel) Name() string { return "test" }

func (c *scriptedChannel) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return c.errs[i]
	}
	c.sent = append(c.sent, text)
	return nil
}

type sleepRecorder struct {
	waits  []time.Duration
	failAt int // 1-based call index that returns context.Canceled; 0 never
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	if s.failAt > 0 && len(s.waits) == s.failAt {
		return context.Canceled
	}
	return nil
}

func newTestService(ch Channel, rec *sleepRecorder) *Service {
	svc := NewService(ch, DefaultConfig(), nil)
	svc.sleep = rec.sleep
	return svc
}

func notice(t *testing.T, title string, day int) *entity.Notice {
	t.Helper()
	n, err := entity.NewNotice(title, "MAKAUT WB",
		fmt.Sprintf("https://makautwb.ac.in/n/%d", day),
		time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC), time.Now())
	require.NoError(t, err)
	return n
}

func rateLimited(d time.Duration) error {
	return &DeliveryError{Kind: RateLimited, RetryAfter: d, Err: errors.New("429")}
}

func transient() error {
	return &DeliveryError{Kind: NetworkTransient, Err: errors.New("timeout")}
}

/* ──── 1. Ordering & pacing ──── */

func TestDeliverInOrder_SendsInGivenOrder(t *testing.T) {
	ch := &scriptedChannel{}
	rec := &sleepRecorder{}
	batch := []*entity.Notice{notice(t, "first", 1), notice(t, "second", 2), notice(t, "third", 3)}

	report := newTestService(ch, rec).DeliverInOrder(context.Background(), batch)

	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, 0, report.Abandoned)
	require.Len(t, ch.sent, 3)
	assert.Contains(t, ch.sent[0], "first")
	assert.Contains(t, ch.sent[1], "second")
	assert.Contains(t, ch.sent[2], "third")
	assert.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second, 4 * time.Second}, rec.waits)
}

func TestDeliverInOrder_Empty(t *testing.T) {
	report := newTestService(&scriptedChannel{}, &sleepRecorder{}).DeliverInOrder(context.Background(), nil)

	assert.Equal(t, Report{Messages: []MessageResult{}}, report)
}

/* ──── 2. Rate limiting ──── */

func TestDeliverInOrder_RateLimitDoesNotConsumeBudget(t *testing.T) {
	ch := &scriptedChannel{errs: []error{rateLimited(3 * time.Second), rateLimited(3 * time.Second), rateLimited(7 * time.Second)}}
	rec := &sleepRecorder{}

	report := newTestService(ch, rec).DeliverInOrder(context.Background(), []*entity.Notice{notice(t, "exam", 1)})

	require.Len(t, report.Messages, 1)
	res := report.Messages[0]
	assert.Equal(t, Delivered, res.Outcome)
	assert.Equal(t, 0, res.TransientRetries)
	assert.Equal(t, 3, res.RateLimitWaits)
	assert.Equal(t, 4, ch.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 9 * time.Second, 4 * time.Second}, rec.waits)
}

func TestDeliverInOrder_RateLimitCeiling(t *testing.T) {
	cfg := DefaultConfig()
	errs := make([]error, cfg.MaxRateLimitWaits+1)
	for i := range errs {
		errs[i] = rateLimited(time.Second)
	}
	ch := &scriptedChannel{errs: errs}

	report := newTestService(ch, &sleepRecorder{}).DeliverInOrder(context.Background(), []*entity.Notice{notice(t, "x", 1)})

	assert.Equal(t, 1, report.Abandoned)
	assert.Equal(t, cfg.MaxRateLimitWaits+1, ch.calls)
	assert.Equal(t, RateLimited, report.Messages[0].LastError.Kind)
}

/* ──── 3. Transient errors ──── */

func TestDeliverInOrder_TransientRetryThenSuccess(t *testing.T) {
	ch := &scriptedChannel{errs: []error{transient(), transient()}}
	rec := &sleepRecorder{}

	report := newTestService(ch, rec).DeliverInOrder(context.Background(), []*entity.Notice{notice(t, "x", 1)})

	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 2, report.Messages[0].TransientRetries)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 4 * time.Second}, rec.waits)
}

func TestDeliverInOrder_BudgetExhaustedMovesOn(t *testing.T) {
	errs := []error{transient(), transient(), transient(), transient(), transient()}
	ch := &scriptedChannel{errs: errs}
	batch := []*entity.Notice{notice(t, "doomed", 1), notice(t, "next", 2)}

	report := newTestService(ch, &sleepRecorder{}).DeliverInOrder(context.Background(), batch)

	assert.Equal(t, 1, report.Abandoned)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 6, ch.calls, "5 failed attempts then the next message")
	assert.Equal(t, Abandoned, report.Messages[0].Outcome)
	assert.Equal(t, 5, report.Messages[0].TransientRetries)
	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "next")
}

func TestDeliverInOrder_UnclassifiedErrorIsTransient(t *testing.T) {
	ch := &scriptedChannel{errs: []error{errors.New("eof")}}

	report := newTestService(ch, &sleepRecorder{}).DeliverInOrder(context.Background(), []*entity.Notice{notice(t, "x", 1)})

	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Messages[0].TransientRetries)
}

/* ──── 4. Permanent errors ──── */

func TestDeliverInOrder_PermanentAbandonsImmediately(t *testing.T) {
	for _, kind := range []DeliveryErrorKind{PermanentConfig, PermanentPermission} {
		t.Run(kind.String(), func(t *testing.T) {
			ch := &scriptedChannel{errs: []error{&DeliveryError{Kind: kind, Err: errors.New("bad")}}}
			rec := &sleepRecorder{}
			batch := []*entity.Notice{notice(t, "a", 1), notice(t, "b", 2)}

			report := newTestService(ch, rec).DeliverInOrder(context.Background(), batch)

			assert.Equal(t, 1, report.Abandoned)
			assert.Equal(t, 1, report.Delivered)
			assert.Equal(t, 2, ch.calls)
			assert.Equal(t, kind, report.Messages[0].LastError.Kind)
			assert.Equal(t, []time.Duration{4 * time.Second}, rec.waits, "no backoff for permanent errors")
		})
	}
}

/* ──── 5. Cancellation ──── */

func TestDeliverInOrder_CancelDuringBackoffStopsBatch(t *testing.T) {
	ch := &scriptedChannel{errs: []error{transient()}}
	rec := &sleepRecorder{failAt: 1}
	batch := []*entity.Notice{notice(t, "a", 1), notice(t, "b", 2)}

	report := newTestService(ch, rec).DeliverInOrder(context.Background(), batch)

	assert.True(t, report.Interrupted)
	assert.Equal(t, 1, ch.calls)
	require.Len(t, report.Messages, 1)
	assert.Equal(t, Interrupted, report.Messages[0].Outcome)
}

func TestDeliverInOrder_CancelledContextSendsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := &scriptedChannel{}

	report := newTestService(ch, &sleepRecorder{}).DeliverInOrder(ctx, []*entity.Notice{notice(t, "a", 1)})

	assert.True(t, report.Interrupted)
	assert.Equal(t, 0, ch.calls)
}

func TestDeliverInOrder_RealSleepObservesCancel(t *testing.T) {
	ch := &scriptedChannel{errs: []error{rateLimited(time.Hour)}}
	svc := NewService(ch, DefaultConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	report := svc.DeliverInOrder(ctx, []*entity.Notice{notice(t, "a", 1)})

	assert.True(t, report.Interrupted)
	assert.Less(t, time.Since(start), 5*time.Second)
}

/* ──── 6. Config & errors ──── */

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.RetryBudget = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.InterMessageDelay = -time.Second
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxRateLimitWaits = 0
	assert.Error(t, bad.Validate())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	de := &DeliveryError{Kind: PermanentPermission, Err: errors.New("forbidden")}
	assert.Same(t, de, Classify(fmt.Errorf("wrapped: %w", de)))

	got := Classify(errors.New("reset"))
	assert.Equal(t, NetworkTransient, got.Kind)
}

func TestDeliveryError_Error(t *testing.T) {
	rl := &DeliveryError{Kind: RateLimited, RetryAfter: 3 * time.Second, Err: errors.New("too many")}
	assert.Equal(t, "rate_limited (retry after 3s): too many", rl.Error())

	pc := &DeliveryError{Kind: PermanentConfig, Err: errors.New("chat not found")}
	assert.Equal(t, "permanent_config: chat not found", pc.Error())
	assert.True(t, strings.HasPrefix(DeliveryErrorKind(0).String(), "unknown"))
}
