package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flirto/internal/app/store"
)

type fakeHistory struct {
	msgs []store.Message
	err  error
}

func (f *fakeHistory) RecentMessages(_ context.Context, roomID int64, limit int) ([]store.Message, error) {
	return f.msgs, f.err
}

type fixedAnalyzer struct {
	result Result
	err    error
}

func (a *fixedAnalyzer) Analyze(_ context.Context, _ []store.Message) (Result, error) {
	return a.result, a.err
}

func TestDispatcherPublishesResult(t *testing.T) {
	published := make(chan Result, 1)

	d := NewDispatcher(
		&fakeHistory{msgs: history("hello", "how are you?")},
		&fixedAnalyzer{result: Result{Sentiment: SentimentPositive, InterestLevel: 70}},
		func(roomID int64, result Result) {
			assert.Equal(t, int64(5), roomID)
			published <- result
		},
		50, time.Second,
	)

	d.Dispatch(5, 42)

	select {
	case result := <-published:
		assert.Equal(t, SentimentPositive, result.Sentiment)
		assert.Equal(t, int64(5), result.RoomID)
		assert.Equal(t, int64(42), result.MessageID)
		assert.False(t, result.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("analysis result was never published")
	}
}

func TestDispatcherSwallowsAnalyzerFailure(t *testing.T) {
	published := make(chan Result, 1)

	d := NewDispatcher(
		&fakeHistory{msgs: history("hello")},
		&fixedAnalyzer{err: fmt.Errorf("model unavailable")},
		func(_ int64, result Result) { published <- result },
		50, time.Second,
	)

	require.NotPanics(t, func() { d.Dispatch(5, 42) })

	select {
	case <-published:
		t.Fatal("failed analysis must not publish")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcherSkipsEmptyHistory(t *testing.T) {
	published := make(chan Result, 1)

	d := NewDispatcher(
		&fakeHistory{},
		&fixedAnalyzer{result: Result{Sentiment: SentimentNeutral}},
		func(_ int64, result Result) { published <- result },
		50, time.Second,
	)

	d.Dispatch(5, 42)

	select {
	case <-published:
		t.Fatal("empty history must not be analyzed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceFallsBackToLocal(t *testing.T) {
	local, err := NewKeywordAnalyzer()
	require.NoError(t, err)

	svc := NewService(&fixedAnalyzer{err: fmt.Errorf("remote down")}, local)

	result, err := svc.Analyze(context.Background(), history("I love this, it is great"))
	require.NoError(t, err)
	assert.Equal(t, SentimentPositive, result.Sentiment)
}

func TestServicePrefersPrimary(t *testing.T) {
	svc := NewService(
		&fixedAnalyzer{result: Result{Sentiment: SentimentNegative}},
		&fixedAnalyzer{result: Result{Sentiment: SentimentPositive}},
	)

	result, err := svc.Analyze(context.Background(), history("anything"))
	require.NoError(t, err)
	assert.Equal(t, SentimentNegative, result.Sentiment)
}
