package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flirto/internal/app/store"
)

func history(bodies ...string) []store.Message {
	msgs := make([]store.Message, 0, len(bodies))
	for i, b := range bodies {
		msgs = append(msgs, store.Message{
			ID:       int64(i + 1),
			RoomID:   1,
			UserID:   int64(i%2 + 1),
			Username: "user",
			Body:     b,
		})
	}
	return msgs
}

func TestKeywordAnalyzerPositiveConversation(t *testing.T) {
	a, err := NewKeywordAnalyzer()
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), history(
		"I love this, the trip to the beach was amazing!",
		"Haha that sounds wonderful, I am so excited to hear more?",
	))
	require.NoError(t, err)

	assert.Equal(t, SentimentPositive, result.Sentiment)
	assert.Contains(t, result.Topics, "travel")
	assert.Greater(t, result.InterestLevel, 50)
	assert.NotEmpty(t, result.Suggestions)
	assert.NotEmpty(t, result.Language)
}

func TestKeywordAnalyzerNegativeConversation(t *testing.T) {
	a, err := NewKeywordAnalyzer()
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), history(
		"This is boring and I hate it",
		"whatever, I am busy",
	))
	require.NoError(t, err)

	assert.Equal(t, SentimentNegative, result.Sentiment)
	assert.Less(t, result.InterestLevel, 50)
}

func TestKeywordAnalyzerNeutralConversation(t *testing.T) {
	a, err := NewKeywordAnalyzer()
	require.NoError(t, err)

	result, err := a.Analyze(context.Background(), history("the meeting is at three"))
	require.NoError(t, err)

	assert.Equal(t, SentimentNeutral, result.Sentiment)
	assert.Contains(t, result.Topics, "work")
}

func TestInterestLevelStaysInBounds(t *testing.T) {
	a, err := NewKeywordAnalyzer()
	require.NoError(t, err)

	bodies := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		bodies = append(bodies, "hate hate hate awful terrible stop")
	}

	result, err := a.Analyze(context.Background(), history(bodies...))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.InterestLevel, 0)
	assert.LessOrEqual(t, result.InterestLevel, 100)
}

func TestParseVerdictToleratesCodeFences(t *testing.T) {
	text := "```json\n{\"sentiment\":\"positive\",\"interestLevel\":80,\"topics\":[\"food\"],\"language\":\"eng\",\"suggestions\":[\"ask about dinner\"]}\n```"

	result, err := parseVerdict(text)
	require.NoError(t, err)
	assert.Equal(t, SentimentPositive, result.Sentiment)
	assert.Equal(t, 80, result.InterestLevel)
	assert.Equal(t, []string{"food"}, result.Topics)
}

func TestParseVerdictClampsAndDefaults(t *testing.T) {
	result, err := parseVerdict(`{"sentiment":"ecstatic","interestLevel":250}`)
	require.NoError(t, err)
	assert.Equal(t, SentimentNeutral, result.Sentiment)
	assert.Equal(t, 100, result.InterestLevel)

	_, err = parseVerdict("no json here")
	assert.Error(t, err)
}
