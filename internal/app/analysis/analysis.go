/*
Package analysis produces conversation insights for a room: sentiment,
interest level, topics, and reply suggestions. Analysis always runs in the
background after a message is delivered and never blocks or fails delivery.
*/
package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"flirto/internal/app/store"
	"flirto/internal/pkg/logx"
)

// Result is one analysis of a room's recent conversation. It is pushed to
// the room's occupants and never persisted.
type Result struct {
	RoomID        int64     `json:"roomId"`
	MessageID     int64     `json:"messageId"`
	Sentiment     string    `json:"sentiment"`
	InterestLevel int       `json:"interestLevel"`
	Topics        []string  `json:"topics"`
	Language      string    `json:"language"`
	Suggestions   []string  `json:"suggestions"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Sentiment labels used in Result.Sentiment.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Analyzer turns a slice of recent messages, oldest-first, into a Result.
type Analyzer interface {
	Analyze(ctx context.Context, history []store.Message) (Result, error)
}

// Publisher delivers a finished Result to the occupants of a room.
type Publisher func(roomID int64, result Result)

// HistoryReader is the slice of the store the dispatcher reads from.
type HistoryReader interface {
	RecentMessages(ctx context.Context, roomID int64, limit int) ([]store.Message, error)
}

// Dispatcher schedules analysis runs. Dispatch returns immediately; the run
// happens in its own goroutine and every failure is swallowed and logged.
type Dispatcher struct {
	store    HistoryReader
	analyzer Analyzer
	publish  Publisher
	history  int
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewDispatcher wires a Dispatcher reading up to historyLimit recent messages
// per run.
func NewDispatcher(s HistoryReader, analyzer Analyzer, publish Publisher, historyLimit int, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store:    s,
		analyzer: analyzer,
		publish:  publish,
		history:  historyLimit,
		timeout:  timeout,
		logger:   logx.Logger().With().Str("component", "AnalysisDispatcher").Logger(),
	}
}

// Dispatch schedules one analysis of the room as of messageID.
func (d *Dispatcher) Dispatch(roomID, messageID int64) {
	go d.run(roomID, messageID)
}

func (d *Dispatcher) run(roomID, messageID int64) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Interface("panic", r).
				Int64("room_id", roomID).
				Msg("Analysis run panicked.")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	history, err := d.store.RecentMessages(ctx, roomID, d.history)
	if err != nil {
		d.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Skipping analysis, could not load history.")
		return
	}
	if len(history) == 0 {
		return
	}

	result, err := d.analyzer.Analyze(ctx, history)
	if err != nil {
		d.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Analysis failed.")
		return
	}

	result.RoomID = roomID
	result.MessageID = messageID
	result.CreatedAt = time.Now().UTC()

	d.publish(roomID, result)
}
