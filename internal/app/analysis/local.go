package analysis

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"

	"flirto/internal/app/store"
)

var positiveWords = []string{
	"love", "great", "awesome", "happy", "fun", "nice", "beautiful",
	"amazing", "wonderful", "haha", "lol", "cool", "sweet", "excited",
	"like you", "miss you", "good",
}

var negativeWords = []string{
	"hate", "boring", "sad", "angry", "annoying", "tired", "bad",
	"awful", "terrible", "stop", "leave me", "whatever", "busy",
}

var topicWords = map[string][]string{
	"travel": {"travel", "trip", "vacation", "flight", "beach", "city"},
	"food":   {"food", "dinner", "lunch", "restaurant", "cooking", "coffee"},
	"music":  {"music", "song", "concert", "band", "playlist"},
	"movies": {"movie", "film", "series", "netflix", "show"},
	"sports": {"sport", "gym", "football", "running", "yoga", "game"},
	"work":   {"work", "job", "office", "meeting", "project"},
	"dating": {"date", "meet up", "drinks", "weekend", "together"},
}

// KeywordAnalyzer scores conversations with multi-pattern keyword matching
// and language detection. It needs no network and is the fallback when the
// remote analyzer is unavailable or unconfigured.
type KeywordAnalyzer struct {
	positive *goahocorasick.Machine
	negative *goahocorasick.Machine
	topics   map[string]*goahocorasick.Machine
}

// NewKeywordAnalyzer builds the keyword automatons once, up front.
func NewKeywordAnalyzer() (*KeywordAnalyzer, error) {
	positive, err := buildMachine(positiveWords)
	if err != nil {
		return nil, err
	}
	negative, err := buildMachine(negativeWords)
	if err != nil {
		return nil, err
	}

	topics := make(map[string]*goahocorasick.Machine, len(topicWords))
	for topic, words := range topicWords {
		m, err := buildMachine(words)
		if err != nil {
			return nil, err
		}
		topics[topic] = m
	}

	return &KeywordAnalyzer{positive: positive, negative: negative, topics: topics}, nil
}

func buildMachine(words []string) (*goahocorasick.Machine, error) {
	dict := make([][]rune, 0, len(words))
	for _, w := range words {
		dict = append(dict, []rune(w))
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(dict); err != nil {
		return nil, err
	}
	return m, nil
}

// Analyze scores the whole history as one conversation.
func (a *KeywordAnalyzer) Analyze(_ context.Context, history []store.Message) (Result, error) {
	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(strings.ToLower(m.Body))
		sb.WriteByte('\n')
	}
	text := sb.String()
	runes := []rune(text)

	posHits := len(a.positive.MultiPatternSearch(runes, false))
	negHits := len(a.negative.MultiPatternSearch(runes, false))

	sentiment := SentimentNeutral
	switch {
	case posHits > negHits:
		sentiment = SentimentPositive
	case negHits > posHits:
		sentiment = SentimentNegative
	}

	topics := make([]string, 0, 3)
	for topic, machine := range a.topics {
		if len(machine.MultiPatternSearch(runes, false)) > 0 {
			topics = append(topics, topic)
		}
	}

	info := whatlanggo.Detect(text)

	return Result{
		Sentiment:     sentiment,
		InterestLevel: interestLevel(history, posHits, negHits),
		Topics:        topics,
		Language:      whatlanggo.LangToString(info.Lang),
		Suggestions:   suggestionsFor(sentiment, topics),
	}, nil
}

// interestLevel estimates engagement on a 0-100 scale from question density,
// message length, and sentiment balance.
func interestLevel(history []store.Message, posHits, negHits int) int {
	score := 50

	questions := 0
	totalRunes := 0
	for _, m := range history {
		if strings.Contains(m.Body, "?") {
			questions++
		}
		totalRunes += utf8.RuneCountInString(m.Body)
	}

	// Questions signal a wish to keep the conversation going.
	score += min(questions*5, 20)

	if len(history) > 0 {
		avg := totalRunes / len(history)
		switch {
		case avg > 80:
			score += 15
		case avg > 40:
			score += 10
		case avg < 10:
			score -= 10
		}
	}

	score += min(posHits*3, 15)
	score -= min(negHits*5, 25)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func suggestionsFor(sentiment string, topics []string) []string {
	suggestions := make([]string, 0, 3)

	switch sentiment {
	case SentimentPositive:
		suggestions = append(suggestions,
			"The mood is good. Suggest meeting up or a video call.",
			"Share something personal to deepen the conversation.")
	case SentimentNegative:
		suggestions = append(suggestions,
			"The tone is cooling off. Try changing the subject.",
			"Ask an open question about something they enjoy.")
	default:
		suggestions = append(suggestions,
			"Ask an open question to learn more about them.",
			"Share a fun story to liven things up.")
	}

	if len(topics) > 0 {
		suggestions = append(suggestions, "Keep building on the "+topics[0]+" topic, it seems to resonate.")
	}

	return suggestions
}
