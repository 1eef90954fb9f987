package transcript

import (
	"strings"

	"github.com/shafin2/skillsphere-backend/internal/repository"
	"github.com/shafin2/skillsphere-backend/internal/transcriber"
)

const (
	maxKeyPoints   = 5
	maxTopics      = 10
	maxActionItems = 10
)

var actionCues = []string{
	"action item",
	"next step",
	"todo",
	"to do",
	"make sure",
	"remember to",
	"don't forget",
	"you should",
	"we should",
	"i will",
	"i'll",
	"let's",
	"need to",
	"try to",
	"homework",
}

func BuildSummary(result transcriber.Result) repository.TranscriptSummary {
	summary := repository.TranscriptSummary{
		KeyPoints:   []string{},
		ActionItems: []string{},
		Topics:      []string{},
		Sentiment:   string(transcriber.SentimentNeutral),
	}
	for _, h := range result.Highlights {
		if len(summary.KeyPoints) == maxKeyPoints {
			break
		}
		if h = strings.TrimSpace(h); h != "" {
			summary.KeyPoints = append(summary.KeyPoints, h)
		}
	}

	seen := map[string]struct{}{}
	for _, e := range result.Entities {
		if len(summary.Topics) == maxTopics {
			break
		}
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		summary.Topics = append(summary.Topics, e)
	}

	var positive, negative int
	for _, s := range result.Sentiments {
		switch s {
		case transcriber.SentimentPositive:
			positive++
		case transcriber.SentimentNegative:
			negative++
		}
	}
	switch {
	case positive > negative:
		summary.Sentiment = string(transcriber.SentimentPositive)
	case negative > positive:
		summary.Sentiment = string(transcriber.SentimentNegative)
	}

	for _, u := range result.Utterances {
		for _, sentence := range splitSentences(u.Text) {
			if len(summary.ActionItems) == maxActionItems {
				return summary
			}
			if startsWithActionCue(sentence) {
				summary.ActionItems = append(summary.ActionItems, sentence)
			}
		}
	}
	return summary
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func startsWithActionCue(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, cue := range actionCues {
		if strings.HasPrefix(lower, cue) {
			return true
		}
	}
	return false
}
