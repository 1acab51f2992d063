// Package relevance re-ranks and filters candidate lists with a language
// model. Every operation is best effort: on any failure the input list is
// returned unchanged, so enrichment can never reduce what the user sees.
package relevance

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/transport"
)

const (
	// ScoreThreshold is the lowest score kept by FilterByRelevance.
	ScoreThreshold = 5
	// MaxScore is the top of the scoring scale.
	MaxScore = 10
)

// Completer sends a prompt to the model. *transport.Transport implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Scorable is a value the model can judge: a stored item or a nearby place.
type Scorable[T any] interface {
	// Label is the primary name shown to the model.
	Label() string
	// Detail is the secondary text shown next to the label.
	Detail() string
	// WithAnnotation returns a copy carrying the model's judgment.
	WithAnnotation(a *items.Annotation) T
}

// Filter re-ranks candidates of type T.
type Filter[T Scorable[T]] interface {
	// FilterByRelevance keeps candidates the model scores at least
	// ScoreThreshold, annotated and sorted by score descending. The input
	// list is returned unchanged on any failure.
	FilterByRelevance(ctx context.Context, intent string, kind Kind, cands []T) []T
	// RankByQuery reorders candidates by the model's ranking of their labels.
	// Candidates the model does not name keep their relative order at the end.
	RankByQuery(ctx context.Context, query string, cands []T) []T
}

// New returns an LLMFilter if enabled, NoOpFilter otherwise.
func New[T Scorable[T]](ai Completer, enabled bool) Filter[T] {
	if !enabled || ai == nil {
		return NoOpFilter[T]{}
	}
	return &LLMFilter[T]{
		ai:     ai,
		logger: slog.Default().With("component", "relevance"),
	}
}

// LLMFilter asks the model to score all candidates in a single request.
type LLMFilter[T Scorable[T]] struct {
	ai     Completer
	logger *slog.Logger
}

// judgment is one element of the model's scoring array.
type judgment struct {
	Index  *int    `json:"index"`
	Score  *int    `json:"score"`
	Reason *string `json:"reason"`
}

func (f *LLMFilter[T]) FilterByRelevance(ctx context.Context, intent string, kind Kind, cands []T) []T {
	if len(cands) == 0 {
		return cands
	}

	resp, err := f.ai.Complete(ctx, buildScoringPrompt(intent, kind, cands))
	if err != nil {
		f.logger.Warn("relevance filtering failed, returning unfiltered", "kind", kind, "error", err)
		return cands
	}

	out, err := applyJudgments(resp, cands)
	if err != nil {
		f.logger.Warn("relevance response rejected, returning unfiltered", "kind", kind, "error", err)
		return cands
	}
	f.logger.Debug("relevance filtered", "kind", kind, "in", len(cands), "out", len(out))
	return out
}

// applyJudgments validates the whole response before building any output:
// one bad element rejects the lot.
func applyJudgments[T Scorable[T]](resp string, cands []T) ([]T, error) {
	var js []judgment
	if err := json.Unmarshal([]byte(extractJSON(resp, '[', ']')), &js); err != nil {
		return nil, fmt.Errorf("%w: parsing scores: %v", transport.ErrAIUnavailable, err)
	}

	type scored struct {
		cand  T
		score int
	}
	kept := make([]scored, 0, len(js))
	seen := make(map[int]bool, len(js))
	for _, j := range js {
		if j.Index == nil || j.Score == nil {
			return nil, errors.New("judgment missing index or score")
		}
		idx, score := *j.Index, *j.Score
		if idx < 1 || idx > len(cands) {
			return nil, fmt.Errorf("index %d out of range 1..%d", idx, len(cands))
		}
		if seen[idx] {
			return nil, fmt.Errorf("index %d judged twice", idx)
		}
		seen[idx] = true
		if score < 0 || score > MaxScore {
			return nil, fmt.Errorf("score %d out of range 0..%d", score, MaxScore)
		}
		if score < ScoreThreshold {
			continue
		}
		reason := ""
		if j.Reason != nil {
			reason = *j.Reason
		}
		kept = append(kept, scored{
			cand:  cands[idx-1].WithAnnotation(items.NewAnnotation(score, reason)),
			score: score,
		})
	}

	slices.SortStableFunc(kept, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]T, len(kept))
	for i, k := range kept {
		out[i] = k.cand
	}
	return out, nil
}

func (f *LLMFilter[T]) RankByQuery(ctx context.Context, query string, cands []T) []T {
	if len(cands) == 0 {
		return cands
	}

	resp, err := f.ai.Complete(ctx, buildRankingPrompt(query, cands))
	if err != nil {
		f.logger.Warn("relevance ranking failed, using original order", "error", err)
		return cands
	}

	var names []string
	if err := json.Unmarshal([]byte(extractJSON(resp, '[', ']')), &names); err != nil {
		f.logger.Warn("relevance ranking response rejected, using original order", "error", err)
		return cands
	}

	used := make([]bool, len(cands))
	out := make([]T, 0, len(cands))
	for _, name := range names {
		for i, c := range cands {
			if !used[i] && c.Label() == name {
				used[i] = true
				out = append(out, c)
				break
			}
		}
	}
	for i, c := range cands {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

// extractJSON trims conversational filler around a JSON value by keeping the
// span from the first opening to the last closing delimiter. Small local models
// often prepend "Here are the results:" despite instructions. If no span is
// found s is returned as is and the caller's parse fails.
func extractJSON(s string, opening, closing byte) string {
	s = transport.StripFences(s)
	start := strings.IndexByte(s, opening)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

// NoOpFilter passes candidates through unchanged. Used when AI is disabled.
type NoOpFilter[T Scorable[T]] struct{}

func (NoOpFilter[T]) FilterByRelevance(_ context.Context, _ string, _ Kind, cands []T) []T {
	return cands
}

func (NoOpFilter[T]) RankByQuery(_ context.Context, _ string, cands []T) []T {
	return cands
}
