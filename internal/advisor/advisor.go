// Package advisor holds the small AI-assisted helpers around search: empty
// state suggestions, eco tips, best-action advice, autocomplete, category
// classification and listing descriptions.
//
// All helpers except DescribeItem swallow AI failures and return their zero
// value, logging at Warn.
package advisor

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/ecoswap/internal/transport"
)

// Category is the coarse item class used to pick nearby place categories.
type Category string

const (
	CategoryEWaste  Category = "E-waste"
	CategoryFashion Category = "Fashion"
	CategoryTools   Category = "Tools"

	// DefaultCategory is used when classification yields nothing.
	DefaultCategory = CategoryEWaste
)

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "e-waste":
		return CategoryEWaste, true
	case "fashion":
		return CategoryFashion, true
	case "tools":
		return CategoryTools, true
	}
	return "", false
}

// Action is a waste-hierarchy recommendation.
type Action string

const (
	ActionReuse   Action = "Reuse"
	ActionReduce  Action = "Reduce"
	ActionRecycle Action = "Recycle"
)

// ActionSuggestion is the model's best-action advice for an item.
type ActionSuggestion struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

const (
	// TipPrefix starts every eco tip.
	TipPrefix = "💡"
	// MinAutocompleteLen is the shortest partial input sent for completion.
	MinAutocompleteLen = 3
	// MaxSuggestions caps autocomplete results.
	MaxSuggestions = 5
)

// Completer sends a prompt to the model. *transport.Transport implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Advisor runs the helper prompts. A nil Completer disables every helper.
type Advisor struct {
	ai     Completer
	logger *slog.Logger
}

// New creates an Advisor.
func New(ai Completer) *Advisor {
	return &Advisor{ai: ai, logger: slog.Default().With("component", "advisor")}
}

func (a *Advisor) complete(ctx context.Context, op, prompt string) (string, bool) {
	if a.ai == nil {
		return "", false
	}
	resp, err := a.ai.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warn("ai helper failed", "op", op, "error", err)
		return "", false
	}
	return resp, true
}

// EmptyStateSuggestion explains what to try when a search for item to
// perform action found nothing. Returns "" on failure.
func (a *Advisor) EmptyStateSuggestion(ctx context.Context, item, action string) string {
	resp, ok := a.complete(ctx, "empty_state", emptyStatePrompt(item, action))
	if !ok {
		return ""
	}
	return strings.TrimSpace(resp)
}

// EcoTip returns a one or two sentence environmental tip that starts with
// TipPrefix. Returns "" on failure.
func (a *Advisor) EcoTip(ctx context.Context, item, action string) string {
	resp, ok := a.complete(ctx, "eco_tip", ecoTipPrompt(item, action))
	if !ok {
		return ""
	}
	tip := strings.TrimSpace(resp)
	if tip == "" {
		return ""
	}
	if !strings.HasPrefix(tip, TipPrefix) {
		tip = TipPrefix + " " + tip
	}
	return tip
}

// SuggestAction asks which of Reuse, Reduce or Recycle suits item best.
// Returns nil on failure or when the model names another action.
func (a *Advisor) SuggestAction(ctx context.Context, item string, category Category) *ActionSuggestion {
	resp, ok := a.complete(ctx, "suggest_action", actionPrompt(item, category))
	if !ok {
		return nil
	}
	var s ActionSuggestion
	if err := transport.DecodeJSON(resp, &s); err != nil {
		a.logger.Warn("ai helper response rejected", "op", "suggest_action", "error", err)
		return nil
	}
	switch strings.ToLower(string(s.Action)) {
	case "reuse":
		s.Action = ActionReuse
	case "reduce":
		s.Action = ActionReduce
	case "recycle":
		s.Action = ActionRecycle
	default:
		a.logger.Warn("ai helper response rejected", "op", "suggest_action", "action", s.Action)
		return nil
	}
	s.Reason = strings.TrimSpace(s.Reason)
	return &s
}

// Autocomplete suggests up to MaxSuggestions item names completing partial.
// Inputs shorter than MinAutocompleteLen runes return an empty list without
// calling the model.
func (a *Advisor) Autocomplete(ctx context.Context, partial string) []string {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < MinAutocompleteLen {
		return []string{}
	}
	resp, ok := a.complete(ctx, "autocomplete", autocompletePrompt(partial))
	if !ok {
		return []string{}
	}
	var out []string
	if err := transport.DecodeJSON(resp, &out); err != nil {
		a.logger.Warn("ai helper response rejected", "op", "autocomplete", "error", err)
		return []string{}
	}
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

var categoryPattern = regexp.MustCompile(`(?i)\b(E-waste|Fashion|Tools)\b`)

// Classify maps item to a Category. Returns "" on failure or when the
// answer names no known category.
func (a *Advisor) Classify(ctx context.Context, item string) Category {
	resp, ok := a.complete(ctx, "classify", classifyPrompt(item))
	if !ok {
		return ""
	}
	m := categoryPattern.FindStringSubmatch(resp)
	if m == nil {
		a.logger.Debug("classification matched no category", "response", resp)
		return ""
	}
	c, _ := ParseCategory(m[1])
	return c
}

// DescribeItem drafts a short listing description for item. Unlike the
// other helpers it reports failure, wrapping transport.ErrAIUnavailable,
// since the caller asked for the text explicitly.
func (a *Advisor) DescribeItem(ctx context.Context, item string) (string, error) {
	if a.ai == nil {
		return "", transport.ErrAIUnavailable
	}
	resp, err := a.ai.Complete(ctx, describePrompt(item))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
