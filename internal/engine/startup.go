package engine

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// EnsureReady checks that the Engine is reachable and that model is
// available. Backends implementing ModelPuller download a missing model with
// progress written to w; for the others a missing model is only reported.
// Finally the model is warmed up with a trivial request so the first user
// query does not pay the cold-load penalty. A failed warm-up is not fatal.
func EnsureReady(ctx context.Context, e Engine, model string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("inference backend is not running; please ensure it is started")
	}
	if model == "" {
		return nil
	}

	if p, ok := e.(ModelPuller); ok {
		if err := pullIfMissing(ctx, p, model, w); err != nil {
			return err
		}
	} else if models, err := e.ListModels(ctx); err == nil && !hasModel(models, model) {
		fmt.Fprintf(w, "model %s: not listed by backend (available: %s)\n", model, strings.Join(models, ", "))
	} else {
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	fmt.Fprintf(w, "model %s: warming up...\n", model)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := e.Chat(warmCtx, model, []Message{{Role: RoleUser, Content: "ping"}}, ChatOptions{})
	if err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", model)
	}
	return nil
}

func pullIfMissing(ctx context.Context, p ModelPuller, model string, w io.Writer) error {
	if p.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return nil
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := p.PullModel(ctx, model, func(pp PullProgress) {
		if pp.Total > 0 {
			pct := float64(pp.Completed) / float64(pp.Total) * 100
			fmt.Fprintf(w, "  %s %.0f%%\n", pp.Status, pct)
		} else {
			fmt.Fprintf(w, "  %s\n", pp.Status)
		}
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}

func hasModel(models []string, name string) bool {
	return slices.ContainsFunc(models, func(m string) bool {
		return m == name || strings.HasPrefix(m, name+":")
	})
}
