package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type mockEngine struct {
	isRunning bool
	models    map[string]bool
	chatErr   error
	chats     int
}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []Message, _ ChatOptions) (string, error) {
	m.chats++
	return "pong", m.chatErr
}
func (m *mockEngine) IsRunning(_ context.Context) bool { return m.isRunning }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) {
	var names []string
	for n := range m.models {
		names = append(names, n)
	}
	return names, nil
}

type mockPuller struct {
	mockEngine
	pulled []string
}

func (m *mockPuller) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockPuller) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "success"})
	}
	return nil
}

func TestEnsureReady_ModelPresent(t *testing.T) {
	m := &mockPuller{mockEngine: mockEngine{isRunning: true, models: map[string]bool{"gemma3": true}}}
	if err := EnsureReady(context.Background(), m, "gemma3", io.Discard); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("expected no pulls, got %v", m.pulled)
	}
	if m.chats != 1 {
		t.Errorf("warm-up chats = %d, want 1", m.chats)
	}
}

func TestEnsureReady_PullsMissing(t *testing.T) {
	m := &mockPuller{mockEngine: mockEngine{isRunning: true, models: map[string]bool{}}}
	if err := EnsureReady(context.Background(), m, "gemma3", io.Discard); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "gemma3" {
		t.Errorf("expected pull of gemma3, got %v", m.pulled)
	}
}

func TestEnsureReady_NonPullerReportsMissing(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{"qwen3-8b": true}}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "google/gemma-3-4b", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !strings.Contains(out.String(), "not listed") {
		t.Errorf("output = %q, want missing-model notice", out.String())
	}
}

func TestEnsureReady_WarmupFailureNonFatal(t *testing.T) {
	m := &mockEngine{isRunning: true, models: map[string]bool{"m": true}, chatErr: errors.New("boom")}
	var out bytes.Buffer
	if err := EnsureReady(context.Background(), m, "m", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !strings.Contains(out.String(), "warm-up failed") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnsureReady_EngineDown(t *testing.T) {
	m := &mockEngine{isRunning: false}
	if err := EnsureReady(context.Background(), m, "gemma3", io.Discard); err == nil {
		t.Fatal("expected error when engine is down")
	}
}
