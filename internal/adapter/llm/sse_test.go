package llm

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"model8cli/internal/domain"
)

func collectDeltas(t *testing.T, ch <-chan domain.StreamDelta) []domain.StreamDelta {
	t.Helper()
	var out []domain.StreamDelta
	timeout := time.After(2 * time.Second)
	for {
		select {
		case delta, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, delta)
		case <-timeout:
			t.Fatal("timed out waiting for stream deltas")
		}
	}
}

func TestParseSSEStreamBasic(t *testing.T) {
	body := strings.Join([]string{
		`data: {"id":"1","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		``,
		`data: {"id":"1","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	ch := parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(body)), parseStreamChunk)
	deltas := collectDeltas(t, ch)

	if len(deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %d: %+v", len(deltas), deltas)
	}
	if deltas[0].Content != "Hel" || deltas[1].Content != "lo" {
		t.Errorf("unexpected content deltas: %+v", deltas)
	}
	if !deltas[2].Done {
		t.Error("final delta should be Done")
	}
}

func TestParseSSEStreamSkipsMalformedLines(t *testing.T) {
	body := strings.Join([]string{
		`: comment line`,
		`data: {not json at all`,
		`event: ping`,
		`data: {"id":"1","choices":[{"index":0,"delta":{"content":"ok"}}]}`,
		`data: [DONE]`,
	}, "\n")

	ch := parseSSEStream(context.Background(), io.NopCloser(strings.NewReader(body)), parseStreamChunk)
	deltas := collectDeltas(t, ch)

	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d: %+v", len(deltas), deltas)
	}
	if deltas[0].Content != "ok" {
		t.Errorf("unexpected content: %q", deltas[0].Content)
	}
}

func TestParseSSEStreamContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := `data: {"id":"1","choices":[{"index":0,"delta":{"content":"late"}}]}` + "\n"
	ch := parseSSEStream(ctx, io.NopCloser(strings.NewReader(body)), parseStreamChunk)

	for range ch {
	}
	// Reaching here means the goroutine exited and closed the channel.
}
