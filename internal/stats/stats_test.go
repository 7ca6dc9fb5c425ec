package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/keydrill/internal/model"
)

func TestWPM(t *testing.T) {
	if got := WPM(25, time.Minute); got != 5.0 {
		t.Fatalf("expected 5 wpm, got %v", got)
	}
	if got := WPM(25, 0); got != 0 {
		t.Fatalf("expected 0 wpm for zero elapsed, got %v", got)
	}
}

func TestSessionMetrics(t *testing.T) {
	wpm, cpm, acc := SessionMetrics(50, 10, 60000)
	if wpm != 10 || cpm != 50 {
		t.Fatalf("unexpected wpm/cpm: %v %v", wpm, cpm)
	}
	if math.Abs(acc-50.0/60.0) > 1e-9 {
		t.Fatalf("unexpected accuracy: %v", acc)
	}
	if wpm, _, _ := SessionMetrics(10, 0, 0); wpm != 0 {
		t.Fatalf("expected zero metrics for zero duration")
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
	got := Sparkline([]float64{0, 10})
	if got != " @" {
		t.Fatalf("expected range sparkline, got %q", got)
	}
}

func TestKeyDifficulty(t *testing.T) {
	agg := model.KeyAggregate{Key: "a", Attempts: 10, Hits: 8, Errors: 2, DelaySumMs: 2500, DelayCount: 10}
	want := 0.2*0.7 + (250.0/500)*0.3
	if got := KeyDifficulty(agg); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := KeyDifficulty(model.KeyAggregate{Key: "b"}); got != 1 {
		t.Fatalf("expected untried key to score 1, got %v", got)
	}
}

func TestRenderKeyTableOrdersByDifficulty(t *testing.T) {
	var buf bytes.Buffer
	err := RenderKeyTable(&buf, []model.KeyAggregate{
		{Key: "a", Attempts: 10, Hits: 10},
		{Key: " ", Attempts: 10, Hits: 5, Errors: 5},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[2], "<space>") {
		t.Fatalf("expected hardest key first, got %q", lines[2])
	}
}

func TestRenderPairTableFiltersSparsePairs(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPairTable(&buf, []model.PairAggregate{
		{Pair: "as", Hits: 1, Errors: 1},
		{Pair: "s ", Hits: 2, Errors: 2},
	}, 3, 5)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "as ") {
		t.Fatalf("expected sparse pair to be filtered:\n%s", out)
	}
	if !strings.Contains(out, "s·") {
		t.Fatalf("expected space pair label:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found.") {
		t.Fatalf("expected empty message")
	}
	buf.Reset()
	err := RenderSummary(&buf, []model.SessionAggregate{
		{SessionID: "1", Correct: 50, Incorrect: 0, DurationMs: 60000, UnlockedKey: "b"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Avg WPM: 10.00") || !strings.Contains(out, "Unlocked: b") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestTopKeysByFrequency(t *testing.T) {
	aggs := []model.KeyAggregate{
		{Key: "b", Attempts: 4},
		{Key: "a", Attempts: 4},
		{Key: "c", Attempts: 1},
	}
	top := TopKeysByFrequency(aggs, 2)
	if len(top) != 2 || top[0] != "a" || top[1] != "b" {
		t.Fatalf("unexpected order: %v", top)
	}
}
