package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "keydrill.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		stats := model.SessionStats{
			StartedAt:    start,
			EndedAt:      end,
			Profile:      "beginner",
			Line:         "dad sad",
			TotalChars:   11,
			CorrectChars: 10,
			Errors:       1,
			DurationMs:   end.Sub(start).Milliseconds(),
		}
		keys := []model.KeyStats{
			{Key: "a", Attempts: 5, Hits: 5},
			{Key: "s", Attempts: 5, Hits: 4, Errors: 1},
		}
		pairs := []model.PairStats{{Pair: "sa", Hits: 2, Errors: 1}}
		id, err := st.InsertSession(ctx, stats, keys, pairs)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		Profile:     "beginner",
		Last:        2,
		CurveWindow: 2,
		Chars:       "a, S",
	}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 2 {
		t.Fatalf("expected 2 window session ids, got %d", len(report.WindowSessionIDs))
	}
	if len(report.KeyAggsAll) == 0 || len(report.KeyAggsWindow) == 0 {
		t.Fatalf("expected key aggregates")
	}
	if len(report.PairAggsWindow) != 1 || report.PairAggsWindow[0].Errors != 2 {
		t.Fatalf("unexpected pair aggregates: %+v", report.PairAggsWindow)
	}
	if len(report.CurveKeys) != 2 || report.CurveKeys[1] != "s" {
		t.Fatalf("unexpected curve keys: %v", report.CurveKeys)
	}
	if report.PerSessionKeys[ids[2]]["s"].Errors != 1 {
		t.Fatalf("unexpected per-session stats: %+v", report.PerSessionKeys)
	}
}

func TestParseKeys(t *testing.T) {
	got := ParseKeys(" A,b,,space ")
	want := []string{"a", "b", " "}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
