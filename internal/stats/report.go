package stats

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/keydrill/internal/model"
)

// Source is the journal query surface a report needs. Implementations must
// allow concurrent calls.
type Source interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
	ListKeyAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.KeyAggregate, error)
	ListPairAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.PairAggregate, error)
	ListKeyStatsForSessions(ctx context.Context, sessionIDs []string, keys []string) (map[string]map[string]model.KeyAggregate, error)
}

// DefaultCurveKeys is how many keys get curves when none are requested.
const DefaultCurveKeys = 5

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []string
	KeyAggsAll       []model.KeyAggregate
	KeyAggsWindow    []model.KeyAggregate
	PairAggsWindow   []model.PairAggregate
	CurveKeys        []string
	PerSessionKeys   map[string]map[string]model.KeyAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	sessions, err := src.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	var (
		keyAggsAll     []model.KeyAggregate
		keyAggsWindow  []model.KeyAggregate
		pairAggsWindow []model.PairAggregate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if keyAggsAll, err = src.ListKeyAggregatesForSessions(gctx, allIDs); err != nil {
			return fmt.Errorf("key aggregates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if keyAggsWindow, err = src.ListKeyAggregatesForSessions(gctx, windowIDs); err != nil {
			return fmt.Errorf("window key aggregates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if pairAggsWindow, err = src.ListPairAggregatesForSessions(gctx, windowIDs); err != nil {
			return fmt.Errorf("window pair aggregates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	curveKeys := ParseKeys(cfg.Chars)
	if len(curveKeys) == 0 {
		curveKeys = TopKeysByFrequency(keyAggsAll, DefaultCurveKeys)
	}
	perSession, err := src.ListKeyStatsForSessions(ctx, allIDs, curveKeys)
	if err != nil {
		return Report{}, fmt.Errorf("per-session key stats: %w", err)
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		KeyAggsAll:       keyAggsAll,
		KeyAggsWindow:    keyAggsWindow,
		PairAggsWindow:   pairAggsWindow,
		CurveKeys:        curveKeys,
		PerSessionKeys:   perSession,
	}, nil
}

// ParseKeys splits a comma separated key list, lowercasing entries.
// "space" selects the space key.
func ParseKeys(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch {
		case part == "":
		case part == "space":
			out = append(out, " ")
		default:
			out = append(out, part)
		}
	}
	return out
}

func sessionIDs(sessions []model.SessionAggregate) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []string {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
