package session

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/keydrill/internal/generator"
	"github.com/verte-zerg/keydrill/internal/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, p profile.Profile, clock *fakeClock, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithClock(clock.Now),
		WithLogger(zaptest.NewLogger(t)),
		WithSampleInterval(0),
		WithGenerator(generator.NewWithSource(rand.NewSource(7))),
	}
	e := New(p, append(base, opts...)...)
	t.Cleanup(e.Close)
	return e
}

func typeCorrect(e *Engine, clock *fakeClock, n int) {
	line := []rune(e.Snapshot().Line)
	for i := 0; i < n; i++ {
		cursor := e.Snapshot().Cursor
		e.HandleKey(Char(line[cursor], clock.Advance(100*time.Millisecond)))
	}
}

func typeLine(e *Engine, clock *fakeClock) {
	snap := e.Snapshot()
	typeCorrect(e, clock, len([]rune(snap.Line))-snap.Cursor)
}

func TestAllCorrectLine(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)

	require.True(t, e.Start())
	typeLine(e, clock)

	snap := e.Snapshot()
	require.Equal(t, StateCompleted, snap.State)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 0, snap.Summary.Errors)
	assert.Equal(t, 100.0, snap.Summary.Accuracy)
	assert.Equal(t, len([]rune(snap.Line)), snap.Summary.TotalChars)
	for _, k := range e.Stats() {
		assert.Zero(t, k.Errors, "key %q", k.Key)
	}
	assert.NotEmpty(t, snap.Summary.SessionID)
}

func TestErrorThenBackspaceCountsBothKeystrokes(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)
	require.True(t, e.Start())

	line := []rune(e.Snapshot().Line)
	typeCorrect(e, clock, 2)
	// z is never in the beginner key set, so it cannot match.
	e.HandleKey(Char('z', clock.Advance(100*time.Millisecond)))
	snap := e.Snapshot()
	assert.Equal(t, 3, snap.Cursor)
	assert.Equal(t, 1, snap.Errors)

	e.HandleKey(Backspace(clock.Advance(100 * time.Millisecond)))
	snap = e.Snapshot()
	assert.Equal(t, 2, snap.Cursor)
	assert.Equal(t, 3, snap.TotalChars)
	assert.Equal(t, 1, snap.Errors)

	typeLine(e, clock)
	snap = e.Snapshot()
	require.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 1, snap.Summary.Errors)
	assert.Equal(t, len(line)+1, snap.Summary.TotalChars)
	assert.InDelta(t, float64(len(line))/float64(len(line)+1)*100, snap.Summary.Accuracy, 1e-9)

	var found bool
	for _, k := range e.Stats() {
		if k.Key == "z" {
			found = true
			assert.Equal(t, 1, k.Attempts)
			assert.Equal(t, 1, k.Errors)
		}
	}
	assert.True(t, found)

	_, keys, pairs := snap.Summary.Record()
	var zKey bool
	for _, k := range keys {
		if k.Key == "z" {
			zKey = true
			assert.Equal(t, 1, k.Errors)
		}
	}
	assert.True(t, zKey)
	var zPair bool
	for _, p := range pairs {
		if p.Pair == string([]rune{line[1], 'z'}) {
			zPair = true
			assert.Equal(t, 1, p.Errors)
		}
	}
	assert.True(t, zPair)
}

func TestBackspaceAtLineStartIsNoop(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)
	require.True(t, e.Start())

	e.HandleKey(Backspace(clock.Now()))
	snap := e.Snapshot()
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, 0, snap.TotalChars)
	assert.Equal(t, StateActive, snap.State)
}

func TestTickSamplesWPM(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	e := newTestEngine(t, profile.Default(), clock, WithNotify(rec.notify))
	start := clock.Now()
	require.True(t, e.Start())

	e.Tick(start.Add(time.Second))
	assert.Zero(t, rec.count(EventSampled), "no sample before the first keystroke")

	typeCorrect(e, clock, 5)
	e.Tick(start.Add(time.Minute))

	snap := e.Snapshot()
	assert.InDelta(t, 1.0, snap.WPM, 1e-9)
	assert.Equal(t, 100.0, snap.Accuracy)
	assert.Equal(t, 1, rec.count(EventSampled))
	assert.False(t, snap.RealWords)
}

func TestNoSamplesAfterCompletion(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	e := newTestEngine(t, profile.Default(), clock, WithNotify(rec.notify))
	require.True(t, e.Start())
	typeCorrect(e, clock, 1)
	e.Tick(clock.Advance(time.Second))
	typeLine(e, clock)

	before := rec.count(EventSampled)
	e.Tick(clock.Advance(time.Second))
	e.Tick(clock.Advance(time.Second))
	assert.Equal(t, before, rec.count(EventSampled))
	assert.Len(t, e.Snapshot().Summary.WPMSamples, before)
}

func TestBackgroundSamplerStopsOnCompletion(t *testing.T) {
	rec := &recorder{}
	e := New(profile.Default(),
		WithLogger(zaptest.NewLogger(t)),
		WithSampleInterval(2*time.Millisecond),
		WithGenerator(generator.NewWithSource(rand.NewSource(3))),
		WithNotify(rec.notify),
	)
	defer e.Close()
	require.True(t, e.Start())

	line := []rune(e.Snapshot().Line)
	e.HandleKey(Char(line[0], time.Time{}))
	require.Eventually(t, func() bool { return rec.count(EventSampled) >= 2 }, time.Second, time.Millisecond)

	for i := 1; i < len(line); i++ {
		e.HandleKey(Char(line[i], time.Time{}))
	}
	require.Equal(t, StateCompleted, e.State())
	after := rec.count(EventSampled)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, rec.count(EventSampled))
}

func TestDoubleStartIsRejected(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	e := newTestEngine(t, profile.Default(), clock, WithNotify(rec.notify))

	require.True(t, e.Start())
	line := e.Snapshot().Line
	assert.False(t, e.Start())
	assert.Equal(t, line, e.Snapshot().Line)
	assert.Equal(t, 1, rec.count(EventStarted))
}

func TestIdleKeystrokeStartsAndIsConsumed(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)

	e.HandleKey(Char(' ', clock.Now()))
	assert.Equal(t, StateIdle, e.State())
	e.HandleKey(Backspace(clock.Now()))
	assert.Equal(t, StateIdle, e.State())

	e.HandleKey(Char('x', clock.Now()))
	snap := e.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, 0, snap.TotalChars)
}

func TestCompletedIgnoresKeysUntilRestart(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)
	require.True(t, e.Start())
	typeLine(e, clock)
	first := e.Snapshot()

	e.HandleKey(Char('a', clock.Now()))
	assert.Equal(t, first.TotalChars, e.Snapshot().TotalChars)
	assert.Equal(t, StateCompleted, e.State())

	require.True(t, e.Start())
	second := e.Snapshot()
	assert.Equal(t, StateActive, second.State)
	assert.Nil(t, second.Summary)
	assert.Zero(t, second.TotalChars)
}

func TestDismissReturnsToIdle(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)
	assert.False(t, e.Dismiss())

	require.True(t, e.Start())
	typeLine(e, clock)
	assert.True(t, e.Dismiss())
	assert.Equal(t, StateIdle, e.State())
}

func TestSwitchProfileResetsState(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	e := newTestEngine(t, profile.Default(), clock, WithNotify(rec.notify))
	require.True(t, e.Start())
	typeCorrect(e, clock, 3)
	e.HandleKey(Char('z', clock.Advance(time.Millisecond)))

	next, err := profile.Lookup(profile.Intermediate)
	require.NoError(t, err)
	e.SwitchProfile(next)

	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, profile.Intermediate, snap.Profile)
	assert.Equal(t, next.SeedKeys(), snap.Allowed)
	assert.Empty(t, snap.Scores)
	assert.Empty(t, e.Stats())
	assert.Empty(t, snap.Line)
	assert.Zero(t, snap.TotalChars)
	assert.Equal(t, 1, rec.count(EventProfileSwitched))
}

func TestUnlocksNextKey(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	e := newTestEngine(t, profile.Default(), clock, WithNotify(rec.notify))

	for i := 0; i < 200 && rec.count(EventUnlocked) == 0; i++ {
		require.True(t, e.Start())
		typeLine(e, clock)
	}
	require.Equal(t, 1, rec.count(EventUnlocked))
	snap := e.Snapshot()
	assert.Equal(t, 'b', snap.Summary.UnlockedKey)
	assert.Contains(t, snap.Allowed, 'b')
	assert.Len(t, snap.Allowed, 8)

	kinds := rec.kinds()
	assert.Equal(t, EventUnlocked, kinds[len(kinds)-1])
	assert.Equal(t, EventCompleted, kinds[len(kinds)-2])
}

func TestRealWordHintFromPreviousSession(t *testing.T) {
	clock := newFakeClock()
	p, err := profile.Lookup(profile.Advanced)
	require.NoError(t, err)
	e := newTestEngine(t, p, clock)

	require.True(t, e.Start())
	assert.False(t, e.Snapshot().RealWords)
	line := []rune(e.Snapshot().Line)
	for i, r := range line {
		e.HandleKey(Char(r, clock.Advance(10*time.Millisecond)))
		if i == len(line)-2 {
			e.Tick(clock.Now())
		}
	}
	require.Equal(t, StateCompleted, e.State())

	require.True(t, e.Start())
	assert.True(t, e.Snapshot().RealWords)
}

func TestSnapshotBands(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)
	snap := e.Snapshot()
	assert.Len(t, snap.Bands, 26)
	assert.Equal(t, 0, int(snap.Bands['z']))
	assert.NotEqual(t, 0, int(snap.Bands['a']))
}

func TestConcurrentKeysAndTicks(t *testing.T) {
	var completed atomic.Int32
	e := New(profile.Default(),
		WithSampleInterval(time.Millisecond),
		WithGenerator(generator.NewWithSource(rand.NewSource(11))),
		WithNotify(func(ev Event) {
			if ev.Kind == EventCompleted {
				completed.Add(1)
			}
		}),
	)
	require.True(t, e.Start())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := e.Snapshot()
				switch snap.State {
				case StateActive:
					line := []rune(snap.Line)
					if snap.Cursor < len(line) {
						e.HandleKey(Char(line[snap.Cursor], time.Time{}))
					}
				case StateCompleted:
					e.Start()
				}
				e.Tick(time.Now())
			}
		}()
	}
	wg.Wait()
	e.Close()
	assert.Positive(t, completed.Load())
	assert.False(t, e.Start())
}

func TestRestartOnlyFromCompleted(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)
	assert.False(t, e.Restart())
	require.True(t, e.Start())
	assert.False(t, e.Restart())
	typeLine(e, clock)
	require.True(t, e.Restart())
	snap := e.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Nil(t, snap.Summary)
}

func TestSwitchProfileFromSampleCallback(t *testing.T) {
	clock := newFakeClock()
	switched := make(chan struct{})
	var once sync.Once
	var e *Engine
	e = newTestEngine(t, profile.Default(), clock,
		WithSampleInterval(5*time.Millisecond),
		WithNotify(func(ev Event) {
			if ev.Kind != EventSampled {
				return
			}
			once.Do(func() {
				p, err := profile.Lookup(profile.Intermediate)
				if err == nil {
					e.SwitchProfile(p)
				}
				close(switched)
			})
		}),
	)

	require.True(t, e.Start())
	line := []rune(e.Snapshot().Line)
	e.HandleKey(Char(line[0], clock.Advance(time.Second)))

	select {
	case <-switched:
	case <-time.After(5 * time.Second):
		t.Fatal("SwitchProfile from a sample callback did not return")
	}
	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, profile.Intermediate, snap.Profile)
	assert.Len(t, snap.Allowed, 9)
}

func TestSummaryKeysCountCurrentLineOnly(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, profile.Default(), clock)

	attempts := func(sum *Summary) int {
		n := 0
		for _, k := range sum.Keys {
			n += k.Attempts
		}
		return n
	}

	require.True(t, e.Start())
	typeLine(e, clock)
	first := e.Snapshot().Summary
	require.NotNil(t, first)
	assert.Equal(t, first.TotalChars, attempts(first))

	require.True(t, e.Restart())
	typeLine(e, clock)
	second := e.Snapshot().Summary
	require.NotNil(t, second)
	require.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, second.TotalChars, attempts(second))

	total := 0
	for _, k := range e.Stats() {
		total += k.Attempts
	}
	assert.Equal(t, first.TotalChars+second.TotalChars, total)
}
