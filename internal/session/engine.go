package session

import (
	"sort"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/keydrill/internal/generator"
	"github.com/verte-zerg/keydrill/internal/logging"
	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/profile"
	"github.com/verte-zerg/keydrill/internal/progression"
	"github.com/verte-zerg/keydrill/internal/stats"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = logging.OrNop(log)
	}
}

// WithSampleInterval sets the sampler cadence. Zero disables the background
// sampler; callers then drive sampling through Tick.
func WithSampleInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d < 0 {
			d = 0
		}
		e.interval = d
	}
}

// WithGenerator sets the line generator.
func WithGenerator(g *generator.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.gen = g
		}
	}
}

// WithNotify registers a callback for engine events. It is called without
// the engine lock held, from the goroutine that caused the event. Sampled
// events arrive on the sampler goroutine.
func WithNotify(fn func(Event)) Option {
	return func(e *Engine) {
		e.notify = fn
	}
}

// Engine owns the proficiency model, the unlocked key set and the active line.
// All handlers are serialized by one mutex.
type Engine struct {
	mu       sync.Mutex
	now      func() time.Time
	log      *zap.Logger
	interval time.Duration
	notify   func(Event)
	gen      *generator.Generator

	profile profile.Profile
	stats   *proficiency.Model
	keys    *progression.Controller

	state     State
	sessionID string
	line      []rune
	input     []rune
	metrics   Metrics
	lastKeyAt time.Time
	realWords bool
	liveHint  bool
	prev      *Metrics
	summary   *Summary
	tally     *tally

	sampler  *sampler
	stopping []<-chan struct{}
	seq      uint64
	closed   bool
}

// New returns an idle engine for p.
func New(p profile.Profile, opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		log:      zap.NewNop(),
		interval: DefaultSampleInterval,
		gen:      generator.New(),
		profile:  p,
		stats:    proficiency.New(),
		keys:     progression.New(p),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stats.SetClock(e.now)
	return e
}

// Profile returns the active profile.
func (e *Engine) Profile() profile.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start begins a session from Idle or Completed. It reports false when a
// session is already active or the engine is closed.
func (e *Engine) Start() bool {
	e.mu.Lock()
	events, ok := e.startLocked()
	e.mu.Unlock()
	e.emit(events)
	return ok
}

// Restart begins a new line from Completed.
func (e *Engine) Restart() bool {
	e.mu.Lock()
	if e.state != StateCompleted {
		e.mu.Unlock()
		return false
	}
	events, ok := e.startLocked()
	e.mu.Unlock()
	e.emit(events)
	return ok
}

// Dismiss leaves the completion summary and returns to Idle.
func (e *Engine) Dismiss() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateCompleted {
		return false
	}
	e.state = StateIdle
	return true
}

// HandleKey applies one keystroke. In Idle any printable non-space rune starts
// a session and is consumed. Keystrokes in Completed are ignored.
func (e *Engine) HandleKey(k Key) {
	if k.At.IsZero() {
		k.At = e.now()
	}
	e.mu.Lock()
	var events []Event
	switch e.state {
	case StateIdle:
		if !k.Backspace && unicode.IsPrint(k.Rune) && !unicode.IsSpace(k.Rune) {
			events, _ = e.startLocked()
		}
	case StateActive:
		events = e.keyLocked(k)
	}
	e.mu.Unlock()
	e.emit(events)
}

// Tick takes one metrics sample at now. It is a no-op unless a session is active.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	events := e.sampleLocked(now)
	e.mu.Unlock()
	e.emit(events)
}

// SwitchProfile stops any session and resets statistics and unlocked keys
// to p's initial state. It does not wait for the sampler goroutine, so it is
// safe to call from a notify callback.
func (e *Engine) SwitchProfile(p profile.Profile) {
	e.mu.Lock()
	e.stopping = append(e.stopping, e.stopSamplerLocked())
	e.profile = p
	e.stats.Reset()
	e.keys.Reset(p)
	e.state = StateIdle
	e.sessionID = ""
	e.line = nil
	e.input = nil
	e.metrics = Metrics{}
	e.lastKeyAt = time.Time{}
	e.realWords = false
	e.liveHint = false
	e.prev = nil
	e.summary = nil
	e.tally = nil
	e.mu.Unlock()
	e.log.Info("profile switched", zap.String("profile", p.Name))
	e.emit([]Event{{Kind: EventProfileSwitched, Profile: p.Name}})
}

// Close stops the sampler and waits for it to exit. The engine accepts no
// further sessions. Close must not be called from a notify callback.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	pending := append(e.stopping, e.stopSamplerLocked())
	e.stopping = nil
	if e.state == StateActive {
		e.state = StateIdle
	}
	e.mu.Unlock()
	for _, done := range pending {
		<-done
	}
}

// Snapshot returns a consistent view of the engine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	allowed := e.keys.Allowed()
	bands := make(map[rune]proficiency.Band, len(profile.Alphabet))
	for _, r := range profile.Alphabet {
		bands[r] = e.stats.BandFor(r, e.keys.Contains(r))
	}
	return Snapshot{
		State:        e.state,
		Profile:      e.profile.Name,
		Line:         string(e.line),
		Input:        string(e.input),
		Cursor:       len(e.input),
		WPM:          e.metrics.LiveWPM(),
		Accuracy:     e.metrics.Accuracy(),
		Errors:       e.metrics.Errors,
		TotalChars:   e.metrics.TotalChars,
		CorrectChars: e.metrics.CorrectChars,
		RealWords:    e.liveHint,
		Allowed:      allowed,
		Scores:       e.stats.Scores(),
		Bands:        bands,
		Summary:      e.summary,
	}
}

// Stats returns per-key counters from the proficiency model, sorted by key.
func (e *Engine) Stats() []model.KeyAggregate {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := e.stats.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]model.KeyAggregate, 0, len(keys))
	for _, k := range keys {
		stat, _ := e.stats.Key(k)
		out = append(out, model.KeyAggregate{
			Key:        string(k),
			Attempts:   int(stat.Attempts),
			Hits:       int(stat.Hits),
			Errors:     int(stat.Errors),
			DelaySumMs: int64(stat.AverageDelayMs() * float64(len(stat.Delays()))),
			DelayCount: int64(len(stat.Delays())),
		})
	}
	return out
}

func (e *Engine) startLocked() ([]Event, bool) {
	if e.closed || e.state == StateActive {
		return nil, false
	}
	hint := e.prevMeetsThreshold()
	line := e.gen.GenerateLine(generator.Request{
		Profile:   e.profile,
		Allowed:   e.keys.Allowed(),
		RealWords: hint,
		Stats:     e.stats,
	})
	if line == "" {
		e.log.Warn("no line generated", zap.String("profile", e.profile.Name))
		return nil, false
	}
	e.pruneStoppedLocked()
	e.sessionID = uuid.NewString()
	e.line = []rune(line)
	e.input = e.input[:0]
	e.metrics = Metrics{StartTime: e.now()}
	e.lastKeyAt = time.Time{}
	e.realWords = hint
	e.liveHint = hint
	e.summary = nil
	e.tally = newTally()
	e.state = StateActive
	e.startSamplerLocked()
	e.log.Debug("session started",
		zap.String("session", e.sessionID),
		zap.String("profile", e.profile.Name),
		zap.Int("line_len", len(e.line)),
		zap.Bool("real_words", hint),
	)
	return []Event{{Kind: EventStarted, Profile: e.profile.Name}}, true
}

func (e *Engine) prevMeetsThreshold() bool {
	if e.prev == nil || e.prev.TotalChars == 0 || len(e.prev.WPMSamples) == 0 {
		return false
	}
	acc := float64(e.prev.CorrectChars) / float64(e.prev.TotalChars)
	return e.profile.MeetsThreshold(acc, e.prev.LiveWPM())
}

func (e *Engine) keyLocked(k Key) []Event {
	if k.Backspace {
		if len(e.input) > 0 {
			e.input = e.input[:len(e.input)-1]
		}
		return nil
	}
	cursor := len(e.input)
	if cursor >= len(e.line) {
		return nil
	}
	expected := e.line[cursor]
	isError := k.Rune != expected
	var delay float64
	hasDelay := !e.lastKeyAt.IsZero()
	if hasDelay {
		delay = float64(k.At.Sub(e.lastKeyAt).Milliseconds())
		if delay < 0 {
			delay = 0
		}
	}
	e.lastKeyAt = k.At

	key := unicode.ToLower(k.Rune)
	e.stats.RecordAttempt(key, isError, delay)
	e.tally.key(key, isError, delay, hasDelay)
	if cursor > 0 {
		pair := string([]rune{unicode.ToLower(e.line[cursor-1]), key})
		e.stats.RecordPair(pair, isError)
		e.tally.pair(pair, isError)
	}

	e.metrics.TotalChars++
	if isError {
		e.metrics.Errors++
	} else {
		e.metrics.CorrectChars++
	}
	e.input = append(e.input, k.Rune)
	if len(e.input) == len(e.line) {
		return e.completeLocked(k.At)
	}
	return nil
}

func (e *Engine) sampleLocked(now time.Time) []Event {
	if e.state != StateActive || e.metrics.TotalChars == 0 {
		return nil
	}
	elapsed := now.Sub(e.metrics.StartTime)
	if elapsed <= 0 {
		return nil
	}
	wpm := stats.WPM(e.metrics.CorrectChars, elapsed)
	acc := e.metrics.Accuracy()
	e.metrics.WPMSamples = append(e.metrics.WPMSamples, wpm)
	e.metrics.AccuracySamples = append(e.metrics.AccuracySamples, acc)
	e.liveHint = acc > 95 && wpm > 40
	return []Event{{Kind: EventSampled, Sample: Sample{At: now, WPM: wpm, Accuracy: acc}}}
}

func (e *Engine) completeLocked(at time.Time) []Event {
	e.stopping = append(e.stopping, e.stopSamplerLocked())
	unlocked, ok := e.keys.Evaluate(e.stats)
	e.state = StateCompleted
	prev := e.metrics.clone()
	e.prev = &prev
	e.summary = e.buildSummary(at, unlocked)
	e.log.Info("session completed",
		zap.String("session", e.sessionID),
		zap.String("profile", e.profile.Name),
		zap.Float64("avg_wpm", e.summary.AverageWPM),
		zap.Float64("accuracy", e.summary.Accuracy),
		zap.Int("errors", e.summary.Errors),
	)
	events := []Event{{Kind: EventCompleted, Summary: e.summary}}
	if ok {
		e.log.Info("key unlocked", zap.String("key", string(unlocked)), zap.Int("allowed", e.keys.Len()))
		events = append(events, Event{Kind: EventUnlocked, Key: unlocked})
	}
	return events
}

func (e *Engine) startSamplerLocked() {
	e.seq++
	if e.interval <= 0 {
		return
	}
	seq := e.seq
	e.sampler = startSampler(e.interval, func() {
		e.mu.Lock()
		if e.seq != seq {
			e.mu.Unlock()
			return
		}
		events := e.sampleLocked(e.now())
		e.mu.Unlock()
		e.emit(events)
	})
}

// stopSamplerLocked invalidates pending ticks and returns a channel that
// closes once the sampler goroutine exits. Callers must not wait on it while
// holding e.mu.
func (e *Engine) stopSamplerLocked() <-chan struct{} {
	e.seq++
	s := e.sampler
	e.sampler = nil
	if s == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	e.log.Debug("sampler stopped", zap.String("session", e.sessionID), zap.Int("samples", len(e.metrics.WPMSamples)))
	return s.stop()
}

func (e *Engine) pruneStoppedLocked() {
	live := e.stopping[:0]
	for _, done := range e.stopping {
		select {
		case <-done:
		default:
			live = append(live, done)
		}
	}
	e.stopping = live
}

func (e *Engine) emit(events []Event) {
	if e.notify == nil {
		return
	}
	for _, ev := range events {
		e.notify(ev)
	}
}
