package session

import (
	"context"
	"time"
)

// DefaultSampleInterval is the metrics sampling cadence.
const DefaultSampleInterval = time.Second

// sampler calls tick on a fixed cadence until stopped.
type sampler struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startSampler(interval time.Duration, tick func()) *sampler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sampler{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
	return s
}

// stop cancels the sampler. The returned channel closes once its goroutine exits.
func (s *sampler) stop() <-chan struct{} {
	s.cancel()
	return s.done
}
