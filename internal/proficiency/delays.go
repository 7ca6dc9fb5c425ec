package proficiency

// MaxDelays is the number of recent inter-key delays kept per key.
const MaxDelays = 50

// delayRing is a fixed-capacity FIFO of delays in milliseconds.
type delayRing struct {
	buf   [MaxDelays]float64
	start int
	n     int
	sum   float64
}

func (r *delayRing) push(ms float64) {
	if r.n < MaxDelays {
		r.buf[(r.start+r.n)%MaxDelays] = ms
		r.n++
		r.sum += ms
		return
	}
	r.sum -= r.buf[r.start]
	r.buf[r.start] = ms
	r.sum += ms
	r.start = (r.start + 1) % MaxDelays
}

func (r *delayRing) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

// values returns the delays oldest first.
func (r *delayRing) values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%MaxDelays]
	}
	return out
}
