package proficiency

// Band classifies a key for keyboard highlighting.
type Band int

// Bands in increasing order of concern.
const (
	BandLocked Band = iota
	BandNormal
	BandShaky
	BandWeak
)

// BandFor classifies key. Untried keys are shown as normal.
func (m *Model) BandFor(key rune, allowed bool) Band {
	if !allowed {
		return BandLocked
	}
	stat, ok := m.keys[key]
	if !ok {
		return BandNormal
	}
	switch d := Difficulty(stat); {
	case d > 0.15:
		return BandWeak
	case d > 0.08:
		return BandShaky
	default:
		return BandNormal
	}
}
