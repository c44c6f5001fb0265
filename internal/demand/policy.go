package demand

const DefaultThreshold = 3

// Policy decides when a miss count is worth an operator's attention.
type Policy struct {
	Threshold int64
	// OnCrossingOnly escalates once, when the count first reaches Threshold.
	// Otherwise every miss at or above it escalates.
	OnCrossingOnly bool
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold}
}

func (p Policy) ShouldEscalate(missCount int64) bool {
	th := p.Threshold
	if th <= 0 {
		th = DefaultThreshold
	}
	if p.OnCrossingOnly {
		return missCount == th
	}
	return missCount >= th
}
