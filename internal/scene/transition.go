package scene

import "time"

// Transition animates a single value over time. It is sampled, never
// driven: nothing waits for a transition to finish.
type Transition struct {
	From, To float64
	Start    time.Time
	Duration time.Duration
}

// Settled returns a transition that is already at v.
func Settled(v float64) Transition {
	return Transition{From: v, To: v}
}

// At returns the value at now using cubic in-out easing.
func (t Transition) At(now time.Time) float64 {
	if t.Duration <= 0 {
		return t.To
	}
	elapsed := now.Sub(t.Start)
	if elapsed <= 0 {
		return t.From
	}
	if elapsed >= t.Duration {
		return t.To
	}
	p := easeCubicInOut(float64(elapsed) / float64(t.Duration))
	return t.From + (t.To-t.From)*p
}

// Done reports whether the transition has reached its target at now.
func (t Transition) Done(now time.Time) bool {
	return t.Duration <= 0 || !now.Before(t.Start.Add(t.Duration))
}

// Remaining returns how long until the transition settles.
func (t Transition) Remaining(now time.Time) time.Duration {
	if t.Done(now) {
		return 0
	}
	return t.Start.Add(t.Duration).Sub(now)
}

// Retarget starts a new transition toward to from wherever t is at now.
// Interrupting a transition mid-flight is always safe.
func (t Transition) Retarget(now time.Time, to float64, d time.Duration) Transition {
	return Transition{From: t.At(now), To: to, Start: now, Duration: d}
}

func easeCubicInOut(p float64) float64 {
	p *= 2
	if p <= 1 {
		return p * p * p / 2
	}
	p -= 2
	return (p*p*p + 2) / 2
}
