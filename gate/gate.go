// Package gate decides whether a spoken announcement may go out now.
//
// Detections recur on nearly every frame while a single utterance takes a
// second or more to play, so announcements are rate limited and, with the
// novelty policy, deduplicated by label.
package gate

import (
	"fmt"
	"time"
)

type Policy int

const (
	// IntervalOnly accepts once MinInterval has elapsed since the last
	// accepted announcement, whatever the label.
	IntervalOnly Policy = iota
	// IntervalAndNovelty additionally requires the label to differ from the
	// last accepted one.
	IntervalAndNovelty
)

func (p Policy) String() string {
	switch p {
	case IntervalOnly:
		return "interval"
	case IntervalAndNovelty:
		return "interval+novelty"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Gate holds the announcement state. It is not safe for concurrent use;
// a pipeline owns exactly one gate.
type Gate struct {
	policy      Policy
	minInterval time.Duration

	lastLabel string
	hasLabel  bool
	lastTime  time.Time
	hasTime   bool
}

// New returns a gate that accepts its first candidate.
func New(policy Policy, minInterval time.Duration) *Gate {
	return &Gate{
		policy:      policy,
		minInterval: minInterval,
	}
}

// Reset forgets the last label and pretends an announcement went out at t,
// so nothing is accepted before t+MinInterval.
func (g *Gate) Reset(t time.Time) {
	g.lastLabel = ""
	g.hasLabel = false
	g.lastTime = t
	g.hasTime = true
}

// Allow reports whether an announcement for label may go out at now and,
// if so, records it. Rejections leave the state untouched.
func (g *Gate) Allow(label string, now time.Time) bool {
	if g.hasTime && now.Sub(g.lastTime) < g.minInterval {
		return false
	}

	if g.policy == IntervalAndNovelty && g.hasLabel && label == g.lastLabel {
		return false
	}

	g.lastTime = now
	g.hasTime = true
	g.lastLabel = label
	g.hasLabel = true
	return true
}

// Last returns the last accepted label and when it was accepted.
func (g *Gate) Last() (label string, at time.Time, ok bool) {
	return g.lastLabel, g.lastTime, g.hasLabel
}

func (g *Gate) Policy() Policy {
	return g.policy
}

func (g *Gate) MinInterval() time.Duration {
	return g.minInterval
}
