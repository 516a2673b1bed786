// Package foliage runs the per-leaf life cycle. Each leaf is an explicit
// (phase, deadline) record on a logical clock; advancing the clock fires
// every transition whose deadline has elapsed.
package foliage

import (
	"errors"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/config"
)

type Phase uint8

const (
	PhaseAttached Phase = iota + 1
	PhaseSwaying
	PhaseFalling
	PhaseFading
	PhaseDormant
	PhaseReturning
)

func (p Phase) String() string {
	switch p {
	case PhaseAttached:
		return "attached"
	case PhaseSwaying:
		return "swaying"
	case PhaseFalling:
		return "falling"
	case PhaseFading:
		return "fading"
	case PhaseDormant:
		return "dormant"
	case PhaseReturning:
		return "returning"
	default:
		return "unknown"
	}
}

func (p Phase) next() Phase {
	switch p {
	case PhaseAttached:
		return PhaseSwaying
	case PhaseSwaying:
		return PhaseFalling
	case PhaseFalling:
		return PhaseFading
	case PhaseFading:
		return PhaseDormant
	case PhaseDormant:
		return PhaseReturning
	default:
		return PhaseAttached
	}
}

// Timings is the shared, read-only parameter table for every leaf.
type Timings struct {
	SwayDelayMax    time.Duration
	LifetimeMax     time.Duration
	FallDurationMax time.Duration
	FadeDuration    time.Duration
	DormantMax      time.Duration
	ReturnDuration  time.Duration
	SwayPeriod      time.Duration
	DriftPeriod     time.Duration
	SwayAngle       float64 // degrees
	SizePulse       float64 // pixels
	FallSpeed       float64 // pixels per second
	DriftSpeed      float64 // pixels per second
}

func NewTimings(cfg config.FoliageConfig) (*Timings, error) {
	t := &Timings{
		SwayDelayMax:    cfg.SwayDelayMax.Duration(),
		LifetimeMax:     cfg.LifetimeMax.Duration(),
		FallDurationMax: cfg.FallDurationMax.Duration(),
		FadeDuration:    cfg.FadeDuration.Duration(),
		DormantMax:      cfg.DormantMax.Duration(),
		ReturnDuration:  cfg.ReturnDuration.Duration(),
		SwayPeriod:      cfg.SwayPeriod.Duration(),
		DriftPeriod:     cfg.DriftPeriod.Duration(),
		SwayAngle:       cfg.SwayAngle,
		SizePulse:       cfg.SizePulse,
		FallSpeed:       cfg.FallSpeed,
		DriftSpeed:      cfg.DriftSpeed,
	}
	if t.FadeDuration <= 0 {
		return nil, errors.New("foliage: fade duration must be positive")
	}
	if t.SwayPeriod <= 0 || t.DriftPeriod <= 0 {
		return nil, errors.New("foliage: sway and drift periods must be positive")
	}
	return t, nil
}

// Transition records a single phase change and the logical time it fired.
type Transition struct {
	From Phase
	To   Phase
	At   time.Duration
}

// Pose is what a renderer needs to draw a leaf.
type Pose struct {
	Position   mgl64.Vec2
	Angle      float64 // degrees
	Opacity    float64
	WidthDelta float64
}

// Leaf is a single canopy cell's state machine. Its random source is its
// own; no two leaves share one.
type Leaf struct {
	home    mgl64.Vec2
	timings *Timings
	rng     *rand.Rand

	phase      Phase
	phaseStart time.Duration
	deadline   time.Duration
	armed      bool

	swayStart time.Duration
	fallStart time.Duration
	grounded  bool
	rest      mgl64.Vec2

	pose Pose
}

// NewLeaf creates an attached leaf at home whose first timer is rolled at
// logical time now.
func NewLeaf(home mgl64.Vec2, seed int64, timings *Timings, now time.Duration) *Leaf {
	l := &Leaf{
		home:    home,
		timings: timings,
		rng:     rand.New(rand.NewSource(seed)),
		armed:   true,
	}
	l.enter(PhaseAttached, now)
	l.updatePose(now)
	return l
}

func (l *Leaf) Home() mgl64.Vec2 { return l.home }

func (l *Leaf) Phase() Phase { return l.phase }

func (l *Leaf) Pose() Pose { return l.pose }

// Deadline returns the pending transition time. ok is false once the leaf
// has been cancelled.
func (l *Leaf) Deadline() (time.Duration, bool) {
	return l.deadline, l.armed
}

// Pending reports whether the leaf still has a scheduled transition.
func (l *Leaf) Pending() bool { return l.armed }

// Detached reports whether the leaf belongs on the falling-leaf layer.
// That membership lasts from the fall until the leaf returns home.
func (l *Leaf) Detached() bool {
	switch l.phase {
	case PhaseFalling, PhaseFading, PhaseDormant:
		return true
	}
	return false
}

// Airborne reports whether the leaf is still moving under its fall.
func (l *Leaf) Airborne() bool {
	return (l.phase == PhaseFalling || l.phase == PhaseFading) && !l.grounded
}

// Velocity is the instantaneous motion at now, zero unless airborne.
func (l *Leaf) Velocity(now time.Duration) mgl64.Vec2 {
	if !l.Airborne() {
		return mgl64.Vec2{}
	}
	t := (now - l.fallStart).Seconds()
	leg := l.timings.DriftPeriod.Seconds()
	drift := -l.timings.DriftSpeed + 2*l.timings.DriftSpeed*triangle(t/leg)
	return mgl64.Vec2{drift, l.timings.FallSpeed}
}

// Cancel clears the timer record. A cancelled leaf never transitions again.
func (l *Leaf) Cancel() {
	l.armed = false
	l.deadline = 0
}

// Advance moves the logical clock to now, firing every transition whose
// deadline has elapsed in order, then recomputes the pose.
func (l *Leaf) Advance(now time.Duration) []Transition {
	if !l.armed {
		return nil
	}
	var fired []Transition
	for l.deadline <= now {
		from := l.phase
		at := l.deadline
		l.enter(from.next(), at)
		fired = append(fired, Transition{From: from, To: l.phase, At: at})
	}
	l.updatePose(now)
	return fired
}

// Collide reports a contact at now. Only an airborne leaf reacts, and only
// to something other than another leaf: it stops where it is. The phase
// schedule is untouched.
func (l *Leaf) Collide(now time.Duration, otherIsLeaf bool) bool {
	if otherIsLeaf || !l.armed || !l.Airborne() {
		return false
	}
	l.rest = l.fallPosition(now)
	l.grounded = true
	l.pose.Position = l.rest
	return true
}

// Settle moves a grounded leaf vertically so it rests exactly on a surface.
func (l *Leaf) Settle(y float64) {
	if !l.grounded {
		return
	}
	l.rest = mgl64.Vec2{l.rest.X(), y}
	l.pose.Position = l.rest
}

func (l *Leaf) roll(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(l.rng.Int63n(int64(max)))
}

func (l *Leaf) enter(p Phase, at time.Duration) {
	t := l.timings
	l.phase = p
	l.phaseStart = at
	switch p {
	case PhaseAttached:
		l.grounded = false
		l.deadline = at + l.roll(t.SwayDelayMax)
	case PhaseSwaying:
		l.swayStart = at
		l.deadline = at + l.roll(t.LifetimeMax)
	case PhaseFalling:
		l.fallStart = at
		l.grounded = false
		l.deadline = at + l.roll(t.FallDurationMax)
	case PhaseFading:
		l.deadline = at + t.FadeDuration
	case PhaseDormant:
		l.rest = l.fallPosition(at)
		l.grounded = true
		l.deadline = at + l.roll(t.DormantMax)
	case PhaseReturning:
		l.grounded = false
		l.rest = l.home
		l.deadline = at + t.ReturnDuration
	}
}

func (l *Leaf) fallPosition(now time.Duration) mgl64.Vec2 {
	if l.grounded {
		return l.rest
	}
	t := (now - l.fallStart).Seconds()
	if t < 0 {
		t = 0
	}
	d := l.timings.DriftSpeed
	dx := -d*t + 2*d*triangleIntegral(t, l.timings.DriftPeriod.Seconds())
	return l.home.Add(mgl64.Vec2{dx, l.timings.FallSpeed * t})
}

func (l *Leaf) sway(now time.Duration) (angle, width float64) {
	t := l.timings
	w := triangle((now - l.swayStart).Seconds() / t.SwayPeriod.Seconds())
	return t.SwayAngle * w, t.SizePulse * easeInOutCubic(w)
}

func (l *Leaf) updatePose(now time.Duration) {
	t := l.timings
	elapsed := now - l.phaseStart
	switch l.phase {
	case PhaseAttached:
		l.pose = Pose{Position: l.home, Opacity: 1}
	case PhaseSwaying:
		angle, width := l.sway(now)
		l.pose = Pose{Position: l.home, Angle: angle, Opacity: 1, WidthDelta: width}
	case PhaseFalling:
		angle, width := l.sway(now)
		l.pose = Pose{Position: l.fallPosition(now), Angle: angle, Opacity: 1, WidthDelta: width}
	case PhaseFading:
		angle, width := l.sway(now)
		fade := float64(elapsed) / float64(t.FadeDuration)
		l.pose = Pose{Position: l.fallPosition(now), Angle: angle, Opacity: 1 - easeInOutCubic(fade), WidthDelta: width}
	case PhaseDormant:
		l.pose = Pose{Position: l.rest}
	case PhaseReturning:
		opacity := 1.0
		if t.ReturnDuration > 0 {
			opacity = float64(elapsed) / float64(t.ReturnDuration)
		}
		l.pose = Pose{Position: l.home, Opacity: opacity}
	}
}
