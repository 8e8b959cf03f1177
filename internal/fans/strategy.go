// Package fans implements the fan distribution strategies (all / map /
// map+rotate) and the PID control loop that drives them (spec §4.4, §4.5).
// Grounded on jangala-dev-devicecode-go/x/mathx for clamping and linear
// mapping, and on its GPIOPin-style minimal driver interfaces kept local
// to the package rather than imported from a hardware-abstraction
// dependency.
package fans

import (
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/mathx"
	"github.com/matthewgream/battery-pack-sub000/internal/timing"
)

// Motor is the external H-bridge/PWM collaborator for a single fan.
type Motor interface {
	SetDuty(duty uint8)
	Stop()
	SetDirection(forward bool)
}

const (
	FanMin = 0.0
	FanMax = 100.0
)

// Strategy is the common contract every distribution strategy implements.
type Strategy interface {
	SetSpeed(pct float64) (active bool)
}

// AllStrategy drives every motor to the same duty, linearly scaled from
// [FanMin, FanMax] onto [minSpeed, maxSpeed].
type AllStrategy struct {
	motors            []Motor
	minSpeed, maxSpeed uint8
	last              timing.Tracker[float64]
}

func NewAllStrategy(motors []Motor, minSpeed, maxSpeed uint8) *AllStrategy {
	return &AllStrategy{motors: motors, minSpeed: minSpeed, maxSpeed: maxSpeed}
}

func (s *AllStrategy) SetSpeed(pct float64) bool {
	pct = mathx.Clamp(pct, FanMin, FanMax)
	if !s.last.Update(pct) {
		return pct > 0
	}
	if pct == 0 {
		for _, m := range s.motors {
			m.Stop()
			m.SetDuty(0)
		}
		return false
	}
	duty := uint8(mathx.MapFloat(pct, FanMin, FanMax, float64(s.minSpeed), float64(s.maxSpeed)))
	for _, m := range s.motors {
		m.SetDirection(true)
		m.SetDuty(duty)
	}
	return true
}

// MapStrategy partitions total demand pct*N across N motors in order:
// motor i saturates fully before motor i+1 begins; writes only on change.
type MapStrategy struct {
	motors             []Motor
	minSpeed, maxSpeed uint8
	lastDuty           []timing.Tracker[uint8]
}

func NewMapStrategy(motors []Motor, minSpeed, maxSpeed uint8) *MapStrategy {
	return &MapStrategy{motors: motors, minSpeed: minSpeed, maxSpeed: maxSpeed, lastDuty: make([]timing.Tracker[uint8], len(motors))}
}

func (s *MapStrategy) SetSpeed(pct float64) bool {
	pct = mathx.Clamp(pct, FanMin, FanMax)
	n := len(s.motors)
	if n == 0 {
		return false
	}
	totalDemand := pct * float64(n) / 100.0 // in units of "motors fully saturated"
	active := false
	for i, m := range s.motors {
		lo, hi := float64(i), float64(i+1)
		var frac float64
		switch {
		case totalDemand <= lo:
			frac = 0
		case totalDemand >= hi:
			frac = 1
		default:
			frac = totalDemand - lo
		}
		var duty uint8
		if frac <= 0 {
			duty = 0
		} else {
			duty = uint8(mathx.MapFloat(frac*100, 0, 100, float64(s.minSpeed), float64(s.maxSpeed)))
			active = true
		}
		if s.lastDuty[i].Update(duty) {
			if duty == 0 {
				m.Stop()
			} else {
				m.SetDirection(true)
			}
			m.SetDuty(duty)
		}
	}
	return active
}

// RotateStrategy wraps a MapStrategy and rotates motor order left by one
// every rotatePeriod to equalize wear.
type RotateStrategy struct {
	inner        *MapStrategy
	order        []int
	rotatePeriod time.Duration
	lastRotate   time.Time
}

func NewRotateStrategy(motors []Motor, minSpeed, maxSpeed uint8, rotatePeriod time.Duration) *RotateStrategy {
	order := make([]int, len(motors))
	for i := range order {
		order[i] = i
	}
	return &RotateStrategy{
		inner:        NewMapStrategy(motors, minSpeed, maxSpeed),
		order:        order,
		rotatePeriod: rotatePeriod,
	}
}

// Tick rotates the motor order if rotatePeriod has elapsed since last
// rotation, given the current time.
func (s *RotateStrategy) Tick(now time.Time) {
	if s.lastRotate.IsZero() {
		s.lastRotate = now
		return
	}
	if now.Sub(s.lastRotate) < s.rotatePeriod {
		return
	}
	s.lastRotate = now
	n := len(s.inner.motors)
	if n < 2 {
		return
	}
	rotated := make([]Motor, n)
	rotatedLast := make([]timing.Tracker[uint8], n)
	for i := 0; i < n; i++ {
		rotated[i] = s.inner.motors[(i+1)%n]
		rotatedLast[i] = s.inner.lastDuty[(i+1)%n]
	}
	s.inner.motors = rotated
	s.inner.lastDuty = rotatedLast
}

func (s *RotateStrategy) SetSpeed(pct float64) bool { return s.inner.SetSpeed(pct) }
