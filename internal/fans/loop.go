package fans

import "github.com/matthewgream/battery-pack-sub000/internal/mathx"

// Loop is the PID + exponential-smoothing control loop invoked every
// scheduler tick, driving a Strategy from a setpoint and the current
// batterypack temperature (spec §4.5).
type Loop struct {
	Kp, Ki, Kd float64
	Alpha      float64
	Setpoint   float64

	strategy Strategy

	iAccum float64
	ePrev  float64
	uPrev  float64
}

func NewLoop(kp, ki, kd, alpha, setpoint float64, strategy Strategy) *Loop {
	return &Loop{Kp: kp, Ki: ki, Kd: kd, Alpha: alpha, Setpoint: setpoint, strategy: strategy}
}

// Step advances the loop by one tick given the current maximum batterypack
// temperature and the elapsed seconds since the previous call.
func (l *Loop) Step(current float64, dtSeconds float64) (active bool) {
	if current < l.Setpoint {
		l.iAccum = 0
		l.ePrev = 0
		l.uPrev = 0
		return l.strategy.SetSpeed(0)
	}

	e := l.Setpoint - current
	p := l.Kp * e
	l.iAccum = mathx.Clamp(l.iAccum+l.Ki*e*dtSeconds, -100, 100)

	var d float64
	if dtSeconds > 0 {
		d = l.Kd * (e - l.ePrev) / dtSeconds
	}
	l.ePrev = e

	uRaw := p + l.iAccum + d
	uLin := mathx.Clamp(mathx.MapFloat(uRaw, -100, 100, 0, 100), 0, 100)
	uOut := l.Alpha*uLin + (1-l.Alpha)*l.uPrev
	l.uPrev = uOut

	return l.strategy.SetSpeed(uOut)
}
