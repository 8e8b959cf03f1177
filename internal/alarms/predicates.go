package alarms

import "github.com/matthewgream/battery-pack-sub000/types"

// Temperature thresholds in Celsius (spec §4.8).
const (
	FailureC = -100.0
	MinimalC = -20.0
	WarningC = 35.0
	MaximalC = 45.0
)

// TemperaturePredicate evaluates the batterypack min/max predicates into
// an AlarmSet: TEMP_FAIL, TEMP_MIN, TEMP_WARN, TEMP_MAX.
type TemperaturePredicate struct {
	Min, Max func() (float64, bool)
}

func (p TemperaturePredicate) Alarms() types.AlarmSet {
	var set types.AlarmSet
	min, minOK := p.Min()
	max, maxOK := p.Max()
	if minOK {
		switch {
		case min <= FailureC:
			set = set.Set(types.TempFail)
		case min <= MinimalC:
			set = set.Set(types.TempMin)
		}
	}
	if maxOK {
		switch {
		case max >= MaximalC:
			set = set.Set(types.TempMax)
		case max >= WarningC:
			set = set.Set(types.TempWarn)
		}
	}
	return set
}

// CounterPredicate raises one alarm kind when a failure count exceeds a
// limit, and another when a remaining-capacity percentage drops below a
// limit (the STORE_FAIL/STORE_SIZE, PUBLISH_FAIL/PUBLISH_SIZE and
// DELIVER_FAIL/DELIVER_SIZE pairs all share this shape).
type CounterPredicate struct {
	Failures      func() int
	FailureLimit  int
	FailKind      types.AlarmKind

	FreePercent  func() float64
	SizeLimitPct float64
	SizeKind     types.AlarmKind
}

func (p CounterPredicate) Alarms() types.AlarmSet {
	var set types.AlarmSet
	if p.Failures != nil && p.Failures() > p.FailureLimit {
		set = set.Set(p.FailKind)
	}
	if p.FreePercent != nil && p.FreePercent() < p.SizeLimitPct {
		set = set.Set(p.SizeKind)
	}
	return set
}
