package types

// FanCommand is a clamped duty-cycle percentage handed to a fan strategy,
// which maps it onto per-motor 8-bit PWM duty (spec §3 "Fan command").
// Setting 0 first commands a stop on the driver; any positive value
// re-asserts the configured spin direction.
type FanCommand struct {
	PercentPct float64 // clamped to [0, 100]
}

// DutyByte converts the clamped percentage to an 8-bit PWM duty value.
func (c FanCommand) DutyByte() uint8 {
	p := c.PercentPct
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return uint8(p * 255 / 100)
}
