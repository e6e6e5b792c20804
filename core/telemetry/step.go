package telemetry

import (
	"math"

	"github.com/kilianp07/evnav/core/model"
)

// Sampler draws uniform values in [0, 1). *rand.Rand satisfies it.
type Sampler interface {
	Float64() float64
}

const (
	chargeTempDrift   = 0.5
	chargeSOCRate     = 1.0
	dischargeTempMin  = 15.0
	dischargeTempSpan = 15.0
	dischargeSOCRate  = 0.02
)

// Step advances the battery of c by one telemetry tick and reports whether
// anything changed. Idle cars are returned unchanged.
//
// A charging battery warms by up to 0.5 °C and gains up to 1 % SoC; reaching
// 100 % clamps the SoC and switches the car to idle. A discharging battery
// has its temperature resampled in [15, 30) °C and loses up to 0.02 % SoC;
// reaching 0 % clamps and switches to idle.
func Step(c model.Car, rnd Sampler) (model.Car, bool) {
	switch c.ChargingStatus {
	case model.StatusCharging:
		c.BatteryTemperatureC += rnd.Float64() * chargeTempDrift
		c.BatterySOCPercent += rnd.Float64() * chargeSOCRate
		if c.BatterySOCPercent >= 100 {
			c.BatterySOCPercent = 100
			c.ChargingStatus = model.StatusIdle
		}
	case model.StatusDischarging:
		c.BatteryTemperatureC = dischargeTempMin + rnd.Float64()*dischargeTempSpan
		c.BatterySOCPercent -= rnd.Float64() * dischargeSOCRate
		if c.BatterySOCPercent <= 0 {
			c.BatterySOCPercent = 0
			c.ChargingStatus = model.StatusIdle
		}
	default:
		return c, false
	}
	c.BatteryTemperatureC = round2(c.BatteryTemperatureC)
	c.BatterySOCPercent = round2(c.BatterySOCPercent)
	return c, true
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
