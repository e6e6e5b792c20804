package model

import (
	"fmt"
	"strings"
)

// ChargingStatus describes what the battery of a vehicle is currently doing.
type ChargingStatus string

const (
	StatusCharging    ChargingStatus = "charging"
	StatusIdle        ChargingStatus = "idle"
	StatusDischarging ChargingStatus = "discharging"
)

// ParseChargingStatus validates s and returns the matching status.
func ParseChargingStatus(s string) (ChargingStatus, error) {
	switch st := ChargingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusCharging, StatusIdle, StatusDischarging:
		return st, nil
	default:
		return "", fmt.Errorf("unknown charging status %q", s)
	}
}

// Car holds the battery and identity data of the vehicle a user drives.
type Car struct {
	Make                string         `json:"make" yaml:"make"`
	Model               string         `json:"model" yaml:"model"`
	BatterySizeKWh      float64        `json:"batterySize_kWh" yaml:"battery_size_kwh"`
	BatterySOCPercent   float64        `json:"batterySOC_percent" yaml:"battery_soc_percent"`
	BatteryTemperatureC float64        `json:"batteryTemperature_C" yaml:"battery_temperature_c"`
	ChargingStatus      ChargingStatus `json:"chargingStatus" yaml:"charging_status"`
	RangeKm             float64        `json:"range_km" yaml:"range_km"`
}

// Vehicle is a provisioned user together with its car. The vehicle ID is the
// user ID: every user drives exactly one vehicle.
type Vehicle struct {
	ID       string `json:"userId" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Location Point  `json:"location" yaml:"location"`
	Car      Car    `json:"car" yaml:"car"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.Car.BatterySOCPercent < 0 || v.Car.BatterySOCPercent > 100 {
		return fmt.Errorf("vehicle %s: soc %.2f out of range [0,100]", v.ID, v.Car.BatterySOCPercent)
	}
	if _, err := ParseChargingStatus(string(v.Car.ChargingStatus)); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.ID, err)
	}
	return nil
}
