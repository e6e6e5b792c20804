package model

// Station is a charging station.
type Station struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Address  string `json:"address" yaml:"address"`
	Location Point  `json:"location" yaml:"location"`
}
