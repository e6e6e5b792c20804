// Package telemetry simulates vehicle batteries. A single global clock steps
// the state of charge and temperature of every vehicle and publishes the
// resulting snapshot on a per-vehicle topic.
package telemetry
