package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evnav/core/logger"
	coremetrics "github.com/kilianp07/evnav/core/metrics"
	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/monitoring"
	"github.com/kilianp07/evnav/core/store"
)

// Publisher sends a payload to a pub/sub topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// DefaultTopicFormat scopes a vehicle snapshot topic by vehicle id.
const DefaultTopicFormat = "user/%s/data"

// Config tunes the Simulator.
type Config struct {
	Interval time.Duration
	// TopicFormat is a fmt pattern receiving the vehicle id.
	TopicFormat string
	// WriteTimeout bounds each battery write.
	WriteTimeout time.Duration
	// Workers bounds the vehicles stepped concurrently within one tick, so
	// a slow store stretches a tick by WriteTimeout per batch of Workers
	// vehicles rather than per vehicle.
	Workers int
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.TopicFormat == "" {
		c.TopicFormat = DefaultTopicFormat
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 16
	}
}

// Simulator drives the battery state of every known vehicle on a global
// clock and publishes each new snapshot.
type Simulator struct {
	cfg      Config
	vehicles store.VehicleStore
	pub      Publisher
	log      logger.Logger
	metrics  coremetrics.MetricsSink
	locks    vehicleLocks

	mu  sync.Mutex
	rnd Sampler
}

// New creates a Simulator. log and sink may be nil.
func New(cfg Config, vehicles store.VehicleStore, pub Publisher, log logger.Logger, sink coremetrics.MetricsSink) *Simulator {
	cfg.setDefaults()
	return &Simulator{
		cfg:      cfg,
		vehicles: vehicles,
		pub:      pub,
		log:      logger.OrNop(log),
		metrics:  coremetrics.OrNop(sink),
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// SetSampler replaces the random source.
func (s *Simulator) SetSampler(r Sampler) {
	if r == nil {
		return
	}
	s.mu.Lock()
	s.rnd = r
	s.mu.Unlock()
}

// Topic returns the topic a vehicle's snapshots are published to.
func (s *Simulator) Topic(vehicleID string) string {
	return fmt.Sprintf(s.cfg.TopicFormat, vehicleID)
}

// Run ticks until ctx is cancelled. A tick that outlasts the interval
// delays the next one; missed ticks are not replayed.
func (s *Simulator) Run(ctx context.Context) error {
	s.log.Infof("telemetry simulator started (interval %s)", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			s.log.Infof("telemetry simulator stopped")
			return nil
		}
	}
}

// Tick advances every vehicle by one step, up to Workers vehicles at a
// time. A failure on one vehicle is logged and does not prevent the others
// from being processed.
func (s *Simulator) Tick(ctx context.Context) {
	gens := s.locks.generations()
	vehicles, err := s.vehicles.ListAll(ctx)
	if err != nil {
		s.log.Errorf("list vehicles: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "telemetry"})
		return
	}
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, v := range vehicles {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			tags := map[string]string{"component": "telemetry", "vehicle_id": v.ID}
			if err := monitoring.Guard(tags, func() { s.stepVehicle(ctx, v, gens[v.ID]) }); err != nil {
				s.log.Errorf("vehicle %s: %v", v.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// stepVehicle steps v, listed while the vehicle was at status generation
// seen. If UpdateStatus ran since, v is stale and is read again so the step
// does not write the old status back.
func (s *Simulator) stepVehicle(ctx context.Context, v model.Vehicle, seen uint64) {
	lk := s.locks.get(v.ID)
	lk.Lock()
	defer lk.Unlock()
	if lk.gen.Load() != seen {
		fresh, err := s.vehicles.Get(ctx, v.ID)
		if err != nil {
			s.log.Warnf("reload %s after status change: %v", v.ID, err)
			return
		}
		v = fresh
	}

	s.mu.Lock()
	car, changed := Step(v.Car, s.rnd)
	s.mu.Unlock()
	v.Car = car

	if changed {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		err := s.vehicles.Save(wctx, v)
		cancel()
		if err != nil {
			s.log.Warnf("save battery state for %s: %v", v.ID, err)
			_ = s.metrics.RecordPersistenceFailure(coremetrics.PersistenceFailureEvent{
				Component: "telemetry",
				Operation: "save",
				Key:       v.ID,
				Err:       err,
				Time:      time.Now(),
			})
		}
	}
	_ = s.metrics.RecordVehicleState(coremetrics.VehicleStateEvent{Vehicle: v, Component: "telemetry", Time: time.Now()})
	s.publish(v)
}

func (s *Simulator) publish(v model.Vehicle) {
	topic := s.Topic(v.ID)
	payload, err := json.Marshal(v)
	if err == nil {
		err = s.pub.Publish(topic, payload)
	}
	_ = s.metrics.RecordTelemetryPublish(coremetrics.TelemetryPublishEvent{
		VehicleID: v.ID,
		Topic:     topic,
		OK:        err == nil,
		Time:      time.Now(),
	})
	if err != nil {
		s.log.Errorf("publish %s: %v", topic, err)
	}
}

// UpdateStatus sets the charging status of a vehicle and publishes the new
// snapshot immediately instead of waiting for the next tick. It is
// serialized with the vehicle's tick step.
func (s *Simulator) UpdateStatus(ctx context.Context, vehicleID string, status model.ChargingStatus) (model.Vehicle, error) {
	st, err := model.ParseChargingStatus(string(status))
	if err != nil {
		return model.Vehicle{}, err
	}
	lk := s.locks.get(vehicleID)
	lk.Lock()
	defer lk.Unlock()
	v, err := s.vehicles.UpdateStatus(ctx, vehicleID, st)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.locks.forget(vehicleID, lk)
		}
		return model.Vehicle{}, fmt.Errorf("update status of %s: %w", vehicleID, err)
	}
	lk.gen.Add(1)
	s.log.Infof("vehicle %s is now %s", vehicleID, st)
	s.publish(v)
	return v, nil
}
