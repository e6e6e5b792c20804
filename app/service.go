package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evnav/api"
	"github.com/kilianp07/evnav/auth"
	"github.com/kilianp07/evnav/config"
	coremetrics "github.com/kilianp07/evnav/core/metrics"
	coremon "github.com/kilianp07/evnav/core/monitoring"
	"github.com/kilianp07/evnav/core/navigation"
	"github.com/kilianp07/evnav/core/playback"
	"github.com/kilianp07/evnav/core/telemetry"
	"github.com/kilianp07/evnav/infra/logger"
	"github.com/kilianp07/evnav/infra/metrics"
	"github.com/kilianp07/evnav/infra/monitoring"
	"github.com/kilianp07/evnav/infra/mqtt"
	"github.com/kilianp07/evnav/infra/routing/ors"
	"github.com/kilianp07/evnav/infra/stream"
)

// Service wires the navigation engine, the telemetry simulator and the HTTP
// API from the configuration.
type Service struct {
	cfg *config.Config
	log logger.Logger

	Stores    *Stores
	Engine    *navigation.Engine
	Simulator *telemetry.Simulator
	API       *api.Server

	channel   *navigation.Channel
	relay     *stream.RedisBroadcaster
	redis     *redis.Client
	publisher *mqtt.Publisher
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	stores, err := OpenStores(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, log: logg, Stores: stores}

	s.channel = navigation.NewChannel(cfg.Navigation.SubscriberBuffer)
	var out navigation.Broadcaster = s.channel
	if cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,

			ContextTimeoutEnabled: true,
		})
		s.relay = stream.NewRedisBroadcaster(s.redis, s.channel, cfg.Redis.ChannelPrefix, logger.New("redis-relay"))
		s.relay.SetPublishTimeout(cfg.Redis.PublishTimeout())
		out = s.relay
	}

	builder := playback.Builder{Mode: cfg.Navigation.Mode()}
	s.Engine = navigation.NewEngine(navigation.Config{
		TickInterval:      cfg.Navigation.TickInterval(),
		MaxInflightWrites: cfg.Navigation.MaxInflightWrites,
		MaxPendingEvents:  cfg.Navigation.MaxPendingEvents,
		Builder:           builder,
	}, stores.Routes, stores.Vehicles, out, logger.New("navigation"), sink)

	var pub telemetry.Publisher = discardPublisher{}
	if cfg.Telemetry.PublishEnabled() {
		s.publisher, err = mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		pub = s.publisher
	}
	s.Simulator = telemetry.New(telemetry.Config{
		Interval:     cfg.Telemetry.Interval(),
		TopicFormat:  cfg.Telemetry.TopicFormat,
		WriteTimeout: cfg.Telemetry.WriteTimeout(),
		Workers:      cfg.Telemetry.Workers,
	}, stores.Vehicles, pub, logger.New("telemetry"), sink)

	orsOpts := ors.Options{
		BaseURL:       cfg.Routing.BaseURL,
		APIKey:        cfg.Routing.APIKey,
		Profile:       cfg.Routing.Profile,
		Timeout:       cfg.Routing.Timeout(),
		RatePerMinute: cfg.Routing.RatePerMinute,
		RateBurst:     cfg.Routing.RateBurst,
	}
	if cfg.Routing.Auth.Enabled() {
		orsOpts.Auth = auth.NewClientCred(cfg.Routing.Auth)
	}
	provider := ors.NewClient(orsOpts, logger.New("ors"))

	s.API = api.NewServer(api.Deps{
		Stations:  stores.Stations,
		Routes:    stores.Routes,
		Vehicles:  stores.Vehicles,
		Provider:  provider,
		Navigator: s.Engine,
		Channel:   s.channel,
		Status:    s.Simulator,
		Builder:   builder,
	}, api.Options{
		RateLimit:       cfg.HTTP.RateLimit,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		ShutdownTimeout: time.Duration(cfg.HTTP.ShutdownTimeoutSeconds) * time.Second,
	}, logger.New("api"))
	return s, nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.relay != nil {
		g.Go(func() error { return s.relay.Run(ctx) })
	}
	g.Go(func() error { return s.Simulator.Run(ctx) })
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" && s.cfg.Metrics.HasSink("prometheus") {
		g.Go(func() error { return metrics.StartPromServer(ctx, addr) })
	}
	g.Go(func() error { return s.API.ListenAndServe(ctx, s.cfg.HTTP.Addr) })
	return g.Wait()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.Engine != nil {
		_ = s.Engine.Close()
	}
	if s.channel != nil {
		s.channel.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.Stores.Close()
	coremon.Flush(2 * time.Second)
	return nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(string, []byte) error { return nil }
