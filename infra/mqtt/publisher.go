// Package mqtt publishes telemetry snapshots to an MQTT broker through
// Eclipse Paho.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kilianp07/evnav/core/monitoring"
	coremqtt "github.com/kilianp07/evnav/core/mqtt"
	"github.com/kilianp07/evnav/infra/logger"
)

// Presence payloads written to Config.StatusTopic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Config defines the broker connection.
type Config struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	QoS        byte   `json:"qos"`
	Retain     bool   `json:"retain"`
	// StatusTopic receives a retained "online" on connect and, through the
	// last will, "offline" when the connection drops. Empty disables it.
	StatusTopic string `json:"status_topic"`
	MaxRetries  int    `json:"max_retries"`
	BackoffMS   int    `json:"backoff_ms"`

	TLSConfig *tls.Config `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher implements the telemetry publisher on a Paho client.
type Publisher struct {
	cli pahoClient
	log logger.Logger

	qos         byte
	retain      bool
	statusTopic string
	maxRetries  int
	backoff     time.Duration

	closeOnce sync.Once
}

// NewPublisher connects to the broker and announces presence.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "evnav-" + uuid.NewString()
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		log:         logger.New("mqtt"),
		qos:         cfg.QoS,
		retain:      cfg.Retain,
		statusTopic: cfg.StatusTopic,
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		p.log.Infof("connected to %s as %s", cfg.Broker, cfg.ClientID)
		if p.statusTopic != "" {
			c.Publish(p.statusTopic, 1, true, StatusOnline)
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		p.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		p.log.Warnf("reconnecting to %s", cfg.Broker)
	}

	c := newMQTTClient(opts)
	if tok := c.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, tok.Error())
	}
	p.cli = c
	return p, nil
}

// NewClientOptions maps cfg onto Paho options. The OnConnect hooks are set
// by NewPublisher.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.StatusTopic != "" {
		opts.SetWill(cfg.StatusTopic, StatusOffline, 1, true)
	}
	return opts, nil
}

// LoadTLSConfig builds a mutual TLS configuration from the PEM files named
// in c, unless c.TLSConfig is already set.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}
	ca, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Publish sends payload to topic, retrying with exponential backoff.
func (p *Publisher) Publish(topic string, payload []byte) error {
	if p.cli == nil || !p.cli.IsConnected() {
		return coremqtt.ErrNotConnected
	}
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		tok := p.cli.Publish(topic, p.qos, p.retain, payload)
		tok.Wait()
		if err = tok.Error(); err == nil {
			p.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.log.Warnf("publish to %s, attempt %d: %v", topic, attempt+1, err)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff << attempt)
		}
	}
	coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return fmt.Errorf("%w: %s: %v", coremqtt.ErrPublish, topic, err)
}

// Close marks the publisher offline and disconnects. It is safe to call
// more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.cli == nil || !p.cli.IsConnected() {
			return
		}
		if p.statusTopic != "" {
			p.cli.Publish(p.statusTopic, 1, true, StatusOffline).WaitTimeout(time.Second)
		}
		p.cli.Disconnect(250)
	})
}
