// Package util holds container and polling helpers for integration tests.
// Tests using it skip themselves unless DOCKER_AVAILABLE is set.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// RequireDocker skips t when no Docker daemon is advertised.
func RequireDocker(t testing.TB) {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") == "" {
		t.Skip("DOCKER_AVAILABLE not set")
	}
}

// WaitForMetric polls metricsURL until its body contains substr.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	return poll(ctx, func() bool {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(body), substr)
	}, fmt.Sprintf("metric %q", substr))
}

func poll(ctx context.Context, ok func() bool, what string) error {
	for {
		if ok() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not ready: %w", what, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// container starts req and returns host:port for the given exposed port.
func container(ctx context.Context, req tc.ContainerRequest, port string) (string, func(), error) {
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }
	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	mapped, err := cont.MappedPort(ctx, nat.Port(port))
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), cleanup, nil
}

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
connection_messages true
`

// StartMosquitto launches a disposable Mosquitto broker and returns its
// tcp:// URL once it accepts MQTT connections.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(mosquittoConf), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	addr, stop, err := container(ctx, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}, "1883")
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	cleanup := func() {
		stop()
		_ = os.RemoveAll(dir)
	}

	broker := "tcp://" + addr
	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("ready-" + uuid.NewString())
	err = poll(waitCtx, func() bool {
		cli := paho.NewClient(opts)
		tok := cli.Connect()
		tok.Wait()
		if tok.Error() != nil {
			return false
		}
		cli.Disconnect(100)
		return true
	}, "mosquitto")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return broker, cleanup, nil
}

// StartPostGIS launches a PostGIS-enabled Postgres and returns its DSN.
func StartPostGIS(ctx context.Context) (string, func(), error) {
	addr, cleanup, err := container(ctx, tc.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "evnav",
			"POSTGRES_PASSWORD": "evnav",
			"POSTGRES_DB":       "evnav",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}, "5432")
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("postgres://evnav:evnav@%s/evnav?sslmode=disable", addr), cleanup, nil
}
