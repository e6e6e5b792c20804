// Package infra holds the adapters behind the core ports: stores, the
// routing provider client, the MQTT publisher, the Redis event relay,
// metrics sinks and error monitoring.
package infra
