package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt client not connected")
	// ErrPublish is returned once every publish attempt has failed.
	ErrPublish = errors.New("mqtt publish failed")
)
