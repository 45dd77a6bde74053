package teamchat

import (
	"context"
	"time"
)

// TokenSource yields the current bearer token. The SDK calls it before
// the handshake and again before each publish, so rotated tokens are
// picked up without reconnecting. An empty token is a hard failure for
// Connect and a logged no-op for Send.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken adapts a fixed token string into a TokenSource.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Config controls how the transport connects.
type Config struct {
	// BaseURL is the server root, e.g. "wss://api.example.com". The
	// STOMP endpoint lives at BaseURL + "/stomp".
	BaseURL string

	Token TokenSource

	// HandshakeTimeout bounds dial plus the STOMP CONNECT/CONNECTED
	// exchange. Zero disables it.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame write. Zero disables it.
	WriteTimeout time.Duration

	// ReconnectInterval is the base delay before the first automatic
	// reconnect attempt; it doubles on every further attempt.
	ReconnectInterval time.Duration

	// MaxReconnectTries caps automatic reconnect attempts after an
	// unexpected drop. Once exhausted the client stays disconnected
	// until Connect is called again.
	MaxReconnectTries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectInterval: time.Second,
		MaxReconnectTries: 5,
	}
}
