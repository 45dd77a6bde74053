package teamchat

import "context"

// Transport is the capability contract between chat UIs and the wire
// protocol. Alternate implementations (mock, long-polling, WebSocket)
// are interchangeable behind it.
//
// OnMessage and OnPresence hold a single active listener each: a new
// registration replaces the previous one, and the returned func
// releases the slot. This is a deliberate single-subscriber design,
// not a multicast bus.
type Transport interface {
	// Connect establishes the underlying connection. It blocks until
	// the handshake completes, fails, or times out.
	Connect(ctx context.Context) error

	// Disconnect releases all subscriptions and the connection.
	// Idempotent; never fails.
	Disconnect()

	// Join subscribes to a team's channels. Fails with a
	// CodeNotConnected error before a successful Connect.
	Join(teamID string) error

	// Leave unsubscribes a team's channels. No-op when the team was
	// never joined.
	Leave(teamID string)

	// Send publishes an outbound chat message. Blank text (after
	// trimming) is a silent no-op, not an error. Delivery is
	// fire-and-forget: there is no server acknowledgment.
	Send(ctx context.Context, teamID, text string) error

	OnMessage(fn func(ChatMessage)) (unsubscribe func())
	OnPresence(fn func(PresenceEvent)) (unsubscribe func())
}
