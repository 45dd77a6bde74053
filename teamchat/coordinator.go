package teamchat

import (
	"context"
	"strings"
	"sync"
)

// Coordinator binds a Transport to one team conversation at a time. It
// owns the observable message state: on team switch it releases the old
// team's subscriptions before acquiring the new ones, and it filters
// inbound messages by team id so frames from a stale subscription can
// never leak into the wrong conversation.
type Coordinator struct {
	transport Transport
	logger    Logger

	mu            sync.Mutex
	teamID        string
	messages      []ChatMessage
	unsubMsg      func()
	unsubPresence func()
	presenceFn    func(PresenceEvent)
}

// NewCoordinator wraps a transport. A nil logger means silent.
func NewCoordinator(transport Transport, logger Logger) *Coordinator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Coordinator{transport: transport, logger: logger}
}

// Connect brings up the transport. A failure is logged and returned;
// the coordinator simply stays disconnected, history (if loaded
// elsewhere) still renders.
func (co *Coordinator) Connect(ctx context.Context) error {
	if co.transport == nil {
		return NewError(CodeNotConnected, "no transport configured")
	}
	if err := co.transport.Connect(ctx); err != nil {
		co.logger.Error("chat connect failed", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

// SetPresenceFunc sets the callback invoked for presence events of the
// active team. Optional.
func (co *Coordinator) SetPresenceFunc(fn func(PresenceEvent)) {
	co.mu.Lock()
	co.presenceFn = fn
	co.mu.Unlock()
}

// SetTeam switches the active conversation. The previous team's
// listeners are unregistered and its channels left before the new team
// is joined; accumulated messages are discarded because they belong to
// the previous conversation. An empty id deactivates chat. Cleanup
// failures are logged, never propagated.
func (co *Coordinator) SetTeam(teamID string) error {
	co.mu.Lock()
	prev := co.teamID
	co.detachLocked()
	co.teamID = teamID
	co.messages = nil
	co.mu.Unlock()

	if prev != "" && prev != teamID {
		co.transport.Leave(prev)
	}
	if teamID == "" {
		return nil
	}

	if err := co.transport.Join(teamID); err != nil {
		co.logger.Error("join team failed", map[string]any{"team": teamID, "error": err.Error()})
		return err
	}

	unsubMsg := co.transport.OnMessage(func(msg ChatMessage) { co.acceptMessage(teamID, msg) })
	unsubPresence := co.transport.OnPresence(func(evt PresenceEvent) { co.acceptPresence(teamID, evt) })

	co.mu.Lock()
	if co.teamID != teamID {
		// a faster SetTeam raced us; roll back
		co.mu.Unlock()
		unsubMsg()
		unsubPresence()
		co.transport.Leave(teamID)
		return nil
	}
	co.unsubMsg = unsubMsg
	co.unsubPresence = unsubPresence
	co.mu.Unlock()
	return nil
}

// TeamID returns the active team id, empty when chat is inactive.
func (co *Coordinator) TeamID() string {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.teamID
}

// Messages returns a snapshot of the live messages accumulated for the
// active team, in arrival order.
func (co *Coordinator) Messages() []ChatMessage {
	co.mu.Lock()
	defer co.mu.Unlock()
	out := make([]ChatMessage, len(co.messages))
	copy(out, co.messages)
	return out
}

// Send publishes text to the active team. No transport, no active team
// or blank text are all quiet no-ops.
func (co *Coordinator) Send(ctx context.Context, text string) error {
	co.mu.Lock()
	teamID := co.teamID
	co.mu.Unlock()
	if co.transport == nil || teamID == "" || strings.TrimSpace(text) == "" {
		return nil
	}
	if err := co.transport.Send(ctx, teamID, text); err != nil {
		co.logger.Error("send failed", map[string]any{"team": teamID, "error": err.Error()})
		return err
	}
	return nil
}

// Close leaves the active team, unregisters listeners and disconnects
// the transport.
func (co *Coordinator) Close() {
	co.mu.Lock()
	prev := co.teamID
	co.teamID = ""
	co.messages = nil
	co.detachLocked()
	co.mu.Unlock()

	if co.transport == nil {
		return
	}
	if prev != "" {
		co.transport.Leave(prev)
	}
	co.transport.Disconnect()
}

// acceptMessage appends an inbound message iff it belongs to the team
// this listener was registered for and that team is still active. Both
// ids are already canonical strings; the comparison happens once, here.
func (co *Coordinator) acceptMessage(teamID string, msg ChatMessage) {
	if msg.TeamID != teamID {
		co.logger.Debug("message for other team dropped", map[string]any{"got": msg.TeamID, "want": teamID})
		return
	}
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.teamID != teamID {
		return
	}
	co.messages = append(co.messages, msg)
}

func (co *Coordinator) acceptPresence(teamID string, evt PresenceEvent) {
	if evt.TeamID != teamID {
		return
	}
	co.mu.Lock()
	fn := co.presenceFn
	active := co.teamID == teamID
	co.mu.Unlock()
	if fn != nil && active {
		fn(evt)
	}
}

// detachLocked releases both listener registrations. Caller holds mu.
func (co *Coordinator) detachLocked() {
	if co.unsubMsg != nil {
		co.unsubMsg()
		co.unsubMsg = nil
	}
	if co.unsubPresence != nil {
		co.unsubPresence()
		co.unsubPresence = nil
	}
}
