package teamchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/greenworld/teamchat-sdk/teamchat-sdk-go/teamchat/internal/stomp"
)

type subKind int

const (
	subMessages subKind = iota
	subPresence
	subOnline
)

// route maps a STOMP subscription id back to the team and channel it
// belongs to.
type route struct {
	teamID string
	kind   subKind
}

// teamSubs holds the three subscription ids of one joined team, in
// messages/presence/online order.
type teamSubs [3]string

// Client is the STOMP-over-WebSocket Transport implementation. One
// instance serves one active chat session; Join/Leave keep a registry
// of per-team subscriptions that is released symmetrically.
type Client struct {
	cfg        Config
	logger     Logger
	dispatcher dispatcher

	mu            sync.Mutex
	state         ConnectionState
	conn          *stomp.Conn
	cancel        context.CancelFunc
	subs          map[string]teamSubs
	routes        map[string]route
	nextSub       int
	attempts      int
	gen           uint64
	pendingRejoin []string

	// timer seam so reconnect scheduling is testable without sleeping
	afterFunc func(time.Duration, func()) *time.Timer
}

var _ Transport = (*Client)(nil)

// NewClient constructs a client with the provided config. Use
// DefaultConfig() as a starting point.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:       cfg,
		logger:    noopLogger{},
		subs:      make(map[string]teamSubs),
		routes:    make(map[string]route),
		afterFunc: time.AfterFunc,
	}
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnMessage registers the single active chat message listener.
func (c *Client) OnMessage(fn func(ChatMessage)) func() { return c.dispatcher.setOnMessage(fn) }

// OnPresence registers the single active presence listener.
func (c *Client) OnPresence(fn func(PresenceEvent)) func() { return c.dispatcher.setOnPresence(fn) }

// OnRoster registers the single active online-roster listener.
func (c *Client) OnRoster(fn func(RosterEvent)) func() { return c.dispatcher.setOnRoster(fn) }

// OnStateChanged registers the single active state transition listener.
func (c *Client) OnStateChanged(fn func(StateEvent)) func() { return c.dispatcher.setOnState(fn) }

// OnError registers the single active error listener. It receives
// connection drops, exhausted reconnects and broker error frames;
// per-frame parse failures are only logged.
func (c *Client) OnError(fn func(error)) func() { return c.dispatcher.setOnError(fn) }

// Connect dials the STOMP endpoint and performs the CONNECT handshake.
// It blocks until the broker answers, the handshake fails, or the
// handshake timeout fires. A failed first connection is surfaced here;
// automatic retry only starts after a drop of an established
// connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting || c.state == StateReconnecting {
		c.mu.Unlock()
		return NewError(CodeConnection, "already "+c.state.String())
	}
	c.attempts = 0
	c.setStateLocked(StateConnecting, nil)
	gen := c.gen
	c.mu.Unlock()

	conn, err := c.dial(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateConnecting {
		if err == nil {
			_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		}
		return NewError(CodeConnection, "connect attempt superseded")
	}
	if err != nil {
		c.setStateLocked(StateDisconnected, err)
		return err
	}
	c.installLocked(conn)
	c.logger.Info("connected", map[string]any{"url": c.cfg.BaseURL})
	return nil
}

// Disconnect releases every remaining subscription, closes the socket
// and clears all state. Idempotent; safe to call at any time.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++ // invalidates pending reconnect timers and read loops
	conn := c.conn
	ids := make([]string, 0, len(c.routes))
	for id := range c.routes {
		ids = append(ids, id)
	}
	c.conn = nil
	c.subs = make(map[string]teamSubs)
	c.routes = make(map[string]route)
	c.pendingRejoin = nil
	c.attempts = 0
	c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()

	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, id := range ids {
		_ = conn.Write(ctx, stomp.NewFrame(stomp.CmdUnsubscribe, stomp.HdrID, id))
	}
	_ = conn.Write(ctx, stomp.NewFrame(stomp.CmdDisconnect))
	_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	c.logger.Info("disconnected", nil)
}

// Join announces the user to a team's chat room and subscribes to its
// message, presence and online-roster topics.
func (c *Client) Join(teamID string) error {
	n, err := numericTeamID(teamID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return NewError(CodeNotConnected, "join requires an active connection")
	}
	if _, joined := c.subs[teamID]; joined {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	var ids teamSubs
	for i := range ids {
		c.nextSub++
		ids[i] = fmt.Sprintf("sub-%d", c.nextSub)
	}
	c.subs[teamID] = ids
	c.routes[ids[0]] = route{teamID: teamID, kind: subMessages}
	c.routes[ids[1]] = route{teamID: teamID, kind: subPresence}
	c.routes[ids[2]] = route{teamID: teamID, kind: subOnline}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, _ := json.Marshal(controlPayload{TeamID: n})
	frames := []*stomp.Frame{
		withBody(stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, destJoin(teamID), stomp.HdrContentType, "application/json"), body),
		stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, ids[0], stomp.HdrDestination, topicMessages(teamID)),
		stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, ids[1], stomp.HdrDestination, topicPresence(teamID)),
		stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, ids[2], stomp.HdrDestination, topicOnline(teamID)),
	}
	for _, f := range frames {
		if err := conn.Write(ctx, f); err != nil {
			c.mu.Lock()
			delete(c.subs, teamID)
			for _, id := range ids {
				delete(c.routes, id)
			}
			c.mu.Unlock()
			return WrapError(CodePublish, "join team "+teamID, err)
		}
	}
	c.logger.Info("joined team", map[string]any{"team": teamID})
	return nil
}

// Leave announces departure and drops the team's three subscriptions.
// No-op when the team was never joined. Failures during the wire
// cleanup are logged, never returned: leaving must not block
// navigation.
func (c *Client) Leave(teamID string) {
	c.mu.Lock()
	ids, joined := c.subs[teamID]
	if !joined {
		c.mu.Unlock()
		return
	}
	delete(c.subs, teamID)
	for _, id := range ids {
		delete(c.routes, id)
	}
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if conn == nil || !connected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n, err := numericTeamID(teamID); err == nil {
		body, _ := json.Marshal(controlPayload{TeamID: n})
		leave := withBody(stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, destLeave(teamID), stomp.HdrContentType, "application/json"), body)
		if err := conn.Write(ctx, leave); err != nil {
			c.logger.Warn("leave frame failed", map[string]any{"team": teamID, "error": err.Error()})
		}
	}
	for _, id := range ids {
		if err := conn.Write(ctx, stomp.NewFrame(stomp.CmdUnsubscribe, stomp.HdrID, id)); err != nil {
			c.logger.Warn("unsubscribe failed", map[string]any{"team": teamID, "sub": id, "error": err.Error()})
		}
	}
	c.logger.Info("left team", map[string]any{"team": teamID})
}

// Send publishes a chat message to the team's inbound address,
// fire-and-forget. Blank text is a no-op. When disconnected the call
// is a logged no-op rather than an error, so a dead socket never
// crashes the composer.
func (c *Client) Send(ctx context.Context, teamID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || teamID == "" {
		return nil
	}
	n, err := numericTeamID(teamID)
	if err != nil {
		c.logger.Warn("send dropped", map[string]any{"team": teamID, "error": err.Error()})
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if conn == nil || !connected {
		c.logger.Warn("send while disconnected, dropped", map[string]any{"team": teamID})
		return nil
	}

	frame := stomp.NewFrame(stomp.CmdSend,
		stomp.HdrDestination, destSend(teamID),
		stomp.HdrContentType, "application/json",
	)
	if c.cfg.Token != nil {
		token, err := c.cfg.Token(ctx)
		if err != nil {
			c.logger.Warn("send token lookup failed", map[string]any{"error": err.Error()})
		} else if token != "" {
			frame.Headers[stomp.HdrAuthorization] = "Bearer " + token
		}
	}
	frame.Body, _ = json.Marshal(sendPayload{TeamID: n, MessageText: text, MessageType: messageTypeText})

	if err := conn.Write(ctx, frame); err != nil {
		perr := WrapError(CodePublish, "send to team "+teamID, err)
		c.logger.Error("send failed", map[string]any{"team": teamID, "error": err.Error()})
		c.dispatcher.dispatchError(perr)
	}
	return nil
}

// RequestOnlineUsers asks the broker to republish the team's online
// roster. Silent no-op when disconnected.
func (c *Client) RequestOnlineUsers(teamID string) {
	c.publishControl(teamID, destOnline(teamID))
}

// DeleteMessage requests removal of a message. The body is the raw
// message id, matching the broker's delete endpoint. Silent no-op when
// disconnected.
func (c *Client) DeleteMessage(teamID, messageID string) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if conn == nil || !connected || messageID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, destDelete(teamID))
	f.Body = []byte(messageID)
	if err := conn.Write(ctx, f); err != nil {
		c.logger.Warn("delete message failed", map[string]any{"team": teamID, "error": err.Error()})
	}
}

func (c *Client) publishControl(teamID, destination string) {
	n, err := numericTeamID(teamID)
	if err != nil {
		c.logger.Warn("control frame dropped", map[string]any{"team": teamID, "error": err.Error()})
		return
	}
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if conn == nil || !connected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	body, _ := json.Marshal(controlPayload{TeamID: n})
	f := withBody(stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, destination, stomp.HdrContentType, "application/json"), body)
	if err := conn.Write(ctx, f); err != nil {
		c.logger.Warn("control frame failed", map[string]any{"destination": destination, "error": err.Error()})
	}
}

// dial performs token lookup, WebSocket dial and the STOMP handshake.
// The whole exchange is bounded by HandshakeTimeout; on timeout the
// half-open socket is torn down.
func (c *Client) dial(ctx context.Context) (*stomp.Conn, error) {
	if c.cfg.Token == nil {
		return nil, NewError(CodeUnauthorized, "no token source configured")
	}
	token, err := c.cfg.Token(ctx)
	if err != nil {
		return nil, WrapError(CodeUnauthorized, "auth token lookup failed", err)
	}
	if token == "" {
		return nil, NewError(CodeUnauthorized, "auth token missing, sign in first")
	}

	hctx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/stomp"
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, WrapError(CodeConnection, "invalid base URL", err)
	}

	ws, _, err := websocket.Dial(hctx, endpoint, nil)
	if err != nil {
		return nil, classifyHandshakeErr(ctx, hctx, "dial failed", err)
	}
	conn := stomp.NewConn(ws, c.cfg.WriteTimeout)

	connect := stomp.NewFrame(stomp.CmdConnect,
		stomp.HdrAcceptVersion, "1.2",
		stomp.HdrHost, u.Host,
		stomp.HdrHeartBeat, "0,0",
		stomp.HdrAuthorization, "Bearer "+token,
	)
	if err := conn.Write(hctx, connect); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return nil, classifyHandshakeErr(ctx, hctx, "handshake write failed", err)
	}

	f, err := conn.Read(hctx)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return nil, classifyHandshakeErr(ctx, hctx, "handshake read failed", err)
	}
	switch f.Command {
	case stomp.CmdConnected:
		return conn, nil
	case stomp.CmdError:
		_ = conn.Close(websocket.StatusNormalClosure, "handshake rejected")
		return nil, NewError(CodeConnection, "handshake rejected: "+f.Headers[stomp.HdrMessage])
	default:
		_ = conn.Close(websocket.StatusProtocolError, "unexpected frame")
		return nil, NewError(CodeConnection, "unexpected handshake frame "+f.Command)
	}
}

// installLocked adopts a freshly handshaken connection. Caller holds mu.
func (c *Client) installLocked(conn *stomp.Conn) {
	c.gen++
	c.conn = conn
	c.attempts = 0
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setStateLocked(StateConnected, nil)
	go c.readLoop(runCtx, conn, c.gen)
}

func (c *Client) readLoop(ctx context.Context, conn *stomp.Conn, gen uint64) {
	for {
		f, err := conn.Read(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				return
			}
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.teardownLocked()
			c.scheduleReconnectLocked(WrapError(CodeConnection, "connection lost", err))
			c.mu.Unlock()
			return
		}
		switch f.Command {
		case stomp.CmdMessage:
			c.handleInbound(f)
		case stomp.CmdError:
			c.logger.Warn("broker error frame", map[string]any{"message": f.Headers[stomp.HdrMessage]})
			c.dispatcher.dispatchError(NewError(CodeConnection, "broker error: "+f.Headers[stomp.HdrMessage]))
		default:
			// RECEIPT and anything else this client never asks for
		}
	}
}

// handleInbound routes a MESSAGE frame by its subscription id and
// parses the body. Parse failures are logged and dropped; a malformed
// frame must never take down the listener.
func (c *Client) handleInbound(f *stomp.Frame) {
	subID := f.Headers[stomp.HdrSubscription]
	c.mu.Lock()
	r, ok := c.routes[subID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("frame for unknown subscription, dropped", map[string]any{"sub": subID, "destination": f.Headers[stomp.HdrDestination]})
		return
	}

	switch r.kind {
	case subMessages:
		msg, err := parseChatMessage(f.Body)
		if err != nil {
			c.logger.Error("message frame dropped", map[string]any{"team": r.teamID, "error": err.Error()})
			return
		}
		c.dispatcher.dispatchMessage(msg)
	case subPresence:
		evt, err := parsePresence(f.Body)
		if err != nil {
			c.logger.Error("presence frame dropped", map[string]any{"team": r.teamID, "error": err.Error()})
			return
		}
		c.dispatcher.dispatchPresence(evt)
	case subOnline:
		evt, err := parseRoster(r.teamID, f.Body)
		if err != nil {
			c.logger.Error("roster frame dropped", map[string]any{"team": r.teamID, "error": err.Error()})
			return
		}
		c.dispatcher.dispatchRoster(evt)
	}
}

// teardownLocked clears the dead connection and remembers which teams
// were joined so a successful reconnect can restore them. Caller holds
// mu.
func (c *Client) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.conn = nil
	c.pendingRejoin = c.pendingRejoin[:0]
	for teamID := range c.subs {
		c.pendingRejoin = append(c.pendingRejoin, teamID)
	}
	c.subs = make(map[string]teamSubs)
	c.routes = make(map[string]route)
}

// scheduleReconnectLocked arms the next backoff timer, or gives up once
// the attempt cap is reached. Caller holds mu.
func (c *Client) scheduleReconnectLocked(cause error) {
	if c.attempts >= c.cfg.MaxReconnectTries {
		c.setStateLocked(StateDisconnected, cause)
		err := WrapError(CodeReconnectExhausted,
			fmt.Sprintf("gave up after %d attempts", c.attempts), cause)
		c.logger.Error("reconnect exhausted", map[string]any{"attempts": c.attempts})
		go c.dispatcher.dispatchError(err)
		return
	}
	c.attempts++
	attempt := c.attempts
	gen := c.gen
	delay := backoffDelay(c.cfg.ReconnectInterval, attempt)
	c.setStateLocked(StateReconnecting, cause)
	c.logger.Warn("connection lost, scheduling retry", map[string]any{
		"attempt": attempt,
		"max":     c.cfg.MaxReconnectTries,
		"delay":   delay.String(),
	})
	c.afterFunc(delay, func() { c.reconnect(gen) })
}

func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	teams := append([]string(nil), c.pendingRejoin...)
	c.mu.Unlock()

	conn, err := c.dial(context.Background())

	c.mu.Lock()
	if c.gen != gen || c.state != StateReconnecting {
		c.mu.Unlock()
		if err == nil {
			_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		}
		return
	}
	if err != nil {
		c.scheduleReconnectLocked(err)
		c.mu.Unlock()
		return
	}
	c.pendingRejoin = nil
	c.installLocked(conn)
	c.mu.Unlock()

	c.logger.Info("reconnected", map[string]any{"teams": len(teams)})
	for _, teamID := range teams {
		if err := c.Join(teamID); err != nil {
			c.logger.Error("rejoin after reconnect failed", map[string]any{"team": teamID, "error": err.Error()})
		}
	}
}

// setStateLocked transitions the state machine and notifies the state
// listener. Caller holds mu; the callback runs outside it.
func (c *Client) setStateLocked(s ConnectionState, cause error) {
	if c.state == s {
		return
	}
	evt := StateEvent{Old: c.state, New: s, Err: cause}
	c.state = s
	go c.dispatcher.dispatchState(evt)
}

func withBody(f *stomp.Frame, body []byte) *stomp.Frame {
	f.Body = body
	return f
}

func classifyHandshakeErr(parent, hctx context.Context, msg string, err error) error {
	if hctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
		return WrapError(CodeTimeout, "connection handshake timed out", err)
	}
	return WrapError(CodeConnection, msg, err)
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
