package teamchat

import "sync"

// dispatcher routes inbound events to registered callbacks. Each event
// type has exactly one slot: registering replaces the previous callback
// and returns a disposer. A disposer only clears the slot if its own
// registration is still the active one, so a stale unsubscribe cannot
// drop a newer listener.
type dispatcher struct {
	mu  sync.Mutex
	gen uint64

	onMessage  func(ChatMessage)
	msgGen     uint64
	onPresence func(PresenceEvent)
	presGen    uint64
	onRoster   func(RosterEvent)
	rosterGen  uint64
	onState    func(StateEvent)
	stateGen   uint64
	onError    func(error)
	errGen     uint64
}

func (d *dispatcher) setOnMessage(fn func(ChatMessage)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	g := d.gen
	d.onMessage = fn
	d.msgGen = g
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.msgGen == g {
			d.onMessage = nil
		}
	}
}

func (d *dispatcher) setOnPresence(fn func(PresenceEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	g := d.gen
	d.onPresence = fn
	d.presGen = g
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.presGen == g {
			d.onPresence = nil
		}
	}
}

func (d *dispatcher) setOnRoster(fn func(RosterEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	g := d.gen
	d.onRoster = fn
	d.rosterGen = g
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.rosterGen == g {
			d.onRoster = nil
		}
	}
}

func (d *dispatcher) setOnState(fn func(StateEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	g := d.gen
	d.onState = fn
	d.stateGen = g
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.stateGen == g {
			d.onState = nil
		}
	}
}

func (d *dispatcher) setOnError(fn func(error)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	g := d.gen
	d.onError = fn
	d.errGen = g
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.errGen == g {
			d.onError = nil
		}
	}
}

func (d *dispatcher) dispatchMessage(msg ChatMessage) {
	d.mu.Lock()
	fn := d.onMessage
	d.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (d *dispatcher) dispatchPresence(evt PresenceEvent) {
	d.mu.Lock()
	fn := d.onPresence
	d.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
}

func (d *dispatcher) dispatchRoster(evt RosterEvent) {
	d.mu.Lock()
	fn := d.onRoster
	d.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
}

func (d *dispatcher) dispatchState(evt StateEvent) {
	d.mu.Lock()
	fn := d.onState
	d.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
}

func (d *dispatcher) dispatchError(err error) {
	d.mu.Lock()
	fn := d.onError
	d.mu.Unlock()
	if fn != nil && err != nil {
		fn(err)
	}
}
