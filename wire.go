package tsubakuro

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// wireEvent is the union of what a slot can complete with: a plain session
// payload (with an optional previously-seen body-head), or a bound result
// set (rs_slot + its data channel), or a terminal error. This is the Go
// substitute for original_source's WireResponse/WireResponseError split —
// one closed sum type instead of two, since Go has no issue holding a
// non-Send error value across goroutines the way the Rust port had to work
// around.
type wireEvent struct {
	Payload     []byte
	HeadPayload []byte
	ResultSet   *ResultSet
	Err         error
}

// ResultSet is the caller's handle on a live streaming result set: the
// result-set slot and the data channel bound to it.
type ResultSet struct {
	wire    *Wire
	slot    int32
	channel *dataChannel
}

// Pull returns the next chunk (or end-of-stream) from this result set,
// blocking cooperatively until data arrives or timeout expires.
func (r *ResultSet) Pull(timeout Timeout) (Chunk, bool, error) {
	res, err := r.channel.pull(timeout)
	if err != nil {
		return Chunk{}, false, err
	}
	return res.Chunk, res.End, nil
}

// Release drops this result set's data channel, freeing its slot. Safe to
// call once the caller is done consuming the stream (End observed, or the
// caller is abandoning it early).
func (r *ResultSet) Release() {
	r.wire.dataChannelBox.release(r.slot)
}

// Wire is the multiplexing dispatcher: it owns one link and one
// responseBox, drives the background receive loop, dispatches received
// frames, and is the only entity that assigns session-slot ids (the
// responseBox does the assigning; Wire never invents numbers itself).
type Wire struct {
	l *link

	responseBox    *responseBox
	dataChannelBox *dataChannelBox

	sessionID    uint64
	sessionIDSet int32 // atomic bool

	nameMu     sync.Mutex
	nameToSlot map[string]*slotHandle

	pendingMu     sync.Mutex
	pendingRSData map[int32][]Frame // chunks/bye that arrived before the channel was registered

	closeOnce sync.Once
	closed    int32 // atomic bool
	loopDone  chan struct{}
}

// NewWire wires a freshly-connected link into a dispatcher and starts its
// background receive loop as a goroutine before returning.
func NewWire(l *link) *Wire {
	w := &Wire{
		l:              l,
		responseBox:    newResponseBox(),
		dataChannelBox: newDataChannelBox(),
		nameToSlot:     make(map[string]*slotHandle),
		pendingRSData:  make(map[int32][]Frame),
		loopDone:       make(chan struct{}),
	}
	go w.dispatchLoop()
	return w
}

// SetSessionID binds the server-assigned session id once, after a
// successful handshake. Every request before this call other than the
// handshake itself is a ClientErr.
func (w *Wire) SetSessionID(id uint64) error {
	if !atomic.CompareAndSwapInt32(&w.sessionIDSet, 0, 1) {
		return ClientError("session id already set")
	}
	w.sessionID = id
	return nil
}

func (w *Wire) requireSessionID() error {
	if atomic.LoadInt32(&w.sessionIDSet) == 0 {
		return ClientError("session not yet established")
	}
	return nil
}

// IsClosed reports whether this Wire (and its Link) has closed.
func (w *Wire) IsClosed() bool {
	return atomic.LoadInt32(&w.closed) != 0
}

// SendAndRegister acquires a free slot, writes the request frame, and
// returns a handle the caller awaits via WaitResponse/CheckResponse.
// allowBeforeHandshake permits the one request (the handshake itself) that
// may run before SetSessionID.
func (w *Wire) sendAndRegister(payload []byte, processor responseProcessor, allowBeforeHandshake bool) (*slotHandle, error) {
	if !allowBeforeHandshake {
		if err := w.requireSessionID(); err != nil {
			return nil, err
		}
	}
	if w.IsClosed() {
		return nil, ErrClosed
	}

	h := w.responseBox.acquire(processor)
	frame := encodeRequestFrame(int32(h.index), payload)
	if err := w.l.sendFrame(frame); err != nil {
		w.responseBox.release(h)
		return nil, err
	}
	return h, nil
}

// SendAndRegister is the public entry point used by service clients built
// on top of this core.
func (w *Wire) SendAndRegister(payload []byte, processor func(payload, headPayload []byte, err error) (any, error)) (*slotHandle, error) {
	wrapped := func(ev wireEvent) (any, error) {
		return processor(ev.Payload, ev.HeadPayload, ev.Err)
	}
	return w.sendAndRegister(payload, wrapped, false)
}

// SendQuery registers a result-set acceptor under the given correlation
// name. name is chosen by the caller (e.g. embedded as an opaque token in
// the outgoing request payload) and echoed back by the server inside
// ResponseResultSetHello, which is how this Wire binds the eventual
// result-set slot back to this request via its per-wire name->slot
// registry. See DESIGN.md for why the registry is keyed this way instead
// of a server-chosen name the client could not predict ahead of
// registration.
func (w *Wire) SendQuery(payload []byte, name string) (*slotHandle, error) {
	if err := w.requireSessionID(); err != nil {
		return nil, err
	}
	if w.IsClosed() {
		return nil, ErrClosed
	}

	processor := func(ev wireEvent) (any, error) {
		if ev.Err != nil {
			return nil, ev.Err
		}
		if ev.ResultSet == nil {
			return nil, ClientError("expected a result set binding for " + name)
		}
		return ev.ResultSet, nil
	}

	h := w.responseBox.acquire(processor)

	w.nameMu.Lock()
	w.nameToSlot[name] = h
	w.nameMu.Unlock()

	frame := encodeRequestFrame(int32(h.index), payload)
	if err := w.l.sendFrame(frame); err != nil {
		w.nameMu.Lock()
		delete(w.nameToSlot, name)
		w.nameMu.Unlock()
		w.responseBox.release(h)
		return nil, err
	}
	return h, nil
}

// WaitResponse blocks until the slot completes or timeout; on completion it
// invokes the stored processor exactly once (guarded by the slot's own
// mutex) and returns the typed result, surfacing any completion error.
func (w *Wire) WaitResponse(h *slotHandle, timeout Timeout) (any, error) {
	const functionName = "Wire.WaitResponse()"

	entry, ok := w.responseBox.entryFor(h)
	if !ok {
		return nil, ClientError("slot already released")
	}

	waitC, isDone := entry.waitChan()
	if !isDone {
		if err := calculateTimeout(functionName, timeout); err != nil {
			return nil, err
		}
		deadlineC, stop := timeout.channel()
		select {
		case <-waitC:
		case <-deadlineC:
			stop()
			return nil, TimeoutError(functionName)
		case <-w.l.done():
			stop()
			return nil, ErrClosed
		}
		stop()
	}

	return entry.runProcessor()
}

// CheckResponse is the non-blocking poll variant.
func (w *Wire) CheckResponse(h *slotHandle) (bool, error) {
	entry, ok := w.responseBox.entryFor(h)
	if !ok {
		return false, ClientError("slot already released")
	}
	_, _, isDone := entry.snapshot()
	return isDone, nil
}

// release returns a consumed slot to the free pool.
func (w *Wire) release(h *slotHandle) {
	w.responseBox.release(h)
}

// Cancel sends a cancellation request associated with the slot and returns
// a CancelJob that completes once the server acknowledges. The concrete
// cancel-request payload encoding is a service-layer concern (request
// builders live above this core); this sends a minimal marker payload
// carrying the target slot index, which is enough for a same-process fake
// server to acknowledge in tests and is the seam a real service builder
// plugs a real encoding into. See DESIGN.md.
func (w *Wire) Cancel(target *slotHandle) (*CancelJob, error) {
	payload := encodeCancelRequestPayload(int32(target.index))
	processor := func(ev wireEvent) (any, error) {
		if ev.Err != nil {
			return nil, ev.Err
		}
		return true, nil
	}
	h, err := w.sendAndRegister(payload, processor, false)
	if err != nil {
		return nil, err
	}
	return &CancelJob{wire: w, handle: h}, nil
}

// Close sends a session-shutdown request, awaits acknowledgement or
// deadline, closes the Link, and fails all still-pending slots with
// ErrClosed.
func (w *Wire) Close(timeout Timeout) error {
	var shutdownErr error
	w.closeOnce.Do(func() {
		if atomic.LoadInt32(&w.sessionIDSet) == 1 && !w.IsClosed() {
			processor := func(ev wireEvent) (any, error) { return true, ev.Err }
			h, err := w.sendAndRegister(encodeShutdownRequestPayload(), processor, true)
			if err == nil {
				_, shutdownErr = w.WaitResponse(h, timeout)
				w.release(h)
			}
		}
		atomic.StoreInt32(&w.closed, 1)
		_ = w.l.close()
		<-w.loopDone
		w.failAllPending(ErrClosed)
	})
	return shutdownErr
}

func (w *Wire) failAllPending(err error) {
	w.responseBox.mu.Lock()
	entries := append([]*slotEntry(nil), w.responseBox.entries...)
	w.responseBox.mu.Unlock()
	for _, e := range entries {
		if e == nil {
			continue
		}
		e.complete(wireEvent{Err: err})
	}
}

// dispatchLoop is the Wire's background receive loop, routing each incoming
// frame to the slot or data channel it belongs to. It terminates when the
// Link closes/fails.
func (w *Wire) dispatchLoop() {
	defer close(w.loopDone)
	for {
		frame, err := w.l.receiveNext()
		if err != nil {
			return
		}
		w.dispatchFrame(frame)
	}
}

func (w *Wire) dispatchFrame(f Frame) {
	switch f.Info {
	case infoResponseSessionBodyhead:
		if entry := w.responseBox.lookup(f.Slot); entry != nil {
			entry.storeHead(f)
		}
	case infoResponseSessionPayload:
		if entry := w.responseBox.lookup(f.Slot); entry != nil {
			head := entry.headPayload()
			entry.complete(wireEvent{Payload: f.Payload, HeadPayload: head})
		}
	case infoResponseResultSetHello:
		w.handleResultSetHello(f)
	case infoResponseResultSetPayload:
		w.handleResultSetPayload(f)
	case infoResponseResultSetBye:
		w.handleResultSetBye(f)
	default:
		logrus.WithField("info", f.Info).Warn("tsubakuro: dropping unknown frame info byte")
	}
}

func (w *Wire) handleResultSetHello(f Frame) {
	w.nameMu.Lock()
	sessionSlot, ok := w.nameToSlot[f.Name]
	if ok {
		delete(w.nameToSlot, f.Name)
	}
	w.nameMu.Unlock()

	if !ok {
		logrus.WithField("name", f.Name).Warn("tsubakuro: ResultSetHello for unknown correlation name")
		return
	}

	w.dataChannelBox.setDataChannelName(f.Name, f.Slot)
	dc, _, err := w.dataChannelBox.registerDataChannel(f.Name)
	if err != nil {
		if entry, ok := w.responseBox.entryFor(sessionSlot); ok {
			entry.complete(wireEvent{Err: err})
		}
		return
	}
	w.flushPending(f.Slot, dc)

	rs := &ResultSet{wire: w, slot: f.Slot, channel: dc}
	if entry, ok := w.responseBox.entryFor(sessionSlot); ok {
		entry.complete(wireEvent{ResultSet: rs})
	}
}

func (w *Wire) flushPending(rsSlot int32, dc *dataChannel) {
	w.pendingMu.Lock()
	pending := w.pendingRSData[rsSlot]
	delete(w.pendingRSData, rsSlot)
	w.pendingMu.Unlock()

	for _, pf := range pending {
		switch pf.Info {
		case infoResponseResultSetPayload:
			if pf.isWriterFlush() {
				dc.flushWriter(pf.Writer)
			} else {
				dc.addWriterPayload(pf.Writer, pf.Payload)
			}
		case infoResponseResultSetBye:
			dc.setEndOfStream()
		}
	}
}

func (w *Wire) handleResultSetPayload(f Frame) {
	dc := w.dataChannelBox.get(f.Slot)
	if dc == nil {
		w.bufferPending(f)
		return
	}
	if f.isWriterFlush() {
		dc.flushWriter(f.Writer)
	} else {
		dc.addWriterPayload(f.Writer, f.Payload)
	}
}

func (w *Wire) handleResultSetBye(f Frame) {
	dc := w.dataChannelBox.get(f.Slot)
	if dc == nil {
		w.bufferPending(f)
	} else {
		dc.setEndOfStream()
	}
	// Acknowledge unconditionally: the server expects a ByeOk regardless of
	// whether the client had finished reading the channel.
	_ = w.l.sendFrame(encodeResultSetByeOk(f.Slot))
}

func (w *Wire) bufferPending(f Frame) {
	w.pendingMu.Lock()
	w.pendingRSData[f.Slot] = append(w.pendingRSData[f.Slot], f)
	w.pendingMu.Unlock()
}
