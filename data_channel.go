package tsubakuro

import "sync"

// Chunk is one piece of a result-set byte stream, tagged with the writer
// that produced it. Multiple writers may concurrently contribute to one
// result set; within a single writer, chunks are delivered in order.
type Chunk struct {
	Writer  byte
	Payload []byte
}

// dataChannel is the streaming buffer for one result set: an ordered
// byte-chunk queue per writer, an end-of-stream flag, and a pull operation
// that returns any available chunk from any writer in FIFO order within a
// writer, never blending two writers in one read.
type dataChannel struct {
	mu          sync.Mutex
	writers     map[byte][][]byte
	writerOrder []byte // insertion order; tryTake always scans from the first
	flushed     map[byte]bool
	endOfStream bool
	notify      chan struct{} // buffered(1): signalled on new data / flush / end
}

func newDataChannel() *dataChannel {
	return &dataChannel{
		writers: make(map[byte][][]byte),
		flushed: make(map[byte]bool),
		notify:  make(chan struct{}, 1),
	}
}

func (d *dataChannel) wake() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// addWriterPayload appends a chunk to the given writer's queue
// (receive-loop side).
func (d *dataChannel) addWriterPayload(writer byte, payload []byte) {
	d.mu.Lock()
	if _, ok := d.writers[writer]; !ok {
		d.writerOrder = append(d.writerOrder, writer)
	}
	d.writers[writer] = append(d.writers[writer], payload)
	d.mu.Unlock()
	d.wake()
}

// flushWriter marks a writer exhausted: it will never receive another
// addWriterPayload call. If its queue is already empty this drops the
// writer's bookkeeping immediately (reclaiming memory); otherwise tryTake
// drops it once the last buffered chunk is taken.
func (d *dataChannel) flushWriter(writer byte) {
	d.mu.Lock()
	d.flushed[writer] = true
	if len(d.writers[writer]) == 0 {
		d.forgetWriterLocked(writer)
	}
	d.mu.Unlock()
	d.wake()
}

// forgetWriterLocked removes all bookkeeping for a writer once it has been
// flushed and drained. Caller must hold d.mu.
func (d *dataChannel) forgetWriterLocked(writer byte) {
	delete(d.writers, writer)
	delete(d.flushed, writer)
	for i, w := range d.writerOrder {
		if w == writer {
			d.writerOrder = append(d.writerOrder[:i], d.writerOrder[i+1:]...)
			break
		}
	}
}

// setEndOfStream marks the whole channel ended (ResponseResultSetBye
// received).
func (d *dataChannel) setEndOfStream() {
	d.mu.Lock()
	d.endOfStream = true
	d.mu.Unlock()
	d.wake()
}

// isEnd reports whether end-of-stream has been signalled and every buffer
// has been drained.
func (d *dataChannel) isEnd() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isEndLocked()
}

func (d *dataChannel) isEndLocked() bool {
	if !d.endOfStream {
		return false
	}
	for _, q := range d.writers {
		if len(q) > 0 {
			return false
		}
	}
	return true
}

// tryTake pops the oldest chunk from any non-empty writer queue, in
// writer-insertion order; writer order itself is not externally observable,
// it only guarantees a single pull never blends two writers.
func (d *dataChannel) tryTake() (Chunk, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.writerOrder {
		q := d.writers[w]
		if len(q) > 0 {
			payload := q[0]
			rest := q[1:]
			d.writers[w] = rest
			if len(rest) == 0 && d.flushed[w] {
				d.forgetWriterLocked(w)
			}
			return Chunk{Writer: w, Payload: payload}, true
		}
	}
	return Chunk{}, false
}

// pullResult is the sum type a pull can resolve to: a chunk, or End once
// the result set is fully drained.
type pullResult struct {
	Chunk Chunk
	End   bool
}

// pull yields the next available chunk from any writer, or End once
// end-of-stream is set and all buffers are drained. It blocks cooperatively
// until either a chunk arrives or the deadline expires.
func (d *dataChannel) pull(timeout Timeout) (pullResult, error) {
	const functionName = "DataChannel.pull()"
	for {
		if chunk, ok := d.tryTake(); ok {
			return pullResult{Chunk: chunk}, nil
		}
		if d.isEnd() {
			return pullResult{End: true}, nil
		}
		if err := calculateTimeout(functionName, timeout); err != nil {
			return pullResult{}, err
		}

		deadlineC, stop := timeout.channel()
		select {
		case <-d.notify:
		case <-deadlineC:
			stop()
			return pullResult{}, TimeoutError(functionName)
		}
		stop()
	}
}

// dataChannelBox maps result-set names to slots and slots to live data
// channels, generalizing original_source's TcpDataChannelBox (name_map +
// wait_pool) from a Mutex<Vec<Option<Arc<...>>>> to a Go slice+map pair
// under one mutex.
type dataChannelBox struct {
	mu       sync.Mutex
	nameMap  map[string]int32
	waitPool []*dataChannel // indexed by rs_slot; nil until registered
}

func newDataChannelBox() *dataChannelBox {
	return &dataChannelBox{nameMap: make(map[string]int32)}
}

// setDataChannelName records that a freshly-seen result-set name
// corresponds to rsSlot (the Hello frame arrives before the channel itself
// is created).
func (b *dataChannelBox) setDataChannelName(name string, rsSlot int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nameMap[name] = rsSlot
}

// registerDataChannel creates (or associates) a Data Channel under the slot
// previously announced for name.
func (b *dataChannelBox) registerDataChannel(name string) (*dataChannel, int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rsSlot, ok := b.nameMap[name]
	if !ok {
		return nil, 0, ClientError("data_channel_name(" + name + ") not found in data channel box")
	}
	delete(b.nameMap, name)

	idx := int(rsSlot)
	for len(b.waitPool) <= idx {
		b.waitPool = append(b.waitPool, nil)
	}
	dc := newDataChannel()
	b.waitPool[idx] = dc
	return dc, rsSlot, nil
}

// get returns the data channel registered for rsSlot, or nil if none yet.
func (b *dataChannelBox) get(rsSlot int32) *dataChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := int(rsSlot)
	if idx < 0 || idx >= len(b.waitPool) {
		return nil
	}
	return b.waitPool[idx]
}

// release drops the data channel for rsSlot once the caller is done with
// the result set, freeing the slot for reuse.
func (b *dataChannelBox) release(rsSlot int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := int(rsSlot)
	if idx >= 0 && idx < len(b.waitPool) {
		b.waitPool[idx] = nil
	}
}
