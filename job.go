package tsubakuro

// coreRequest tags the minimal core-service marker payloads this package
// sends on its own behalf (shutdown, cancel) — everything else (SQL et al.)
// is a service-layer concern out of scope for this core (see DESIGN.md).
const (
	coreRequestShutdown byte = 0x01
	coreRequestCancel   byte = 0x02
)

func encodeShutdownRequestPayload() []byte {
	return []byte{coreRequestShutdown}
}

func encodeCancelRequestPayload(targetSlot int32) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, coreRequestCancel)
	buf = appendInt32LE(buf, targetSlot)
	return buf
}

// Job is a generic handle on an in-flight request, substituting Go generics
// for original_source's boxed-closure-per-response-type processor
// (job/cancel_job.rs names the Rust shape this generalizes).
type Job[T any] struct {
	wire    *Wire
	handle  *slotHandle
	taken   bool
	cancel  *CancelJob
}

// NewJob wraps a slot handle freshly returned by Wire.SendAndRegister/
// SendQuery into a typed Job. The processor registered with the slot must
// already produce a value assignable to T.
func NewJob[T any](wire *Wire, handle *slotHandle) *Job[T] {
	return &Job[T]{wire: wire, handle: handle}
}

// Take awaits completion (or timeout) and returns the typed result. A Job is
// single-use: once Take succeeds the slot is released back to the pool.
func (j *Job[T]) Take(timeout Timeout) (T, error) {
	var zero T
	if j.taken {
		return zero, ClientError("job already taken")
	}
	raw, err := j.wire.WaitResponse(j.handle, timeout)
	if err != nil {
		if _, isTimeout := AsTimeoutError(err); !isTimeout {
			// A non-timeout failure is terminal: the slot will never
			// complete differently, so release it now rather than leaking
			// it until Cancel/Close.
			j.wire.release(j.handle)
		}
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		j.wire.release(j.handle)
		return zero, ClientError("job result type mismatch")
	}
	j.taken = true
	j.wire.release(j.handle)
	return v, nil
}

// IsDone polls without blocking or consuming the job.
func (j *Job[T]) IsDone() (bool, error) {
	return j.wire.CheckResponse(j.handle)
}

// Cancel sends a cancellation request for this job's underlying slot and
// returns a CancelJob the caller awaits separately. Safe to call more than
// once; only the first call actually sends the request.
func (j *Job[T]) Cancel() (*CancelJob, error) {
	if j.cancel != nil {
		return j.cancel, nil
	}
	cj, err := j.wire.Cancel(j.handle)
	if err != nil {
		return nil, err
	}
	j.cancel = cj
	return cj, nil
}

// CancelJob tracks the server's acknowledgement of a cancellation request
// (original_source's job/cancel_job.rs).
type CancelJob struct {
	wire   *Wire
	handle *slotHandle
}

// Wait blocks until the server acknowledges the cancellation or timeout
// expires.
func (c *CancelJob) Wait(timeout Timeout) error {
	_, err := c.wire.WaitResponse(c.handle, timeout)
	if _, isTimeout := AsTimeoutError(err); !isTimeout {
		c.wire.release(c.handle)
	}
	return err
}
