package tsubakuro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTakeReturnsTypedResult(t *testing.T) {
	w, server := newTestWire(t)
	require.NoError(t, w.SetSessionID(1))

	h, err := w.sendAndRegister([]byte("req"), func(ev wireEvent) (any, error) {
		return string(ev.Payload), nil
	}, false)
	require.NoError(t, err)
	_, slot, _ := readClientFrame(t, server)

	job := NewJob[string](w, h)

	_, err = server.Write(buildResponseSessionPayloadFrame(slot, []byte("ok")))
	require.NoError(t, err)

	v, err := job.Take(NewTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestJobTakeIsSingleUse(t *testing.T) {
	w, server := newTestWire(t)
	require.NoError(t, w.SetSessionID(1))

	h, err := w.sendAndRegister(nil, func(ev wireEvent) (any, error) {
		return 42, nil
	}, false)
	require.NoError(t, err)
	_, slot, _ := readClientFrame(t, server)

	job := NewJob[int](w, h)
	_, err = server.Write(buildResponseSessionPayloadFrame(slot, nil))
	require.NoError(t, err)

	_, err = job.Take(NewTimeout(time.Second))
	require.NoError(t, err)

	_, err = job.Take(NewTimeout(time.Second))
	_, ok := AsClientError(err)
	assert.True(t, ok)
}

func TestJobTakeTypeMismatchReleasesSlot(t *testing.T) {
	w, server := newTestWire(t)
	require.NoError(t, w.SetSessionID(1))

	h, err := w.sendAndRegister(nil, func(ev wireEvent) (any, error) {
		return 42, nil
	}, false)
	require.NoError(t, err)
	_, slot, _ := readClientFrame(t, server)

	job := NewJob[string](w, h)
	_, err = server.Write(buildResponseSessionPayloadFrame(slot, nil))
	require.NoError(t, err)

	_, err = job.Take(NewTimeout(time.Second))
	_, ok := AsClientError(err)
	assert.True(t, ok)
	assert.Equal(t, h.index, w.responseBox.acquire(nil).index, "the released slot must be reused by the next acquire")
}

func TestJobIsDonePolling(t *testing.T) {
	w, server := newTestWire(t)
	require.NoError(t, w.SetSessionID(1))

	h, err := w.sendAndRegister(nil, func(ev wireEvent) (any, error) {
		return true, nil
	}, false)
	require.NoError(t, err)
	_, slot, _ := readClientFrame(t, server)

	job := NewJob[bool](w, h)
	done, err := job.IsDone()
	require.NoError(t, err)
	assert.False(t, done)

	_, err = server.Write(buildResponseSessionPayloadFrame(slot, nil))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		done, _ := job.IsDone()
		return done
	}, time.Second, 5*time.Millisecond)
}

func TestJobCancelMemoizesCancelJob(t *testing.T) {
	w, server := newTestWire(t)
	require.NoError(t, w.SetSessionID(1))

	h, err := w.sendAndRegister(nil, func(ev wireEvent) (any, error) {
		return nil, ev.Err
	}, false)
	require.NoError(t, err)
	readClientFrame(t, server) // original request

	job := NewJob[any](w, h)
	cj1, err := job.Cancel()
	require.NoError(t, err)
	info, cancelSlot, payload := readClientFrame(t, server)
	assert.Equal(t, infoRequestSessionPayload, info)
	assert.Equal(t, coreRequestCancel, payload[0])

	cj2, err := job.Cancel()
	require.NoError(t, err)
	assert.Same(t, cj1, cj2)

	_, err = server.Write(buildResponseSessionPayloadFrame(cancelSlot, nil))
	require.NoError(t, err)
	require.NoError(t, cj1.Wait(NewTimeout(time.Second)))
}
