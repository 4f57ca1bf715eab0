package tsubakuro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutUnbounded(t *testing.T) {
	tm := NewTimeout(0)
	assert.True(t, tm.IsUnbounded())
	assert.False(t, tm.Expired())
	_, ok := tm.Deadline()
	assert.False(t, ok)
}

func TestTimeoutExpired(t *testing.T) {
	tm := NewTimeoutAt(time.Now().Add(-time.Second))
	assert.True(t, tm.Expired())
	assert.Error(t, calculateTimeout("Test()", tm))
}

func TestTimeoutNotYetExpired(t *testing.T) {
	tm := NewTimeout(time.Minute)
	assert.False(t, tm.Expired())
	assert.NoError(t, calculateTimeout("Test()", tm))
}

func TestTimeoutChannelFiresAtDeadline(t *testing.T) {
	tm := NewTimeout(5 * time.Millisecond)
	c, stop := tm.channel()
	defer stop()
	select {
	case <-c:
	case <-time.After(time.Second):
		t.Fatal("deadline channel never fired")
	}
}
