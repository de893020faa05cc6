package syncmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff_DoublesWhileDialsFail(t *testing.T) {
	base := time.Second
	cur := base
	for _, want := range []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	} {
		cur = nextBackoff(cur, base, false)
		assert.Equal(t, want, cur)
	}
}

func TestNextBackoff_ResetsAfterConnectedSession(t *testing.T) {
	base := time.Second
	cur := base
	for i := 0; i < 6; i++ {
		cur = nextBackoff(cur, base, false)
	}
	assert.Equal(t, 30*time.Second, cur)

	// A session that dialed, however briefly, restores the base delay
	// so a long-lived connection reconnects quickly after a blip.
	cur = nextBackoff(cur, base, true)
	assert.Equal(t, base, cur)
}
