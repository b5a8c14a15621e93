package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestWithoutPredicateExpectsNoResponse(t *testing.T) {
	r := NewRequest([]byte("PING\n"), "tag")
	assert.False(t, r.expectsResponse())
	assert.Equal(t, "tag", r.UserInfo())
	assert.Equal(t, []byte("PING\n"), r.Data())
}

func TestRequestExpectingResponseTracksTimeout(t *testing.T) {
	r := NewRequestExpectingResponse([]byte("GET_T"), nil, 500*time.Millisecond, func([]byte) bool { return true })
	assert.True(t, r.expectsResponse())
	assert.Equal(t, 500*time.Millisecond, r.Timeout())
}

func TestRequestUUIDsAreUnique(t *testing.T) {
	a := NewRequest([]byte("a"), nil)
	b := NewRequest([]byte("a"), nil)
	assert.NotEqual(t, a.UUID(), b.UUID())
}
