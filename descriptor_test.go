package serial

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixSuffixDescriptorIsValidPacket(t *testing.T) {
	d := NewPrefixSuffixDescriptor([]byte("!"), []byte("#"), nil)
	assert.True(t, d.IsValidPacket([]byte("!ok#")))
	assert.False(t, d.IsValidPacket([]byte("ok#")))
	assert.False(t, d.IsValidPacket([]byte("!ok")))
}

func TestDegenerateDescriptorMatchesNothing(t *testing.T) {
	d := NewPrefixSuffixDescriptor(nil, nil, nil)
	assert.False(t, d.IsValidPacket([]byte("anything")))
	assert.False(t, d.IsValidPacket(nil))
}

func TestRegexDescriptorRequiresFullMatch(t *testing.T) {
	d := NewRegularExpressionDescriptor(regexp.MustCompile(`^\?.*#$`), nil)
	assert.True(t, d.IsValidPacket([]byte("?hi#")))
	assert.False(t, d.IsValidPacket([]byte("x?hi#")))
}

func TestPredicateDescriptorDelegates(t *testing.T) {
	d := NewPredicateDescriptor(func(data []byte) bool { return len(data) == 3 }, "info")
	assert.True(t, d.IsValidPacket([]byte("abc")))
	assert.False(t, d.IsValidPacket([]byte("ab")))
	assert.Equal(t, "info", d.UserInfo())
}

func TestDescriptorsAreValueEqualByUUID(t *testing.T) {
	d := NewPrefixSuffixDescriptor([]byte("$"), nil, nil)
	cp := d.WithMaximumPacketLength(3)
	assert.Equal(t, d.UUID(), cp.UUID())
}
