package serial

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherSuffixOnlyDescriptor(t *testing.T) {
	// descriptor (prefix="", suffix="\n"), "PONG\n" arrives split
	// across two chunks.
	m := newPacketMatcher()
	d := NewPrefixSuffixDescriptor(nil, []byte("\n"), nil)
	m.addDescriptor(d)

	buf := newBuffer(0)
	buf.append([]byte("PO"))
	assert.Empty(t, m.match(buf))

	buf.append([]byte("NG\n"))
	matches := m.match(buf)
	if assert.Len(t, matches, 1) {
		assert.Equal(t, []byte("PONG\n"), matches[0].Packet)
	}
	assert.Equal(t, 0, buf.len())
}

func TestMatcherRegistrationOrderTieBreak(t *testing.T) {
	// A=(prefix="!",suffix="#") is registered before B=(regex=^\?.*#$);
	// each chunk completes exactly one of them.
	m := newPacketMatcher()
	a := NewPrefixSuffixDescriptor([]byte("!"), []byte("#"), "A")
	b := NewRegularExpressionDescriptor(regexp.MustCompile(`^\?.*#$`), "B")
	m.addDescriptor(a)
	m.addDescriptor(b)

	buf := newBuffer(0)
	buf.append([]byte("!ok#"))
	matches := m.match(buf)
	if assert.Len(t, matches, 1) {
		assert.Equal(t, a.UUID(), matches[0].Descriptor.UUID())
		assert.Equal(t, []byte("!ok#"), matches[0].Packet)
	}

	buf.append([]byte("?hi#"))
	matches = m.match(buf)
	if assert.Len(t, matches, 1) {
		assert.Equal(t, b.UUID(), matches[0].Descriptor.UUID())
		assert.Equal(t, []byte("?hi#"), matches[0].Packet)
	}
}

func TestMatcherMaximumPacketLengthNeverResolves(t *testing.T) {
	// prefix-only descriptor with maximumPacketLength=3 on "$ABCDEFG"
	// never matches; the search moves past "$" and gives up. match
	// leaves the unmatched bytes in the buffer.
	m := newPacketMatcher()
	d := NewPrefixSuffixDescriptor([]byte("$"), nil, nil).WithMaximumPacketLength(3)
	m.addDescriptor(d)

	buf := newBuffer(0)
	buf.append([]byte("$ABCDEFG"))
	matches := m.match(buf)
	assert.Empty(t, matches)
}

func TestMatcherDeferWithoutMaxLength(t *testing.T) {
	m := newPacketMatcher()
	d := NewPrefixSuffixDescriptor([]byte("$"), []byte("#"), nil)
	m.addDescriptor(d)

	buf := newBuffer(0)
	buf.append([]byte("garbage$partial"))
	assert.Empty(t, m.match(buf))
	assert.Equal(t, []byte("garbage$partial"), buf.snapshot())

	buf.append([]byte("#done"))
	matches := m.match(buf)
	if assert.Len(t, matches, 1) {
		assert.Equal(t, []byte("$partial#"), matches[0].Packet)
	}
	assert.Equal(t, []byte("done"), buf.snapshot())
}
