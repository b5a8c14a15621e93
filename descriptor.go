package serial

import (
	"bytes"
	"regexp"

	"github.com/google/uuid"
)

// ResponseEvaluator decides whether data constitutes a complete,
// valid packet or response. It is the Go analog of the Objective-C
// ORSSerialResponseEvaluator/ORSSerialRequestResponseEvaluator blocks.
type ResponseEvaluator func(data []byte) bool

// PacketDescriptor is an immutable description of one packet shape.
// Exactly one of {prefix/suffix, regex, predicate} is the
// descriptor's primary matcher.
type PacketDescriptor struct {
	uuid        uuid.UUID
	prefix      []byte
	suffix      []byte
	regex       *regexp.Regexp
	predicate   ResponseEvaluator
	userInfo    any
	maxLength   int
	hasMaxLen   bool
	description string
}

// NewPrefixSuffixDescriptor builds a descriptor matched by an optional
// prefix and/or suffix. When both are empty the descriptor is
// degenerate and matches nothing.
func NewPrefixSuffixDescriptor(prefix, suffix []byte, userInfo any) *PacketDescriptor {
	return &PacketDescriptor{
		uuid:        uuid.New(),
		prefix:      cloneBytes(prefix),
		suffix:      cloneBytes(suffix),
		userInfo:    userInfo,
		description: "prefix/suffix",
	}
}

// NewRegularExpressionDescriptor builds a descriptor whose packets are
// byte spans that the entire regular expression matches.
func NewRegularExpressionDescriptor(regex *regexp.Regexp, userInfo any) *PacketDescriptor {
	return &PacketDescriptor{
		uuid:        uuid.New(),
		regex:       regex,
		userInfo:    userInfo,
		description: "regex",
	}
}

// NewPredicateDescriptor builds a descriptor whose packets are
// whatever the caller-supplied evaluator accepts.
func NewPredicateDescriptor(predicate ResponseEvaluator, userInfo any) *PacketDescriptor {
	return &PacketDescriptor{
		uuid:        uuid.New(),
		predicate:   predicate,
		userInfo:    userInfo,
		description: "predicate",
	}
}

// WithMaximumPacketLength returns a copy of d with a maximum packet
// length applied. Negative or zero values disable the limit.
func (d *PacketDescriptor) WithMaximumPacketLength(n int) *PacketDescriptor {
	cp := *d
	if n > 0 {
		cp.maxLength = n
		cp.hasMaxLen = true
	} else {
		cp.hasMaxLen = false
	}
	return &cp
}

// UUID identifies the descriptor. Two descriptors with the same UUID
// are the same descriptor.
func (d *PacketDescriptor) UUID() uuid.UUID { return d.uuid }

// UserInfo returns the opaque handle associated with the descriptor.
func (d *PacketDescriptor) UserInfo() any { return d.userInfo }

// Prefix returns the descriptor's prefix bytes, if any.
func (d *PacketDescriptor) Prefix() []byte { return cloneBytes(d.prefix) }

// Suffix returns the descriptor's suffix bytes, if any.
func (d *PacketDescriptor) Suffix() []byte { return cloneBytes(d.suffix) }

// IsValidPacket reports whether data exactly matches the descriptor's
// shape.
func (d *PacketDescriptor) IsValidPacket(data []byte) bool {
	switch {
	case d.predicate != nil:
		return d.predicate(data)
	case d.regex != nil:
		return d.regex.Match(data) && len(d.regex.Find(data)) == len(data)
	default:
		if len(d.prefix) == 0 && len(d.suffix) == 0 {
			return false
		}
		if len(data) < len(d.prefix)+len(d.suffix) {
			return false
		}
		if len(d.prefix) > 0 && !bytes.HasPrefix(data, d.prefix) {
			return false
		}
		if len(d.suffix) > 0 && !bytes.HasSuffix(data, d.suffix) {
			return false
		}
		return true
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
