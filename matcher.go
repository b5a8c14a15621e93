package serial

import (
	"bytes"

	"github.com/google/uuid"
)

// Match is one complete packet produced by the packetMatcher, paired
// with the descriptor that matched it.
type Match struct {
	Descriptor *PacketDescriptor
	Packet     []byte
}

// packetMatcher is the streaming engine: given a buffer and an
// ordered set of descriptors, it finds every complete packet, in
// buffer order, emitting each exactly once and leaving no overlap
// behind.
type packetMatcher struct {
	descriptors []*PacketDescriptor
}

func newPacketMatcher() *packetMatcher {
	return &packetMatcher{}
}

// addDescriptor registers d at the end of the matcher's ordered set.
// Registration order is the tie-break used when two descriptors
// complete at the same byte.
func (m *packetMatcher) addDescriptor(d *PacketDescriptor) {
	for _, existing := range m.descriptors {
		if existing.uuid == d.uuid {
			return
		}
	}
	m.descriptors = append(m.descriptors, d)
}

// removeDescriptor drops a previously registered descriptor.
func (m *packetMatcher) removeDescriptor(id uuid.UUID) {
	for i, d := range m.descriptors {
		if d.uuid == id {
			m.descriptors = append(m.descriptors[:i], m.descriptors[i+1:]...)
			return
		}
	}
}

func (m *packetMatcher) descriptorList() []*PacketDescriptor {
	out := make([]*PacketDescriptor, len(m.descriptors))
	copy(out, m.descriptors)
	return out
}

// match scans buf against every registered descriptor and emits, in
// buffer order, every packet that can be completed right now. It
// mutates buf, discarding each emitted packet (and any garbage before
// it) from the head.
func (m *packetMatcher) match(buf *buffer) []Match {
	var results []Match
	for {
		bestIdx := -1
		bestStart, bestEnd := 0, 0
		for i, d := range m.descriptors {
			start, end, ok := findCandidate(buf.data, d)
			if !ok {
				continue
			}
			if bestIdx == -1 || end < bestEnd {
				bestIdx, bestStart, bestEnd = i, start, end
			}
		}
		if bestIdx == -1 {
			return results
		}
		packet := make([]byte, bestEnd-bestStart)
		copy(packet, buf.data[bestStart:bestEnd])
		results = append(results, Match{Descriptor: m.descriptors[bestIdx], Packet: packet})
		buf.discardThrough(bestEnd - 1)
	}
}

// findCandidate runs the per-descriptor search against the current
// contents of buf (not mutated here): locate a prefix, grow the
// window until a terminating suffix/regex/predicate match or the
// maximum length is hit, and retry past a failed start.
func findCandidate(buf []byte, d *PacketDescriptor) (start, end int, ok bool) {
	searchFrom := 0
	for {
		var i int
		if len(d.prefix) > 0 {
			if searchFrom > len(buf) {
				return 0, 0, false
			}
			idx := bytes.Index(buf[searchFrom:], d.prefix)
			if idx < 0 {
				return 0, 0, false
			}
			i = searchFrom + idx
		} else {
			if searchFrom > 0 {
				// An empty prefix only ever offers one candidate start (0);
				// once that has failed there is nowhere else to retry.
				return 0, 0, false
			}
			i = 0
		}

		j := i + len(d.prefix)
		maxEnd := len(buf)
		if d.hasMaxLen && i+d.maxLength < maxEnd {
			maxEnd = i + d.maxLength
		}

		switch {
		case d.regex != nil || d.predicate != nil:
			for k := j + 1; k <= maxEnd; k++ {
				if d.IsValidPacket(buf[i:k]) {
					return i, k, true
				}
			}
			if !d.hasMaxLen {
				return 0, 0, false // buffer can still grow; defer
			}
			searchFrom = i + 1
			continue

		case len(d.suffix) > 0:
			searchStart := j
			if searchStart > len(buf) {
				searchStart = len(buf)
			}
			relIdx := bytes.Index(buf[searchStart:], d.suffix)
			if relIdx < 0 {
				if !d.hasMaxLen {
					return 0, 0, false
				}
				searchFrom = i + 1
				continue
			}
			k := searchStart + relIdx + len(d.suffix)
			if k > maxEnd {
				if !d.hasMaxLen {
					return 0, 0, false
				}
				searchFrom = i + 1
				continue
			}
			if d.IsValidPacket(buf[i:k]) {
				return i, k, true
			}
			searchFrom = i + 1
			continue

		default:
			// Prefix with no suffix, regex, or predicate has no anchor
			// to terminate growth against; it can never resolve on its
			// own short of a maximumPacketLength forcing it to give up
			// and retry past the failed prefix.
			if !d.hasMaxLen {
				return 0, 0, false
			}
			searchFrom = i + 1
			continue
		}
	}
}
