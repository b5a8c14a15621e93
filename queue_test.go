package serial

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeQueueDelegate struct {
	mu        sync.Mutex
	written   [][]byte
	responses []struct {
		req *Request
		res []byte
	}
	timedOut []*Request
	failed   []*Request
	writeErr error
}

func (f *fakeQueueDelegate) writeRequestBytes(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeQueueDelegate) responseReceived(req *Request, response []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, struct {
		req *Request
		res []byte
	}{req, response})
}

func (f *fakeQueueDelegate) requestTimedOut(req *Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timedOut = append(f.timedOut, req)
}

func (f *fakeQueueDelegate) requestFailed(req *Request, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, req)
}

func TestRequestQueueNoPredicateCompletesOnWrite(t *testing.T) {
	d := &fakeQueueDelegate{}
	q := NewRequestQueue(d)
	r1 := NewRequest([]byte("PING\n"), nil)
	r2 := NewRequest([]byte("PING2\n"), nil)

	assert.NoError(t, q.Enqueue(r1))
	assert.NoError(t, q.Enqueue(r2))

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.written, 2)
	assert.Equal(t, 0, q.Len())
}

func TestRequestQueueResponseMatch(t *testing.T) {
	// predicate fires on "23\r".
	d := &fakeQueueDelegate{}
	q := NewRequestQueue(d)
	req := NewRequestExpectingResponse([]byte("GET_T"), nil, 500*time.Millisecond, func(data []byte) bool {
		return len(data) > 0 && data[len(data)-1] == '\r'
	})
	assert.NoError(t, q.Enqueue(req))

	buf := newBuffer(0)
	buf.append([]byte("23\r"))
	q.OfferBuffer(buf)

	d.mu.Lock()
	defer d.mu.Unlock()
	if assert.Len(t, d.responses, 1) {
		assert.Equal(t, []byte("23\r"), d.responses[0].res)
	}
	assert.Equal(t, 0, buf.len())
}

func TestRequestQueueTimeout(t *testing.T) {
	// no response arrives before the timeout elapses.
	d := &fakeQueueDelegate{}
	q := NewRequestQueue(d)
	req := NewRequestExpectingResponse([]byte("GET_T"), nil, 20*time.Millisecond, func(data []byte) bool { return false })
	assert.NoError(t, q.Enqueue(req))

	time.Sleep(80 * time.Millisecond)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.timedOut, 1)
	assert.Equal(t, 0, q.Len())
}

func TestRequestQueueCloseFailsOutstanding(t *testing.T) {
	// close fails both the in-flight and the still-queued request.
	d := &fakeQueueDelegate{}
	q := NewRequestQueue(d)
	r1 := NewRequestExpectingResponse([]byte("A"), nil, InfiniteTimeout, func([]byte) bool { return false })
	r2 := NewRequest([]byte("B"), nil)
	// block r1 in flight by never satisfying it, enqueue r2 behind it.
	assert.NoError(t, q.Enqueue(r1))
	q.mu.Lock()
	q.pending = append(q.pending, r2)
	q.mu.Unlock()

	q.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.failed, 2)
	assert.ErrorIs(t, q.Enqueue(NewRequest([]byte("C"), nil)), ErrPortClosed)
}

func TestRequestQueueWriteFailureDoesNotBlockQueue(t *testing.T) {
	d := &fakeQueueDelegate{writeErr: errors.New("write failed")}
	q := NewRequestQueue(d)
	err := q.Enqueue(NewRequest([]byte("X"), nil))
	assert.Error(t, err)

	// The failed request is not left in flight: the next one is sent.
	d.mu.Lock()
	d.writeErr = nil
	d.mu.Unlock()
	assert.NoError(t, q.Enqueue(NewRequest([]byte("Y"), nil)))
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, [][]byte{[]byte("Y")}, d.written)
}
