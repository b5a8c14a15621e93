package serial

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeAdapter is an in-memory osAdapter: reads are fed from an
// injected channel of chunks, writes are recorded, close is
// observable. It lets Port's state machine and receive loop be
// exercised without opening a real tty device, the same role
// NdisApiInterface's mock plays for wiresock-ndisapi-go's driver code.
type fakeAdapter struct {
	mu        sync.Mutex
	writes    [][]byte
	closed    bool
	chunks    chan []byte
	cfgErr    error
	lastCfg   *Config
	modemVals modemLines
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{chunks: make(chan []byte, 16)}
}

func (f *fakeAdapter) write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	cp := append([]byte(nil), p...)
	f.writes = append(f.writes, cp)
	return len(p), nil
}

func (f *fakeAdapter) read(p []byte) (int, error) {
	chunk, ok := <-f.chunks
	if !ok {
		return 0, ErrPortClosed
	}
	n := copy(p, chunk)
	return n, nil
}

func (f *fakeAdapter) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.chunks)
	return nil
}

func (f *fakeAdapter) applyConfig(cfg *Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCfg = cfg.clone()
	return f.cfgErr
}

func (f *fakeAdapter) readModemLines() (modemLines, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modemVals, nil
}

func (f *fakeAdapter) setRTS(on bool) error { return nil }
func (f *fakeAdapter) setDTR(on bool) error { return nil }

func (f *fakeAdapter) feed(data []byte) {
	f.chunks <- data
}

// recordingDelegate captures delegate calls for assertion.
type recordingDelegate struct {
	mu       sync.Mutex
	data     [][]byte
	packets  []Match
	removed  bool
	errs     []error
	opened   bool
	closed   bool
	response []byte
}

func (d *recordingDelegate) DidReceiveData(p *Port, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = append(d.data, append([]byte(nil), data...))
}

func (d *recordingDelegate) WasRemovedFromSystem(p *Port) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = true
}

func (d *recordingDelegate) DidReceivePacket(p *Port, packet []byte, desc *PacketDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.packets = append(d.packets, Match{Descriptor: desc, Packet: append([]byte(nil), packet...)})
}

func (d *recordingDelegate) DidEncounterError(p *Port, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func (d *recordingDelegate) WasOpened(p *Port) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
}

func (d *recordingDelegate) WasClosed(p *Port) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *recordingDelegate) DidReceiveResponse(p *Port, response []byte, req *Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.response = append([]byte(nil), response...)
}

func withFakeAdapter(t *testing.T, fa *fakeAdapter) *Port {
	t.Helper()
	prev := openAdapter
	openAdapter = func(path string) (osAdapter, error) { return fa, nil }
	t.Cleanup(func() { openAdapter = prev })

	p := NewPort("/dev/fake0")
	require.NoError(t, p.Open())
	return p
}

func TestPortOpenAppliesConfigAndEmitsOpened(t *testing.T) {
	defer goleak.VerifyNone(t)
	fa := newFakeAdapter()
	del := &recordingDelegate{}
	prev := openAdapter
	openAdapter = func(path string) (osAdapter, error) { return fa, nil }
	t.Cleanup(func() { openAdapter = prev })
	p := NewPort("/dev/fake0")
	// The delegate is installed before Open so the opened event reaches it.
	p.SetDelegate(del)
	require.NoError(t, p.Open())

	assert.Equal(t, StateOpen, p.State())
	assert.NotNil(t, fa.lastCfg)

	require.NoError(t, p.Close())
	time.Sleep(10 * time.Millisecond)
	del.mu.Lock()
	assert.True(t, del.opened)
	assert.True(t, del.closed)
	del.mu.Unlock()
}

func TestPortByteAndPacketOrdering(t *testing.T) {
	// suffix-only descriptor, two receive chunks.
	defer goleak.VerifyNone(t)
	fa := newFakeAdapter()
	del := &recordingDelegate{}
	p := withFakeAdapter(t, fa)
	p.SetDelegate(del)
	p.AddDescriptor(NewPrefixSuffixDescriptor(nil, []byte("\n"), nil))

	fa.feed([]byte("PO"))
	fa.feed([]byte("NG\n"))
	time.Sleep(30 * time.Millisecond)

	del.mu.Lock()
	assert.Equal(t, [][]byte{[]byte("PO"), []byte("NG\n")}, del.data)
	if assert.Len(t, del.packets, 1) {
		assert.Equal(t, []byte("PONG\n"), del.packets[0].Packet)
	}
	del.mu.Unlock()

	require.NoError(t, p.Close())
}

func TestPortSendDataWritesThroughAdapter(t *testing.T) {
	defer goleak.VerifyNone(t)
	fa := newFakeAdapter()
	p := withFakeAdapter(t, fa)

	ok, err := p.SendData([]byte("PING\n"))
	assert.True(t, ok)
	assert.NoError(t, err)

	fa.mu.Lock()
	assert.Equal(t, [][]byte{[]byte("PING\n")}, fa.writes)
	fa.mu.Unlock()

	require.NoError(t, p.Close())
}

func TestPortRequestQueueRoundTrip(t *testing.T) {
	// request/response round trip through a live Port.
	defer goleak.VerifyNone(t)
	fa := newFakeAdapter()
	del := &recordingDelegate{}
	p := withFakeAdapter(t, fa)
	p.SetDelegate(del)
	q := p.EnableRequestQueue()

	req := NewRequestExpectingResponse([]byte("GET_T"), nil, 500*time.Millisecond, func(data []byte) bool {
		return len(data) > 0 && data[len(data)-1] == '\r'
	})
	require.NoError(t, q.Enqueue(req))

	fa.feed([]byte("23\r"))
	time.Sleep(30 * time.Millisecond)

	del.mu.Lock()
	assert.Equal(t, []byte("23\r"), del.response)
	del.mu.Unlock()

	require.NoError(t, p.Close())
}

func TestPortMarkRemovedFailsInFlightRequest(t *testing.T) {
	// device removal fails an in-flight request.
	defer goleak.VerifyNone(t)
	fa := newFakeAdapter()
	del := &recordingDelegate{}
	p := withFakeAdapter(t, fa)
	p.SetDelegate(del)
	q := p.EnableRequestQueue()

	req := NewRequestExpectingResponse([]byte("GET_T"), nil, InfiniteTimeout, func([]byte) bool { return false })
	require.NoError(t, q.Enqueue(req))

	p.markRemoved()
	time.Sleep(20 * time.Millisecond)

	del.mu.Lock()
	assert.True(t, del.removed)
	if assert.Len(t, del.errs, 1) {
		assert.ErrorIs(t, del.errs[0], ErrPortClosed)
	}
	del.mu.Unlock()
	assert.Equal(t, StateRemoved, p.State())
}
