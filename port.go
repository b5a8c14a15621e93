package serial

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// State is one of the Port lifecycle states.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateRemoved:
		return "removed"
	default:
		return "closed"
	}
}

// Port is the state machine: exclusive owner of one OS handle, its
// receive buffer, descriptor set, and optional RequestQueue. All
// delegate dispatch is serialized through a single callback executor
// goroutine so delegates never see concurrent calls, the same split
// wiresock-ndisapi-go's packet_filter_queued.go uses between a
// read/process goroutine and the consumer-facing callback path.
type Port struct {
	path string
	name string

	mu      sync.Mutex
	state   State
	adapter osAdapter
	config  *Config
	buf     *buffer
	matcher *packetMatcher
	queue   *RequestQueue

	delegateMu sync.Mutex
	delegate   Delegate

	writeMu sync.Mutex

	recvDone chan struct{}
	cbCh     chan func()
	cbDone   chan struct{}

	log *logrus.Entry
}

// openAdapter is the seam Open() calls through; tests substitute a
// fake-returning function so Port's state machine can be exercised
// without a real tty device (see fakeAdapter in port_test.go).
var openAdapter = newOSAdapter

// NewPort creates a closed Port over path with default configuration.
// It does not touch the OS; call Open to acquire the device.
func NewPort(path string) *Port {
	return &Port{
		path:    path,
		name:    path,
		state:   StateClosed,
		config:  NewConfig(),
		buf:     newBuffer(0),
		matcher: newPacketMatcher(),
		log:     componentLogger(nil, "port"),
	}
}

func (p *Port) Path() string { return p.path }
func (p *Port) Name() string { return p.name }

func (p *Port) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Port) IsOpen() bool { return p.State() == StateOpen }

// SetDelegate installs the Port's delegate. The Port keeps an ordinary
// (strong) reference to it until it is replaced; there is no weak
// reference. A nil delegate silently no-ops every callback.
func (p *Port) SetDelegate(d Delegate) {
	p.delegateMu.Lock()
	p.delegate = d
	p.delegateMu.Unlock()
}

// SetLogger swaps the component logger; pass nil to revert to the
// package default.
func (p *Port) SetLogger(entry *logrus.Entry) {
	p.mu.Lock()
	p.log = componentLogger(entry, "port")
	p.mu.Unlock()
}

// Config returns a copy of the Port's current configuration.
func (p *Port) Config() *Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.clone()
}

// Configure applies cfg. If the Port is open the settings are pushed
// to the OS adapter immediately; on failure the previous configuration
// is kept and a KindConfigurationRejected error is returned, so a
// rejected setting never leaves the Port half-applied. If the Port is
// closed the settings are stored and applied at next Open.
func (p *Port) Configure(cfg *Config) error {
	p.mu.Lock()
	if p.state != StateOpen {
		p.config = cfg.clone()
		p.mu.Unlock()
		return nil
	}
	prev := p.config
	p.config = cfg.clone()
	newCfg := p.config.clone()
	adapter := p.adapter
	p.mu.Unlock()

	if err := adapter.applyConfig(newCfg); err != nil {
		p.mu.Lock()
		p.config = prev
		p.mu.Unlock()
		p.emitError(err)
		return err
	}
	return nil
}

// AddDescriptor registers a PacketDescriptor with the Port's matcher.
func (p *Port) AddDescriptor(d *PacketDescriptor) {
	p.mu.Lock()
	p.matcher.addDescriptor(d)
	p.mu.Unlock()
}

// RemoveDescriptor drops a previously registered PacketDescriptor.
func (p *Port) RemoveDescriptor(d *PacketDescriptor) {
	p.mu.Lock()
	p.matcher.removeDescriptor(d.UUID())
	p.mu.Unlock()
}

// EnableRequestQueue attaches a RequestQueue to this Port, exclusively
// owned by it. Calling it again replaces the previous queue.
func (p *Port) EnableRequestQueue() *RequestQueue {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = NewRequestQueue(&portQueueDelegate{p})
	return p.queue
}

// RequestQueue returns the Port's attached RequestQueue, or nil.
func (p *Port) RequestQueue() *RequestQueue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

// Open acquires the OS device, applies the stored configuration, and,
// on success, starts the receive loop and callback executor.
func (p *Port) Open() error {
	p.mu.Lock()
	if p.state != StateClosed {
		p.mu.Unlock()
		return &Error{Kind: KindPortClosed, Op: "open"}
	}
	p.state = StateOpening
	cfg := p.config.clone()
	p.mu.Unlock()

	adapter, err := openAdapter(p.path)
	if err != nil {
		p.mu.Lock()
		p.state = StateClosed
		p.mu.Unlock()
		oerr := newErr(KindOpenFailed, "open", err)
		p.emitError(oerr)
		return oerr
	}

	if err := adapter.applyConfig(cfg); err != nil {
		adapter.close()
		p.mu.Lock()
		p.state = StateClosed
		p.mu.Unlock()
		p.emitError(err)
		return err
	}

	p.mu.Lock()
	p.adapter = adapter
	p.state = StateOpen
	p.recvDone = make(chan struct{})
	p.cbCh = make(chan func(), 64)
	p.cbDone = make(chan struct{})
	p.mu.Unlock()

	go p.runCallbackExecutor()
	go p.runReceiveLoop()

	p.log.Debug("port opened")
	p.dispatch(func() {
		p.delegateMu.Lock()
		d := p.delegate
		p.delegateMu.Unlock()
		if lo, ok := d.(LifecycleObserver); ok {
			lo.WasOpened(p)
		}
	})
	return nil
}

// SendData writes data to the device. On a write failure it returns
// false and an error that is also delivered via DidEncounterError. On
// a Port that is not open it returns false and ErrPortClosed without
// a DidEncounterError callback.
func (p *Port) SendData(data []byte) (bool, error) {
	if err := p.writeRequestBytes(data); err != nil {
		return false, err
	}
	return true, nil
}

// writeRequestBytes is the shared write path for SendData and the
// RequestQueue; Port serializes writes from multiple producers with a
// dedicated mutex so two writers can never interleave on the wire.
func (p *Port) writeRequestBytes(data []byte) error {
	p.mu.Lock()
	state := p.state
	adapter := p.adapter
	p.mu.Unlock()
	if state != StateOpen {
		return ErrPortClosed
	}

	p.writeMu.Lock()
	n, err := adapter.write(data)
	p.writeMu.Unlock()

	if err != nil || n < len(data) {
		werr := &Error{Kind: KindWriteFailed, Op: "sendData", BytesWritten: n, Err: err}
		p.emitError(werr)
		return werr
	}
	return nil
}

// Close begins an orderly shutdown: the receive loop and callback
// executor are stopped and the device released.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.state != StateOpen {
		p.mu.Unlock()
		return nil
	}
	p.state = StateClosing
	adapter := p.adapter
	queue := p.queue
	p.mu.Unlock()

	close(p.recvDone)
	if adapter != nil {
		adapter.close()
	}
	if queue != nil {
		queue.Close()
	}

	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()

	p.log.Debug("port closed")
	p.dispatch(func() {
		p.delegateMu.Lock()
		d := p.delegate
		p.delegateMu.Unlock()
		if lo, ok := d.(LifecycleObserver); ok {
			lo.WasClosed(p)
		}
	})
	close(p.cbCh)
	<-p.cbDone
	return nil
}

// markRemoved transitions the Port to the terminal removed state from
// any prior state. Called by PortManager when the OS reports device
// loss.
func (p *Port) markRemoved() {
	p.mu.Lock()
	if p.state == StateRemoved {
		p.mu.Unlock()
		return
	}
	prev := p.state
	p.state = StateRemoved
	adapter := p.adapter
	queue := p.queue
	p.mu.Unlock()

	if (prev == StateOpen || prev == StateClosing) && p.recvDone != nil {
		select {
		case <-p.recvDone:
		default:
			close(p.recvDone)
		}
	}
	if adapter != nil {
		adapter.close()
	}
	if queue != nil {
		queue.Close()
	}

	p.log.Warn("device removed")
	p.dispatch(func() {
		p.delegateMu.Lock()
		d := p.delegate
		p.delegateMu.Unlock()
		if d != nil {
			d.WasRemovedFromSystem(p)
		}
	})
	if prev == StateOpen || prev == StateClosing {
		close(p.cbCh)
		<-p.cbDone
	}
}

func (p *Port) runCallbackExecutor() {
	for fn := range p.cbCh {
		fn()
	}
	close(p.cbDone)
}

// dispatch queues fn on the single callback executor so no two
// delegate calls for this Port ever run concurrently.
func (p *Port) dispatch(fn func()) {
	p.mu.Lock()
	ch := p.cbCh
	p.mu.Unlock()
	if ch == nil {
		return
	}
	defer func() { recover() }() // ch may close concurrently with Close/markRemoved
	ch <- fn
}

func (p *Port) runReceiveLoop() {
	readBuf := make([]byte, 4096)
	for {
		select {
		case <-p.recvDone:
			return
		default:
		}

		p.mu.Lock()
		adapter := p.adapter
		p.mu.Unlock()
		if adapter == nil {
			return
		}

		n, err := adapter.read(readBuf)
		select {
		case <-p.recvDone:
			return
		default:
		}
		if err != nil {
			rerr := newErr(KindReadFailed, "receiveLoop", err)
			p.emitError(rerr)
			p.Close()
			return
		}
		if n == 0 {
			continue
		}
		p.handleBytes(append([]byte(nil), readBuf[:n]...))
	}
}

// handleBytes runs when new bytes arrive: the chunk is appended to the
// buffer, the byte event fires, then the matcher runs and every packet
// it closes within this chunk fires, then the RequestQueue is offered
// the buffer. Byte delivery always precedes packet delivery for the
// same chunk.
func (p *Port) handleBytes(chunk []byte) {
	p.mu.Lock()
	p.buf.append(chunk)
	p.mu.Unlock()

	p.dispatch(func() {
		p.delegateMu.Lock()
		d := p.delegate
		p.delegateMu.Unlock()
		if d != nil {
			d.DidReceiveData(p, chunk)
		}
	})

	p.mu.Lock()
	matches := p.matcher.match(p.buf)
	queue := p.queue
	p.mu.Unlock()

	for _, m := range matches {
		match := m
		p.dispatch(func() {
			p.delegateMu.Lock()
			d := p.delegate
			p.delegateMu.Unlock()
			if pr, ok := d.(PacketReceiver); ok {
				pr.DidReceivePacket(p, match.Packet, match.Descriptor)
			}
		})
	}

	if queue != nil {
		p.mu.Lock()
		buf := p.buf
		p.mu.Unlock()
		queue.OfferBuffer(buf)
	}
}

func (p *Port) emitError(err error) {
	p.log.WithError(err).Warn("port error")
	p.dispatch(func() {
		p.delegateMu.Lock()
		d := p.delegate
		p.delegateMu.Unlock()
		if eo, ok := d.(ErrorObserver); ok {
			eo.DidEncounterError(p, err)
		}
	})
}

// portQueueDelegate adapts Port to requestQueueDelegate so RequestQueue
// never depends on the concrete Port type directly.
type portQueueDelegate struct{ p *Port }

func (q *portQueueDelegate) writeRequestBytes(data []byte) error {
	return q.p.writeRequestBytes(data)
}

func (q *portQueueDelegate) responseReceived(req *Request, response []byte) {
	q.p.dispatch(func() {
		q.p.delegateMu.Lock()
		d := q.p.delegate
		q.p.delegateMu.Unlock()
		if rr, ok := d.(ResponseReceiver); ok {
			rr.DidReceiveResponse(q.p, response, req)
		}
	})
}

func (q *portQueueDelegate) requestTimedOut(req *Request) {
	q.p.dispatch(func() {
		q.p.delegateMu.Lock()
		d := q.p.delegate
		q.p.delegateMu.Unlock()
		if to, ok := d.(TimeoutObserver); ok {
			to.RequestDidTimeout(q.p, req)
		}
	})
}

func (q *portQueueDelegate) requestFailed(req *Request, err error) {
	q.p.emitError(newErr(KindPortClosed, "request", err))
}

// ModemLines reports the read-only modem-line inputs CTS/DSR/DCD.
func (p *Port) ModemLines() (cts, dsr, dcd bool, err error) {
	p.mu.Lock()
	adapter := p.adapter
	state := p.state
	p.mu.Unlock()
	if state != StateOpen {
		return false, false, false, ErrPortClosed
	}
	lines, err := adapter.readModemLines()
	if err != nil {
		return false, false, false, err
	}
	return lines.cts, lines.dsr, lines.dcd, nil
}

// SetRTS drives the RTS modem-line output.
func (p *Port) SetRTS(on bool) error {
	p.mu.Lock()
	adapter := p.adapter
	state := p.state
	p.mu.Unlock()
	if state != StateOpen {
		return ErrPortClosed
	}
	return adapter.setRTS(on)
}

// SetDTR drives the DTR modem-line output.
func (p *Port) SetDTR(on bool) error {
	p.mu.Lock()
	adapter := p.adapter
	state := p.state
	p.mu.Unlock()
	if state != StateOpen {
		return ErrPortClosed
	}
	return adapter.setDTR(on)
}
