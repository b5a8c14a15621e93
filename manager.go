package serial

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ManagerDelegate receives PortManager connect/disconnect events.
type ManagerDelegate interface {
	PortsConnected(added []*Port)
	PortsDisconnected(removed []*Port)
}

// PortManager enumerates serial devices and reconciles its
// availablePorts set as the OS reports device add/remove. Rather than
// a process-wide singleton, callers construct their own PortManager
// and decide whether to hold one shared instance or several.
type PortManager struct {
	mu       sync.Mutex
	ports    map[string]*Port
	delegate ManagerDelegate
	stopCh   chan struct{}
	log      *logrus.Entry
}

// NewPortManager constructs a PortManager with an empty available-port
// set. Call Start to perform the initial enumeration and begin
// watching for hotplug events.
func NewPortManager() *PortManager {
	return &PortManager{
		ports: make(map[string]*Port),
		log:   componentLogger(nil, "manager"),
	}
}

// SetDelegate installs the manager's event observer.
func (m *PortManager) SetDelegate(d ManagerDelegate) {
	m.mu.Lock()
	m.delegate = d
	m.mu.Unlock()
}

// AvailablePorts returns the manager's current view of connected
// ports, safe for concurrent use. Disconnected Port objects are
// dropped from this set but remain valid, removed-state references
// anyone already holds.
func (m *PortManager) AvailablePorts() []*Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Port, 0, len(m.ports))
	for _, p := range m.ports {
		out = append(out, p)
	}
	return out
}

func (m *PortManager) snapshotPaths() map[string]*Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]*Port, len(m.ports))
	for k, v := range m.ports {
		cp[k] = v
	}
	return cp
}

// reconcile compares the freshly enumerated device path set against
// the manager's current availablePorts, emits portsConnected for new
// paths and portsDisconnected (marking each removed Port's state) for
// paths that disappeared, and commits the new set so availablePorts
// always reflects the most recently reconciled snapshot.
func (m *PortManager) reconcile(seen map[string]struct{}) {
	m.mu.Lock()
	var added, removed []*Port
	for path := range seen {
		if _, ok := m.ports[path]; !ok {
			p := NewPort(path)
			m.ports[path] = p
			added = append(added, p)
		}
	}
	for path, p := range m.ports {
		if _, ok := seen[path]; !ok {
			delete(m.ports, path)
			removed = append(removed, p)
		}
	}
	delegate := m.delegate
	m.mu.Unlock()

	for _, p := range removed {
		p.markRemoved()
	}

	if delegate == nil {
		return
	}
	if len(added) > 0 {
		m.log.WithField("count", len(added)).Debug("ports connected")
		delegate.PortsConnected(added)
	}
	if len(removed) > 0 {
		m.log.WithField("count", len(removed)).Debug("ports disconnected")
		delegate.PortsDisconnected(removed)
	}
}
