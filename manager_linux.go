package serial

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// devPath is the directory PortManager enumerates and watches. A var,
// not a const, so tests can point it at a scratch directory.
var devPath = "/dev"

// serialDevicePrefixes names the tty node families backed by a real
// UART, a USB-serial adapter, or a USB CDC-ACM device.
var serialDevicePrefixes = []string{"ttyS", "ttyUSB", "ttyACM"}

func isSerialDeviceName(name string) bool {
	for _, prefix := range serialDevicePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (m *PortManager) enumerate() (map[string]struct{}, error) {
	entries, err := os.ReadDir(devPath)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if isSerialDeviceName(e.Name()) {
			seen[filepath.Join(devPath, e.Name())] = struct{}{}
		}
	}
	return seen, nil
}

// Start performs the initial enumeration (emitting portsConnected for
// every device already present) and begins watching devPath via
// inotify for add/remove events. Hotplug events are debounced briefly
// so a burst of kernel events (several nodes appearing for one
// USB-serial adapter) reconciles as a single portsConnected.
func (m *PortManager) Start() error {
	seen, err := m.enumerate()
	if err != nil {
		return newErr(KindOpenFailed, "manager.enumerate", err)
	}
	m.reconcile(seen)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return newErr(KindOpenFailed, "manager.watch", err)
	}
	if err := watcher.Add(devPath); err != nil {
		watcher.Close()
		return newErr(KindOpenFailed, "manager.watch", err)
	}

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	stop := m.stopCh
	m.mu.Unlock()

	go m.watchLoop(watcher, stop)
	return nil
}

func (m *PortManager) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	defer watcher.Close()

	const quiescence = 150 * time.Millisecond
	var debounce *time.Timer

	reset := func() {
		if debounce == nil {
			debounce = time.NewTimer(quiescence)
			return
		}
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(quiescence)
	}

	var debounceCh <-chan time.Time

	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !isSerialDeviceName(name) {
				continue
			}
			reset()
			debounceCh = debounce.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.WithError(err).Warn("device watch error")
		case <-debounceCh:
			debounceCh = nil
			seen, err := m.enumerate()
			if err != nil {
				m.log.WithError(err).Warn("re-enumeration failed")
				continue
			}
			m.reconcile(seen)
		}
	}
}

// Stop ends the hotplug watch. Already-vended Ports are untouched.
func (m *PortManager) Stop() {
	m.mu.Lock()
	ch := m.stopCh
	m.stopCh = nil
	m.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}
