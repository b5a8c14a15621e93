package serial

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingManagerDelegate struct {
	mu       sync.Mutex
	added    [][]*Port
	removed  [][]*Port
}

func (d *recordingManagerDelegate) PortsConnected(ports []*Port) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.added = append(d.added, ports)
}

func (d *recordingManagerDelegate) PortsDisconnected(ports []*Port) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = append(d.removed, ports)
}

func touch(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestPortManagerInitialEnumeration(t *testing.T) {
	dir := t.TempDir()
	prev := devPath
	devPath = dir
	t.Cleanup(func() { devPath = prev })

	touch(t, filepath.Join(dir, "ttyUSB0"))
	touch(t, filepath.Join(dir, "randomfile"))

	m := NewPortManager()
	del := &recordingManagerDelegate{}
	m.SetDelegate(del)
	require.NoError(t, m.Start())
	defer m.Stop()

	ports := m.AvailablePorts()
	require.Len(t, ports, 1)
	assert.Equal(t, filepath.Join(dir, "ttyUSB0"), ports[0].Path())
}

func TestPortManagerHotplugAddAndRemove(t *testing.T) {
	// scenario 6: manager liveness.
	dir := t.TempDir()
	prev := devPath
	devPath = dir
	t.Cleanup(func() { devPath = prev })

	m := NewPortManager()
	del := &recordingManagerDelegate{}
	m.SetDelegate(del)
	require.NoError(t, m.Start())
	defer m.Stop()

	path := filepath.Join(dir, "ttyACM0")
	touch(t, path)

	require.Eventually(t, func() bool {
		del.mu.Lock()
		defer del.mu.Unlock()
		return len(del.added) == 1 && len(del.added[0]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		del.mu.Lock()
		defer del.mu.Unlock()
		return len(del.removed) == 1 && len(del.removed[0]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, m.AvailablePorts())
}
