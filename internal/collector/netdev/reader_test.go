package netdev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func writeSysfs(t *testing.T, root, iface, rx, tx string) {
	t.Helper()
	statsDir := filepath.Join(root, "class", "net", iface, "statistics")
	require.NoError(t, os.MkdirAll(statsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(statsDir, "rx_bytes"), []byte(rx+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(statsDir, "tx_bytes"), []byte(tx+"\n"), 0o644))
}

func TestReadSysfs(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "eth0", "123456", "654321")

	r := NewReader(root, "eth0")
	rx, tx, err := r.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(123456), rx)
	require.Equal(t, uint64(654321), tx)
}

func TestReadVanishedInterface(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "eth0", "1", "2")

	r := NewReader(root, "eth0")
	require.NoError(t, os.RemoveAll(filepath.Join(root, "class", "net", "eth0")))

	_, _, err := r.Read(context.Background())
	require.ErrorIs(t, err, ErrStatsUnavailable)
}

func TestReadGarbledCounter(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "eth0", "not-a-number", "2")

	r := NewReader(root, "eth0")
	_, _, err := r.Read(context.Background())
	require.ErrorIs(t, err, ErrStatsUnavailable)
}

func TestReadCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "eth0", "1", "2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(root, "eth0")
	_, _, err := r.Read(ctx)
	require.ErrorIs(t, err, ErrStatsUnavailable)
}

func TestReadTimesOutOnHangingCounter(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "eth0", "1", "2")

	// a FIFO with no writer blocks reads forever
	rxPath := filepath.Join(root, "class", "net", "eth0", "statistics", "rx_bytes")
	require.NoError(t, os.Remove(rxPath))
	require.NoError(t, unix.Mkfifo(rxPath, 0o644))

	r := NewReader(root, "eth0")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := r.Read(ctx)
	require.ErrorIs(t, err, ErrStatsUnavailable)
	require.Less(t, time.Since(start), time.Second)
}

func TestLinkSpeed(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "eth0", "1", "2")

	r := NewReader(root, "eth0")
	require.Equal(t, 1000, r.LinkSpeed())

	speedPath := filepath.Join(root, "class", "net", "eth0", "speed")
	require.NoError(t, os.WriteFile(speedPath, []byte("10000\n"), 0o644))
	require.Equal(t, 10000, r.LinkSpeed())

	// virtual interfaces report -1
	require.NoError(t, os.WriteFile(speedPath, []byte("-1\n"), 0o644))
	require.Equal(t, 1000, r.LinkSpeed())
}
