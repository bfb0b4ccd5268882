// Package netdev reads cumulative byte counters for one network
// interface. The primary source is the sysfs statistics directory;
// hosts that do not expose it fall back to gopsutil's per-nic counters.
package netdev

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gnet "github.com/shirou/gopsutil/v3/net"
)

// ErrStatsUnavailable means the interface's counters could not be read
// this tick. The caller decides whether to retry on the next tick.
var ErrStatsUnavailable = errors.New("interface statistics unavailable")

const DefaultSysfsRoot = "/sys"

const defaultSpeedMbps = 1000

type Reader struct {
	iface     string
	rxPath    string
	txPath    string
	speedPath string
	useSysfs  bool
}

func NewReader(sysfsRoot, iface string) *Reader {
	ifaceDir := filepath.Join(sysfsRoot, "class", "net", iface)
	statsDir := filepath.Join(ifaceDir, "statistics")

	r := &Reader{
		iface:     iface,
		rxPath:    filepath.Join(statsDir, "rx_bytes"),
		txPath:    filepath.Join(statsDir, "tx_bytes"),
		speedPath: filepath.Join(ifaceDir, "speed"),
	}
	if _, err := os.Stat(statsDir); err == nil {
		r.useSysfs = true
	}
	return r
}

func (r *Reader) Interface() string { return r.iface }

// Read returns the current cumulative RX and TX byte counts. It never
// retries; a failed read surfaces as ErrStatsUnavailable.
func (r *Reader) Read(ctx context.Context) (rx, tx uint64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
	}

	if r.useSysfs {
		return r.readSysfs(ctx)
	}
	return r.readCounters(ctx)
}

type readResult struct {
	rx  uint64
	tx  uint64
	err error
}

// readSysfs bounds the file reads with the caller's deadline. A file
// read cannot be interrupted, so a read that hangs (NFS-rooted sysfs
// mirrors, flapping virtio devices) parks its goroutine and the tick
// moves on with ErrStatsUnavailable.
func (r *Reader) readSysfs(ctx context.Context) (uint64, uint64, error) {
	ch := make(chan readResult, 1)
	go func() {
		var c readResult
		c.rx, c.err = readUint(r.rxPath)
		if c.err == nil {
			c.tx, c.err = readUint(r.txPath)
		}
		ch <- c
	}()

	select {
	case c := <-ch:
		return c.rx, c.tx, c.err
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%w: %v", ErrStatsUnavailable, ctx.Err())
	}
}

func (r *Reader) readCounters(ctx context.Context) (uint64, uint64, error) {
	counters, err := gnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
	}

	for _, c := range counters {
		if c.Name == r.iface {
			return c.BytesRecv, c.BytesSent, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: no such interface %q", ErrStatsUnavailable, r.iface)
}

// LinkSpeed reports the interface speed in Mbps. Virtual interfaces
// often expose no speed, or -1; those report the 1 Gbps default.
func (r *Reader) LinkSpeed() int {
	data, err := os.ReadFile(r.speedPath)
	if err != nil {
		return defaultSpeedMbps
	}

	speed, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || speed <= 0 {
		return defaultSpeedMbps
	}
	return speed
}

func readUint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrStatsUnavailable, path, err)
	}
	return v, nil
}
