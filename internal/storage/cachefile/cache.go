// Package cachefile persists the rolling window of samples that the
// acquisition loop hands off to the query responder. The file is
// replaced atomically on every append so a concurrent reader sees
// either the previous or the new complete window, never a torn record.
package cachefile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"if1sec/internal/core"
	"if1sec/internal/logger"
)

// header identifies the record format. Anything else means the file is
// not ours or was truncated mid-write by something that is not us.
const header = "if1sec1"

var (
	ErrCorrupt    = errors.New("cache file corrupt")
	ErrOutOfOrder = errors.New("sample not after latest cached sample")
)

type Cache struct {
	path     string
	capacity int
	log      logger.Logger
}

func New(path string, capacity int, log logger.Logger) *Cache {
	return &Cache{path: path, capacity: capacity, log: log}
}

// ReadAll returns the cached samples in append order. A missing file is
// an empty cache, and so is a corrupt one: the loop simply repopulates
// it on the following ticks.
func (c *Cache) ReadAll() ([]core.Sample, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	samples, err := parse(data)
	if err != nil {
		c.log.Warn("discarding cache", "path", c.path, "error", err)
		return nil, nil
	}
	return samples, nil
}

// Append adds a sample, evicting the oldest once the window is full.
// Samples must carry strictly increasing timestamps.
func (c *Cache) Append(s core.Sample) error {
	samples, err := c.ReadAll()
	if err != nil {
		return err
	}

	if n := len(samples); n > 0 && s.At <= samples[n-1].At {
		return ErrOutOfOrder
	}

	samples = append(samples, s)
	if len(samples) > c.capacity {
		samples = samples[len(samples)-c.capacity:]
	}

	return c.replace(samples)
}

func (c *Cache) replace(samples []core.Sample) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".tmp")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, header)
	for _, s := range samples {
		fmt.Fprintf(w, "%d %d %d\n", s.At, s.RxBytes, s.TxBytes)
	}

	err = w.Flush()
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}

func parse(data []byte) ([]core.Sample, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() || sc.Text() != header {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}

	var samples []core.Sample
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: malformed record %q", ErrCorrupt, line)
		}

		at, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp %q", ErrCorrupt, fields[0])
		}
		rx, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad rx counter %q", ErrCorrupt, fields[1])
		}
		tx, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad tx counter %q", ErrCorrupt, fields[2])
		}

		if n := len(samples); n > 0 && at <= samples[n-1].At {
			return nil, fmt.Errorf("%w: records out of order", ErrCorrupt)
		}

		samples = append(samples, core.Sample{At: at, RxBytes: rx, TxBytes: tx})
	}

	return samples, nil
}
