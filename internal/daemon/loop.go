// Package daemon runs the acquisition loop: one counter reading per
// interval, appended to the on-disk sample cache. One loop process owns
// one interface's cache file; nothing else writes to it.
package daemon

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"if1sec/internal/core"
	"if1sec/internal/logger"
)

type CounterReader interface {
	Read(ctx context.Context) (rx, tx uint64, err error)
}

type SampleStore interface {
	Append(s core.Sample) error
}

type Loop struct {
	reader      CounterReader
	store       SampleStore
	interval    time.Duration
	readTimeout time.Duration
	clock       clock.Clock
	log         logger.Logger
}

func NewLoop(reader CounterReader, store SampleStore, interval, readTimeout time.Duration, log logger.Logger) *Loop {
	return &Loop{
		reader:      reader,
		store:       store,
		interval:    interval,
		readTimeout: readTimeout,
		clock:       clock.New(),
		log:         log,
	}
}

// Run samples until ctx is cancelled. Each tick sleeps for the interval
// minus its own processing time, so the cadence does not drift as
// processing cost accumulates.
func (l *Loop) Run(ctx context.Context) {
	for {
		started := l.clock.Now()
		l.tick(ctx, started)

		timer := l.clock.Timer(nextSleep(l.interval, l.clock.Since(started)))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// tick reads the counters and appends one sample. A failed read skips
// the append and nothing more; a single missed sample must not end
// data collection.
func (l *Loop) tick(ctx context.Context, at time.Time) {
	readCtx, cancel := context.WithTimeout(ctx, l.readTimeout)
	defer cancel()

	rx, tx, err := l.reader.Read(readCtx)
	if err != nil {
		l.log.Warn("skipping tick", "error", err)
		return
	}

	s := core.Sample{At: at.Unix(), RxBytes: rx, TxBytes: tx}
	if err := l.store.Append(s); err != nil {
		l.log.Error("appending sample", "error", err)
	}
}

func nextSleep(interval, elapsed time.Duration) time.Duration {
	sleep := interval - elapsed
	if sleep < 0 {
		return 0
	}
	return sleep
}
