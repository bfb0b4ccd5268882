// Package core holds the domain types shared by the acquisition loop
// and the query responder.
package core

import "errors"

var ErrBadInterval = errors.New("samples not in increasing time order")

// Sample is one reading of an interface's cumulative byte counters.
type Sample struct {
	At      int64 // unix seconds
	RxBytes uint64
	TxBytes uint64
}

// Rate is the traffic rate between two samples, in bytes per second.
// Discontinuity marks a counter that went backwards (interface reset);
// the affected rate is clamped to zero instead of going negative.
type Rate struct {
	RxPerSec      float64
	TxPerSec      float64
	Discontinuity bool
}

func ComputeRate(prev, latest Sample) (Rate, error) {
	if latest.At <= prev.At {
		return Rate{}, ErrBadInterval
	}

	elapsed := float64(latest.At - prev.At)

	var r Rate
	if latest.RxBytes >= prev.RxBytes {
		r.RxPerSec = float64(latest.RxBytes-prev.RxBytes) / elapsed
	} else {
		r.Discontinuity = true
	}
	if latest.TxBytes >= prev.TxBytes {
		r.TxPerSec = float64(latest.TxBytes-prev.TxBytes) / elapsed
	} else {
		r.Discontinuity = true
	}

	return r, nil
}
