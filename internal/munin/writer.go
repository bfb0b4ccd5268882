// Package munin serializes reports in the munin plugin protocol: plain
// key-value lines on stdout, flushed before exit.
package munin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"if1sec/internal/core"
	"if1sec/internal/logger"
)

type Writer struct {
	iface string
	w     *bufio.Writer
	log   logger.Logger
}

func NewWriter(iface string, out io.Writer, log logger.Logger) *Writer {
	return &Writer{iface: iface, w: bufio.NewWriter(out), log: log}
}

// WriteFetch emits the rx/tx rates, in bytes per second, computed from
// the two most recent samples. With fewer than two samples it reports
// unknown values instead: a cold start is not a plugin failure.
func (m *Writer) WriteFetch(samples []core.Sample) error {
	if len(samples) < 2 {
		m.log.Info("no data yet", "interface", m.iface, "samples", len(samples))
		return m.writeNoData()
	}

	prev := samples[len(samples)-2]
	latest := samples[len(samples)-1]

	rate, err := core.ComputeRate(prev, latest)
	if err != nil {
		// cache invariants should make this unreachable
		m.log.Error("rate computation failed", "interface", m.iface, "error", err)
		return m.writeNoData()
	}

	if rate.Discontinuity {
		m.log.Warn("counter discontinuity, clamping to zero",
			"interface", m.iface, "at", latest.At)
	}

	fmt.Fprintf(m.w, "%s_rx.value %s\n", m.iface, formatRate(rate.RxPerSec))
	fmt.Fprintf(m.w, "%s_tx.value %s\n", m.iface, formatRate(rate.TxPerSec))
	return m.w.Flush()
}

func (m *Writer) writeNoData() error {
	fmt.Fprintf(m.w, "%s_rx.value U\n", m.iface)
	fmt.Fprintf(m.w, "%s_tx.value U\n", m.iface)
	return m.w.Flush()
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
