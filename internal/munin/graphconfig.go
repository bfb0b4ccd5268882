package munin

import "fmt"

// WriteGraphConfig emits the graph definition munin asks for with the
// config verb. speedMbps caps the plotted rates at the link speed.
func (m *Writer) WriteGraphConfig(speedMbps int) error {
	// link speed is megabits, rates are bytes
	maxRate := speedMbps / 8 * 1000000

	fmt.Fprintf(m.w, "graph_title Interface 1sec stats for %s\n", m.iface)
	fmt.Fprintln(m.w, "graph_category network")
	fmt.Fprintln(m.w, "graph_args --base 1000")
	fmt.Fprintln(m.w, "graph_data_size custom 1d, 1s for 1d, 5s for 2d, 10s for 7d, 1m for 1t, 5m for 1y")
	fmt.Fprintln(m.w, "graph_vlabel bytes in (-) / out (+) per second")
	fmt.Fprintf(m.w, "graph_info Traffic of the %s interface, sampled every second.\n", m.iface)
	fmt.Fprintln(m.w, "update_rate 1")

	fmt.Fprintf(m.w, "%s_rx.label received\n", m.iface)
	fmt.Fprintf(m.w, "%s_rx.type GAUGE\n", m.iface)
	fmt.Fprintf(m.w, "%s_rx.min 0\n", m.iface)
	fmt.Fprintf(m.w, "%s_rx.max %d\n", m.iface, maxRate)
	fmt.Fprintf(m.w, "%s_rx.graph no\n", m.iface)
	fmt.Fprintf(m.w, "%s_rx.info Received traffic on %s. Link speed %d Mbps.\n", m.iface, m.iface, speedMbps)

	fmt.Fprintf(m.w, "%s_tx.label transmitted\n", m.iface)
	fmt.Fprintf(m.w, "%s_tx.type GAUGE\n", m.iface)
	fmt.Fprintf(m.w, "%s_tx.min 0\n", m.iface)
	fmt.Fprintf(m.w, "%s_tx.max %d\n", m.iface, maxRate)
	fmt.Fprintf(m.w, "%s_tx.negative %s_rx\n", m.iface, m.iface)
	fmt.Fprintf(m.w, "%s_tx.info Transmitted traffic on %s. Link speed %d Mbps.\n", m.iface, m.iface, speedMbps)

	return m.w.Flush()
}
