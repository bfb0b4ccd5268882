// if1sec samples one network interface's byte counters every second and
// serves the resulting traffic rates as a munin plugin. Symlink it per
// interface: if1sec_eth0 monitors eth0.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"if1sec/internal/collector/netdev"
	"if1sec/internal/config"
	"if1sec/internal/daemon"
	"if1sec/internal/logger"
	"if1sec/internal/munin"
	"if1sec/internal/storage/cachefile"
	"if1sec/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	ifaceFlag := flag.String("interface", "", "interface to monitor (default: derived from the program name)")
	sysfsRoot := flag.String("sysfs", netdev.DefaultSysfsRoot, "sysfs mount point")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	iface := *ifaceFlag
	if iface == "" {
		iface, err = deriveInterface(os.Args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	reader := netdev.NewReader(*sysfsRoot, iface)
	cache := cachefile.New(cfg.CachePath(iface), cfg.Capacity, log)

	switch verb := flag.Arg(0); verb {
	case "config":
		w := munin.NewWriter(iface, os.Stdout, log)
		if err := w.WriteGraphConfig(reader.LinkSpeed()); err != nil {
			log.Error("writing graph config", "error", err)
			return 1
		}
		return 0

	case "acquire", "daemon":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("acquisition loop started", "interface", iface, "interval", cfg.Interval)
		loop := daemon.NewLoop(reader, cache, cfg.Interval, cfg.ReadTimeout, log)
		loop.Run(ctx)
		return 0

	case "", "fetch":
		sup := supervisor.New(cfg.PidPath(iface), log)
		spawnErr := sup.EnsureRunning(iface)
		if spawnErr != nil {
			log.Error("ensuring acquisition loop", "interface", iface, "error", spawnErr)
		}

		samples, err := cache.ReadAll()
		if err != nil {
			log.Error("reading cache", "interface", iface, "error", err)
			samples = nil
		}

		w := munin.NewWriter(iface, os.Stdout, log)
		if err := w.WriteFetch(samples); err != nil {
			log.Error("writing report", "error", err)
			return 1
		}

		// munin got its report either way, but a dead loop is still a
		// failed invocation
		if spawnErr != nil {
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown verb %q (want config, fetch or acquire)\n", verb)
		return 2
	}
}

// deriveInterface splits the invoking name on underscores, the munin
// wildcard-plugin convention: if1sec_eth0 monitors eth0.
func deriveInterface(argv0 string) (string, error) {
	base := filepath.Base(argv0)
	i := strings.LastIndex(base, "_")
	if i < 0 || i == len(base)-1 {
		return "", fmt.Errorf("cannot derive interface from %q: expected a name like if1sec_eth0", base)
	}
	return base[i+1:], nil
}
