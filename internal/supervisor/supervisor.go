// Package supervisor guarantees at most one detached acquisition loop
// per interface. The arbitration point is exclusive creation of the
// pidfile: the first invocation to create it spawns the loop, racers
// see EEXIST and back off.
package supervisor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"if1sec/internal/logger"
)

var ErrSpawn = errors.New("cannot spawn acquisition loop")

// claimGrace is how long an unparseable pidfile is honored as another
// invocation's in-flight claim. The winner of the exclusive create
// holds an empty pidfile until its spawn returns; removing it during
// that window would let a racer start a second loop. Garbage older
// than this is stale and gets cleared.
const claimGrace = 10 * time.Second

type pidState int

const (
	pidAbsent pidState = iota
	pidAlive
	pidDead
	pidClaimed
)

type Supervisor struct {
	mu      sync.Mutex
	pidPath string
	log     logger.Logger

	// spawn starts a detached loop for the interface and returns its
	// pid. Swapped out in tests.
	spawn func(iface string) (int, error)
}

func New(pidPath string, log logger.Logger) *Supervisor {
	s := &Supervisor{pidPath: pidPath, log: log}
	s.spawn = s.spawnDetached
	return s
}

// EnsureRunning starts a detached acquisition loop for the interface
// unless one is already alive. Idempotent; meant to be called on every
// poll.
func (s *Supervisor) EnsureRunning(iface string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch pid, state := s.check(); state {
	case pidAlive:
		s.log.Debug("loop already running", "interface", iface, "pid", pid)
		return nil
	case pidClaimed:
		s.log.Debug("pidfile claimed by an in-flight spawn", "interface", iface)
		return nil
	case pidDead:
		// stale marker; clear it so the exclusive create below can
		// arbitrate again
		if err := os.Remove(s.pidPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: removing stale pidfile: %v", ErrSpawn, err)
		}
	}

	f, err := os.OpenFile(s.pidPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			// lost the race; the winner spawns
			s.log.Debug("pidfile claimed concurrently", "interface", iface)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	pid, err := s.spawn(iface)
	if err != nil {
		f.Close()
		os.Remove(s.pidPath)
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		f.Close()
		return fmt.Errorf("%w: recording pid %d: %v", ErrSpawn, pid, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: recording pid %d: %v", ErrSpawn, pid, err)
	}

	s.log.Info("spawned acquisition loop", "interface", iface, "pid", pid)
	return nil
}

// check classifies the pidfile. A file that does not parse to a pid is
// another invocation's claim until it outlives claimGrace, after which
// it counts as dead.
func (s *Supervisor) check() (int, pidState) {
	data, err := os.ReadFile(s.pidPath)
	if err != nil {
		return 0, pidAbsent
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		if info, err := os.Stat(s.pidPath); err == nil && time.Since(info.ModTime()) < claimGrace {
			return 0, pidClaimed
		}
		return 0, pidDead
	}

	// Signal 0 probes for existence. EPERM still means the process is
	// there, just not ours.
	err = unix.Kill(pid, 0)
	if err == nil || errors.Is(err, unix.EPERM) {
		return pid, pidAlive
	}
	return pid, pidDead
}
