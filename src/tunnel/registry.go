package tunnel

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gologme/log"
)

// registry tracks every live Session process-wide, so a single signal
// handler (installed once regardless of how many Sessions a host
// process creates) can fan out Stop to all of them, the way the
// teacher's main() wires signal.NotifyContext to a single cancel.
var (
	registryOnce sync.Once
	registryMu   sync.Mutex
	registry     = make(map[*Session]struct{})
)

func registerSession(s *Session) {
	registryMu.Lock()
	registry[s] = struct{}{}
	registryMu.Unlock()
}

func unregisterSession(s *Session) {
	registryMu.Lock()
	delete(registry, s)
	registryMu.Unlock()
}

// InstallSignalHandler arranges for os.Interrupt and SIGTERM to call
// StopAll and then exit the process with code 0. The handler is
// installed exactly once, no matter how many times this is called
// across however many Sessions a host process manages.
func InstallSignalHandler(logger *log.Logger) {
	registryOnce.Do(func() {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		go func() {
			<-ctx.Done()
			cancel()
			StopAll(logger)
			os.Exit(0)
		}()
	})
}

// Guard runs fn on the calling goroutine and, if fn panics, treats
// that as the process-wide "uncaught exception" spec.md §5/§6
// describe: it logs the panic, fans Stop out to every registered
// Session via StopAll, and exits the process with code 1, the same
// fatal posture cmd/yggdrasil/main.go takes via os.Exit(1) on a
// listener failure. Go has no global uncaught-panic hook the way a
// runtime with a process-level exception event would, so a host is
// expected to run its top-level goroutine(s) through Guard instead of
// calling fn directly.
func Guard(logger *log.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Errorln("tunnel: uncaught panic:", r)
			}
			StopAll(logger)
			os.Exit(1)
		}
	}()
	fn()
}

// StopAll concurrently stops every registered Session and logs any
// panic a Stop call raises instead of letting it take down the
// process, mirroring the teacher's top-level recover-and-log posture
// around its handler goroutines.
func StopAll(logger *log.Logger) {
	registryMu.Lock()
	sessions := make([]*Session, 0, len(registry))
	for s := range registry {
		sessions = append(sessions, s)
	}
	registryMu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil && logger != nil {
					logger.Errorln("tunnel: panic while stopping a session:", r)
				}
			}()
			_ = s.Stop(nil)
		}(s)
	}
	wg.Wait()
}

// ExitCode maps a Session's terminal error to the process exit code a
// host's main() should use: 0 for a clean Stop, 1 for anything else.
func ExitCode(err error) int {
	if err == nil || err == errStopped {
		return 0
	}
	return 1
}
