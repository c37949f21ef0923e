package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MonitorConfig tunes the liveness monitor.
type MonitorConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Probe checks whether the session is still alive. Returning an error that
// wraps [ErrSessionLost] ends monitoring; any other error is transient.
type Probe func(ctx context.Context) error

// Monitor polls a [Probe] in the background until the session is lost or
// Stop is called.
type Monitor struct {
	cfg     MonitorConfig
	probe   Probe
	onLost  func()
	onError func(error)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartMonitor launches the polling goroutine. onLost runs on the monitor
// goroutine, once, when the probe reports [ErrSessionLost] and Stop has not
// been called in the meantime; onError
// receives transient probe failures and may be nil.
func StartMonitor(cfg MonitorConfig, probe Probe, onLost func(), onError func(error)) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 || cfg.Timeout > cfg.Interval {
		cfg.Timeout = cfg.Interval
	}
	if onLost == nil {
		onLost = func() {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	m := &Monitor{
		cfg:     cfg,
		probe:   probe,
		onLost:  onLost,
		onError: onError,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if !m.check() {
				continue
			}
			select {
			case <-m.stop:
			default:
				m.onLost()
			}
			return
		}
	}
}

func (m *Monitor) check() bool {
	if m.probe == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	err := m.probe(ctx)
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionLost) {
		return true
	}
	m.onError(err)
	return false
}

// Stop signals the monitor to exit. It does not wait, so it is safe to call
// from onLost; use Done to wait for the goroutine.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Done is closed once the polling goroutine has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}
