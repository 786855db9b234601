// Package monitor periodically samples the clock offset against a set of
// NTP servers and keeps a short history of the results. It never adjusts
// the local clock; it only observes and reports.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AndrewLester/sntp/pkg/sntp"
)

// NSTAGE samples are retained per server, matching the depth of the
// reference clock filter.
const NSTAGE = 8

// maxBackoffShift caps the poll interval at interval << maxBackoffShift
// while a server keeps timing out.
const maxBackoffShift = 6

// querier is satisfied by *sntp.Client and by test fakes.
type querier interface {
	Query() (*sntp.Response, error)
}

type Sample struct {
	Server string
	Offset time.Duration
	Delay  time.Duration
	Error  string
	Taken  time.Time
}

// Ok reports whether the sample carries a usable measurement.
func (sample Sample) Ok() bool {
	return sample.Error == ""
}

type server struct {
	address string
	client  querier
	unreach int // consecutive timeouts
}

type Monitor struct {
	interval time.Duration
	servers  []*server
	log      zerolog.Logger

	lock    sync.Mutex
	samples map[string][]Sample // per server, newest last, bounded at NSTAGE
}

func New(config Config, logger zerolog.Logger) *Monitor {
	monitor := &Monitor{
		interval: time.Duration(config.Interval),
		log:      logger,
		samples:  map[string][]Sample{},
	}

	options := []sntp.Option{sntp.WithTimeout(time.Duration(config.Timeout))}
	if config.Port != 0 {
		options = append(options, sntp.WithPort(config.Port))
	}

	for _, address := range config.Servers {
		monitor.servers = append(monitor.servers, &server{
			address: address,
			client:  sntp.NewClient(address, options...),
		})
	}

	return monitor
}

// Run polls every configured server until the context is cancelled. Each
// server is polled on its own schedule so a slow server cannot delay the
// others.
func (monitor *Monitor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, srv := range monitor.servers {
		wg.Add(1)
		go func(srv *server) {
			defer wg.Done()
			monitor.pollLoop(ctx, srv)
		}(srv)
	}
	wg.Wait()
}

func (monitor *Monitor) pollLoop(ctx context.Context, srv *server) {
	for {
		monitor.pollOnce(srv)

		timer := time.NewTimer(monitor.pollInterval(srv))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pollInterval doubles the configured interval for each consecutive
// timeout so an unresponsive server is not hammered.
func (monitor *Monitor) pollInterval(srv *server) time.Duration {
	shift := srv.unreach
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return monitor.interval << shift
}

func (monitor *Monitor) pollOnce(srv *server) {
	response, err := srv.client.Query()

	sample := Sample{Server: srv.address, Taken: time.Now()}
	if err != nil {
		sample.Error = err.Error()
		if errors.Is(err, sntp.ErrTimeout) {
			srv.unreach++
		}
		monitor.log.Warn().Str("server", srv.address).Err(err).Msg("query failed")
	} else {
		srv.unreach = 0
		sample.Offset = response.Offset
		sample.Delay = response.Delay

		event := monitor.log.Info()
		if response.SuspectDelay() {
			event = monitor.log.Warn().Bool("suspect_delay", true)
		}
		event.Str("server", srv.address).
			Dur("offset", response.Offset).
			Dur("delay", response.Delay).
			Msg("sample")
	}

	monitor.record(sample)
}

func (monitor *Monitor) record(sample Sample) {
	monitor.lock.Lock()
	defer monitor.lock.Unlock()

	history := append(monitor.samples[sample.Server], sample)
	if len(history) > NSTAGE {
		history = history[len(history)-NSTAGE:]
	}
	monitor.samples[sample.Server] = history
}

// Latest returns the newest sample for each configured server, in the
// order the servers were configured. Servers not yet polled are skipped.
func (monitor *Monitor) Latest() []Sample {
	monitor.lock.Lock()
	defer monitor.lock.Unlock()

	latest := []Sample{}
	for _, srv := range monitor.servers {
		history := monitor.samples[srv.address]
		if len(history) == 0 {
			continue
		}
		latest = append(latest, history[len(history)-1])
	}
	return latest
}

// History returns the retained samples for one server, newest last.
func (monitor *Monitor) History(address string) []Sample {
	monitor.lock.Lock()
	defer monitor.lock.Unlock()

	history := monitor.samples[address]
	out := make([]Sample, len(history))
	copy(out, history)
	return out
}
