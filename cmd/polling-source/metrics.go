package main

import (
	"net"
	"net/http"

	"github.com/RuiFG/streaming/streaming-polling/config"
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/uber-go/tally/v4"
	"github.com/uber-go/tally/v4/prometheus"
	"go.uber.org/multierr"
)

const metricsPrefix = "streaming"

type metrics struct {
	scope tally.Scope
	// addr is nil when metrics are not served.
	addr  net.Addr
	close func() error
}

// newMetrics builds the root scope. With an address it reports through a
// prometheus registry served on /metrics.
func newMetrics(c config.Metrics) (*metrics, error) {
	if c.Address == "" {
		scope, closer := tally.NewRootScope(tally.ScopeOptions{
			Prefix:   metricsPrefix,
			Reporter: tally.NullStatsReporter,
		}, c.Interval)
		return &metrics{scope: scope, close: closer.Close}, nil
	}

	registry := prom.NewRegistry()
	reporter := prometheus.NewReporter(prometheus.Options{
		Registerer:       registry,
		Gatherer:         registry,
		DefaultTimerType: prometheus.HistogramTimerType,
		OnRegisterError: func(err error) {
			log.Global().Warnw("failed to register metric.", "err", err)
		},
	})
	listener, err := net.Listen("tcp", c.Address)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to listen on %s", c.Address)
	}
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:         metricsPrefix,
		CachedReporter: reporter,
		Separator:      prometheus.DefaultSeparator,
	}, c.Interval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", reporter.HTTPHandler())
	server := &http.Server{Handler: mux}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Global().Errorw("metrics server stopped.", "err", serveErr)
		}
	}()
	log.Global().Infow("serving metrics.", "addr", listener.Addr().String())
	return &metrics{
		scope: scope,
		addr:  listener.Addr(),
		close: func() error { return multierr.Append(closer.Close(), server.Close()) },
	}, nil
}
