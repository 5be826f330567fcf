package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RuiFG/streaming/streaming-polling/component/sink/kafka"
	"github.com/RuiFG/streaming/streaming-polling/component/sink/logger"
	"github.com/RuiFG/streaming/streaming-polling/component/sink/nutsdb"
	"github.com/RuiFG/streaming/streaming-polling/component/source/polling"
	"github.com/RuiFG/streaming/streaming-polling/config"
	"github.com/RuiFG/streaming/streaming-polling/element"
	"github.com/RuiFG/streaming/streaming-polling/log"
	"github.com/RuiFG/streaming/streaming-polling/mapping"
	"github.com/RuiFG/streaming/streaming-polling/runtime"
	"github.com/RuiFG/streaming/streaming-polling/scheduler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var configPath string

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func init() {
	runCommand := &cobra.Command{
		Use:   "run",
		Short: "run the polling source until it is stopped or its iterations are exhausted",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err = setupLogger(application.Log); err != nil {
				return err
			}
			defer func() { _ = log.Global().Sync() }()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, application)
		},
	}
	runCommand.Flags().StringVarP(&configPath, "config", "c", "", "path of the yaml config file")
	Command.AddCommand(runCommand)
}

func setupLogger(c config.Log) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	encoder, err := log.ParseOutputEncoder(c.Encoder)
	if err != nil {
		return err
	}
	log.Setup(log.DefaultOptions().WithLevel(level).WithOutputEncoder(encoder))
	return nil
}

func newOutput(application config.Application) (element.Output[[]byte], io.Closer, error) {
	switch application.Output.Kind {
	case "kafka":
		sink, err := kafka.New(kafka.Config{
			Addresses: application.Output.Kafka.Addresses,
			Topic:     application.Output.Kafka.Topic,
			Key:       application.Output.Kafka.Key,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, sink, nil
	case "nutsdb":
		bucket := application.Output.NutsDB.Bucket
		if bucket == "" {
			bucket = application.Source.Name
		}
		if bucket == "" {
			bucket = "polling"
		}
		sink, err := nutsdb.New(application.Output.NutsDB.Dir, bucket)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink, nil
	default:
		return logger.NewBytes(log.Global().Named("sink.logger")), closerFunc(func() error { return nil }), nil
	}
}

func pollerOptions(c config.Poller) ([]scheduler.WithOptions, error) {
	mode, err := scheduler.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := scheduler.ParseErrorPolicy(c.ErrorPolicy)
	if err != nil {
		return nil, err
	}
	return []scheduler.WithOptions{
		scheduler.WithPeriod(c.Period),
		scheduler.WithInitialDelay(c.InitialDelay),
		scheduler.WithIterations(c.Iterations),
		scheduler.WithMode(mode),
		scheduler.WithErrorPolicy(policy),
	}, nil
}

func run(ctx context.Context, application config.Application) (err error) {
	descriptor, err := os.ReadFile(application.Source.Descriptor)
	if err != nil {
		return errors.WithMessage(err, "failed to read descriptor")
	}
	conversion, err := mapping.ByName(application.Source.Mapping)
	if err != nil {
		return err
	}
	pollerOpts, err := pollerOptions(application.Poller)
	if err != nil {
		return err
	}
	output, outputCloser, err := newOutput(application)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, outputCloser.Close()) }()

	m, err := newMetrics(application.Metrics)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, m.close()) }()

	source, err := polling.New[[]byte](application.Source.Name, output,
		polling.WithDescriptor[[]byte](descriptor),
		polling.WithLibraries[[]byte](application.Source.Libraries...),
		polling.WithMapping[[]byte](conversion),
		polling.WithScope[[]byte](m.scope))
	if err != nil {
		return err
	}

	env := runtime.New()
	if err = env.Register(source.Name(), source, pollerOpts...); err != nil {
		return err
	}
	if err = env.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		log.Global().Info("received stop signal, stopping.")
	case <-env.Done():
	}
	return multierr.Append(env.Stop(), env.Err())
}
