// Command protoplot serves a live chart of one numeric field of the messages
// published on a topic.
package main

import (
	"context"
	"fmt"
	"github.com/minor-industries/protoplot"
	"github.com/minor-industries/protoplot/config"
	"github.com/minor-industries/protoplot/database/sqlite"
	"github.com/minor-industries/protoplot/internal/demo"
	"github.com/minor-industries/protoplot/transport"
	"github.com/minor-industries/protoplot/transport/inproc"
	"github.com/minor-industries/protoplot/transport/natsbus"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/reflect/protoregistry"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const appName = "protoplot"

func main() {
	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()
	if err := validateFlags(cli); err != nil {
		return err
	}

	logger := setupLogger(cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)

	cfg := config.Default()
	if cli.ConfigPath != "" {
		var err error
		cfg, err = config.Load(cli.ConfigPath)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
	}
	cli.apply(cfg)
	if err := cfg.Complete(); err != nil {
		return errors.Wrap(err, "config")
	}

	if cli.Validate {
		logger.Info("configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 8)

	node, publisher, closeTransport, err := setupTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	opts := protoplot.Options{
		Interval:    cfg.Feed.Interval,
		SeriesID:    cfg.Feed.SeriesID,
		HistorySize: cfg.Feed.HistorySize,
		Logger:      logger,
	}
	for _, d := range cfg.Feed.Derived {
		opts.Derived = append(opts.Derived, protoplot.DerivedSeries{
			SeriesID: d.SeriesID,
			Expr:     d.Expr,
		})
	}

	if cfg.Storage.Path != "" {
		backend, err := sqlite.Get(cfg.Storage.Path, cfg.Storage.BufferSize)
		if err != nil {
			return errors.Wrap(err, "open storage")
		}
		go backend.RunWriter(ctx, errCh)
		opts.Backend = backend
		logger.Info("recording samples", "path", cfg.Storage.Path)
	}

	plotter, err := protoplot.New(node, errCh, opts)
	if err != nil {
		return errors.Wrap(err, "new plotter")
	}
	defer func() {
		if err := plotter.Close(); err != nil {
			logger.Warn("close plotter", "error", err)
		}
	}()

	if cfg.Demo.Enabled {
		go func() {
			if err := demo.Run(ctx, publisher, cfg.Demo.Interval, logger); err != nil {
				errCh <- errors.Wrap(err, "demo")
			}
		}()
	}

	if topic := cfg.Subscription.Topic; topic != "" {
		if err := selectInitial(plotter, topic, cfg.Subscription.Path); err != nil {
			return err
		}
	}

	go func() {
		logger.Info("serving", "addr", cfg.Server.Addr)
		if err := plotter.RunServer(cfg.Server.Addr); err != nil {
			errCh <- errors.Wrap(err, "run server")
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func selectInitial(plotter *protoplot.Plotter, topic, path string) error {
	if path == "" {
		return errors.Wrap(plotter.SwitchTopic(topic), "switch topic")
	}
	return errors.Wrap(plotter.SetTopicAndPath(topic, path), "set topic and path")
}

func setupTransport(
	cfg *config.Config,
	logger *slog.Logger,
) (transport.Node, transport.Advertiser, func(), error) {
	switch cfg.Transport.Kind {
	case config.TransportInproc:
		bus := inproc.NewBus()
		return bus.NewNode(cfg.Transport.Name), bus.NewNode("demo"), bus.Close, nil

	case config.TransportNATS:
		types, err := demo.Types()
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "demo types")
		}
		resolver := natsbus.ChainResolvers(protoregistry.GlobalTypes, types)

		node, err := natsbus.Connect(cfg.Transport.URL,
			natsbus.WithName(cfg.Transport.Name),
			natsbus.WithPrefix(cfg.Transport.Prefix),
			natsbus.WithResolver(resolver),
			natsbus.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "nats")
		}

		closers := []func() error{node.Close}
		var publisher transport.Advertiser = node
		if cfg.Demo.Enabled {
			pub, err := natsbus.Connect(cfg.Transport.URL,
				natsbus.WithName(cfg.Transport.Name+"-demo"),
				natsbus.WithPrefix(cfg.Transport.Prefix),
				natsbus.WithLogger(logger),
			)
			if err != nil {
				_ = node.Close()
				return nil, nil, nil, errors.Wrap(err, "nats demo publisher")
			}
			publisher = pub
			closers = append(closers, pub.Close)
		}

		closeAll := func() {
			for _, c := range closers {
				if err := c(); err != nil {
					logger.Warn("close transport", "error", err)
				}
			}
		}
		return node, publisher, closeAll, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}
