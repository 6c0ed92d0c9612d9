package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/txix-open/emb/internal/container"
	"golang.org/x/sync/errgroup"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Declare the configured topology and serve the line protocol",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address, overrides the config")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	c, err := container.New(cfg)
	if err != nil {
		return errors.WithMessage(err, "build container")
	}
	logger := c.Logger()
	broker := c.Broker()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = broker.Run(ctx)
	if err != nil {
		return errors.WithMessage(err, "run broker")
	}
	defer broker.Shutdown()

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.WithMessagef(err, "listen %s", cfg.Listen)
	}
	logger.WithField("listen", listener.Addr().String()).Info("serving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Server().Serve(gctx, listener) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
