package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/txix-open/emb/internal/container"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and declare its topology without serving",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := container.New(cfg)
	if err != nil {
		return errors.WithMessage(err, "build container")
	}
	broker := c.Broker()
	err = broker.Run(context.Background())
	if err != nil {
		return errors.WithMessage(err, "declare topology")
	}
	broker.Shutdown()

	for _, vh := range broker.VirtualHosts() {
		fmt.Fprintf(cmd.OutOrStdout(), "virtual host '%s': %d exchanges\n", vh.Name(), len(vh.Exchanges()))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
	return nil
}
