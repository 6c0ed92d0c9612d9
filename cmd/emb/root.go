package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "emb",
	Short: "emb - embedded message broker",
	Long:  "emb - an in-process message broker with virtual hosts, exchanges, bindings and queues",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the yaml config, defaults are used if empty")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}
