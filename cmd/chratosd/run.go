package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/chratos-network/chratos/node"
	"github.com/chratos-network/chratos/wire"
)

// NewRunCmd builds the run command, which loads the node's identity (if
// any), constructs a node.Node from the merged config, and blocks until
// an interrupt, following the teacher's RunE/engine.Run shape
// (src/cmd/babble/command/run.go).
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a chratos node",
		RunE:  runNode,
	}
}

func runNode(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	logger.Level = logLevel(config.LogLevel)
	logger.Formatter = &prefixed.TextFormatter{}

	cfg := config.Node
	cfg.Logger = logger
	cfg.LiveNet = config.LiveNet
	if config.LiveNet {
		cfg.Magic = wire.MagicLive
	} else {
		cfg.Magic = wire.MagicTest
	}

	identity, err := loadIdentity(*datadir)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"datadir":    cfg.DataDir,
		"listen":     cfg.ListenAddr,
		"live_net":   cfg.LiveNet,
		"io_threads": cfg.IOThreads,
		"voting":     identity != nil,
	}).Info("starting chratos node")

	n, err := node.New(cfg, identity)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	n.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	return n.Shutdown()
}
