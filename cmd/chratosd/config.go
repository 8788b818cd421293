package main

import (
	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/node"
)

// CliConfig wraps node.Config with the process-level flags that don't
// belong on the node itself, following the squash idiom of the teacher's
// src/cmd/babble/command.CliConfig.
type CliConfig struct {
	Node node.Config `mapstructure:",squash"`

	LogLevel string `mapstructure:"log"`
	LiveNet  bool   `mapstructure:"live-net"`
}

// NewDefaultCliConfig builds a CliConfig seeded with node.DefaultConfig,
// matching the teacher's NewDefaultCliConfig.
func NewDefaultCliConfig() *CliConfig {
	return &CliConfig{
		Node:     *node.DefaultConfig(),
		LogLevel: "info",
		LiveNet:  true,
	}
}

func logLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
