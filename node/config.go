package node

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chratos-network/chratos/election"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/peers"
	"github.com/chratos-network/chratos/wire"
)

// Config is the node's full set of tunables, following the mapstructure-
// tagged idiom of the teacher's src/node/config.go so a cmd/chratosd
// loader can populate it straight out of viper.
type Config struct {
	DataDir    string `mapstructure:"datadir"`
	ListenAddr string `mapstructure:"listen"`
	IOThreads  int    `mapstructure:"io-threads"`

	// LiveNet is set by cmd/chratosd from CliConfig.LiveNet rather than
	// unmarshaled directly, since it is also read standalone to pick
	// Magic before a Config exists.
	LiveNet bool `mapstructure:"-"`

	Magic wire.NetworkMagic `mapstructure:"-"`

	OnlineWeightMinimum       numeric.Uint128 `mapstructure:"-"`
	OnlineWeightQuorumPercent uint64          `mapstructure:"online-weight-quorum-percent"`

	PeerConfig peers.Config `mapstructure:",squash"`

	Logger *logrus.Logger `mapstructure:"-"`
}

// DefaultConfig mirrors the teacher's node.DefaultConfig: sensible
// defaults for a live-net node, generalized to chratos's own tunables
// (spec.md §5: "io_threads workers (default >= 4)").
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: "0.0.0.0:7075",
		LiveNet:    true,
		IOThreads:  4,
		Magic:      wire.MagicLive,
		PeerConfig: peers.DefaultConfig(),
	}
}

// TestConfig mirrors the teacher's node.TestConfig: a fast, isolated
// configuration for unit tests, carrying a test logger and test-net
// timing scaled throughout the wired subsystems.
func TestConfig(log *logrus.Logger) *Config {
	return &Config{
		ListenAddr: "127.0.0.1:0",
		LiveNet:    false,
		IOThreads:  1,
		Magic:      wire.MagicTest,
		PeerConfig: peers.DefaultConfig(),
		Logger:     log,
	}
}

func (c *Config) electionConfig() election.Config {
	return election.Config{
		LiveNet:                   c.LiveNet,
		OnlineWeightMinimum:       c.OnlineWeightMinimum,
		OnlineWeightQuorumPercent: c.OnlineWeightQuorumPercent,
	}
}

// backupInterval is spec.md §6's design-level default for periodic
// ledger/state backup, owned by node since no subsystem package needs it
// internally.
const backupInterval = 5 * time.Minute
