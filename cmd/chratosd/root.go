package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config, datadir, and showVersion follow the teacher's package-level
// cobra/viper wiring (src/cmd/babble/command/run.go): flags are bound
// once in init, and initConfig re-populates config from whichever
// config file lives under datadir before every command runs.
var (
	config      *CliConfig
	datadir     *string
	showVersion *bool
)

func init() {
	config = NewDefaultCliConfig()

	cobra.OnInitialize(initConfig)

	datadir = rootCmd.PersistentFlags().StringP("datadir", "d", config.Node.DataDir, "Base configuration and data directory")

	rootCmd.PersistentFlags().StringP("listen", "l", config.Node.ListenAddr, "Listen IP:Port for the UDP wire protocol")
	rootCmd.PersistentFlags().Bool("live-net", config.LiveNet, "Use the live network magic and timing; false selects the test network")
	rootCmd.PersistentFlags().Int("io-threads", config.Node.IOThreads, "Number of I/O executor workers (spec.md: default >= 4)")
	rootCmd.PersistentFlags().Uint64("online-weight-quorum-percent", config.Node.OnlineWeightQuorumPercent, "Quorum delta as a percentage of online stake")
	rootCmd.PersistentFlags().String("log", config.LogLevel, "debug, info, warn, error, fatal, panic")

	showVersion = rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version and exit")
}

func initConfig() {
	viper.AddConfigPath(*datadir)
	viper.SetConfigName("chratosd")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "bind flags:", err)
		return
	}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Fprintln(os.Stderr, "unmarshal flags:", err)
		return
	}

	if err := viper.ReadInConfig(); err == nil {
		if err := viper.Unmarshal(config); err != nil {
			fmt.Fprintln(os.Stderr, "unmarshal config file:", err)
		}
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		fmt.Fprintln(os.Stderr, "read config:", err)
	}

	config.Node.DataDir = *datadir
}

var rootCmd = &cobra.Command{
	Use:   "chratosd",
	Short: "chratos node daemon",
	Long:  "chratosd runs a chratos peer-to-peer ledger node",
	Run: func(cmd *cobra.Command, args []string) {
		if *showVersion {
			fmt.Println(Version)
			return
		}
		cmd.Help()
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewKeygenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
