package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/polycephaly/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "polycephaly",
	Short: "Run a set of message-passing processes behind one router",
	Long: `Polycephaly runs named processes that exchange envelopes through
per-process mailboxes. Traffic between peers is relayed by a main process,
and each process manages its own child threads.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/polycephaly/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file.
	// This also binds POLYCEPHALY_* environment overrides.
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
