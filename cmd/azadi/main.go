package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/azadi/config"
	"github.com/mohammad-safakhou/azadi/internal/logging"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var cfgPath string
	var root = &cobra.Command{
		Use:           "azadi",
		Short:         "Grounded recommendation gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		logging.Init(logging.Config{Level: cfg.General.LogLevel, Format: cfg.General.LogFormat})
		return cfg, nil
	}

	root.AddCommand(serveCMD(load), migrateCMD(load), panelCMD(), tokenCMD(load))
	if err := root.Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

type loader func() (*config.Config, error)
