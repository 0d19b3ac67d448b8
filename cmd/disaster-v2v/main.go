package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "disaster-v2v",
	Short: "Disaster monitoring and vehicle-to-vehicle messaging backend",
	Long: "Aggregates public hazard feeds, serves them over HTTP, and relays " +
		"messages and emergency broadcasts between registered vehicles.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
