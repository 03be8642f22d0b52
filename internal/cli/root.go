package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Relationship signal bus for account and project health",
	Long:  "Pulse turns raw observations into decaying, confidence-scored signals on accounts, projects, people, and meetings, and derives new signals across the relationship graph.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(calloutsCmd)
	rootCmd.AddCommand(bridgeCmd)
}

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("PULSE_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}
