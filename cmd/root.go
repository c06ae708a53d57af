package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
)

var rootCmd = &cobra.Command{
	Use:   "chaptrix",
	Short: "Track web comics and stitch new chapters into long-strip pages",
	Long: `chaptrix follows web comics, downloads new chapters and stitches their
pages into tall images no higher than a configured limit, archived as CBZ.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is fine
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config files and use defaults, environment and CLI flags")
}

// Root returns the command tree for main to execute.
func Root() *cobra.Command {
	return rootCmd
}
