package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jobhelper/internal/shared/config"
	"jobhelper/internal/shared/telemetry"
)

var (
	noColor bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "jobhelper",
	Short: "Answer job application questions from your résumé and the company website",
	Long: `jobhelper reads a résumé PDF, screenshots of application questions and a
company website, asks a multi-modal model to answer every question, and reveals
the answers one character at a time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return telemetry.Init(cfg.Env)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
