package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "exercisectl",
	Short: "Inspect and validate story exercises offline",
	Long: `exercisectl runs the exercise validation pipeline without the HTTP
server.

Commands:
  validate    Judge a file of exercises against a story
  levels      Show the curriculum levels
  catalog     List or look up fallback exercises
  token       Issue an API bearer token
  migrate     Apply database migrations

Examples:
  exercisectl validate exercises.json --story cuento.txt --level 2
  exercisectl validate exercises.json --story cuento.txt --level 2 --finalize --provider mock
  exercisectl catalog --level 4 --kind drag_words`,
	SilenceUsage: true,
}

var (
	curriculumFileFlag string
	catalogFileFlag    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&curriculumFileFlag, "curriculum", "", "Curriculum YAML (default: embedded)")
	rootCmd.PersistentFlags().StringVar(&catalogFileFlag, "catalog", "", "Fallback catalog YAML (default: embedded)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
