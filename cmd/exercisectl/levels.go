package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/spf13/cobra"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Show the curriculum levels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cur, err := curriculum.Load(curriculumFileFlag)
		if err != nil {
			return err
		}
		return printLevels(cmd.OutOrStdout(), cur)
	},
}

func init() {
	rootCmd.AddCommand(levelsCmd)
}

func printLevels(w io.Writer, cur *curriculum.Curriculum) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "LEVEL\tNAME\tBAND\tWORDS\tFOCUS\tKINDS\n")
	for _, l := range cur.Levels() {
		kinds := make([]string, len(l.AllowedKinds))
		for i, k := range l.AllowedKinds {
			kinds[i] = string(k)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d-%d\t%s\t%s\n",
			l.Level, l.Name, l.Band, l.WordRange.Min, l.WordRange.Max,
			strings.Join(l.GrammarFeatures, ","), strings.Join(kinds, ","))
	}
	fmt.Fprintf(tw, "\ncurriculum version %d\n", cur.Version())
	return tw.Flush()
}
