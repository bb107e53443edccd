package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/spf13/cobra"
)

var (
	catalogLevelFlag int
	catalogKindFlag  string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List or look up fallback exercises",
	Long: `Without flags, list every fallback entry. With --level and --kind, show
the entry the pipeline would use for that slot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := fallback.Load(catalogFileFlag)
		if err != nil {
			return err
		}
		if catalogKindFlag == "" {
			return printCatalog(cmd.OutOrStdout(), c)
		}
		return printLookup(cmd.OutOrStdout(), c, catalogLevelFlag, models.Kind(catalogKindFlag))
	},
}

func init() {
	catalogCmd.Flags().IntVarP(&catalogLevelFlag, "level", "l", 1, "Curriculum level to look up")
	catalogCmd.Flags().StringVarP(&catalogKindFlag, "kind", "k", "", "Exercise kind to look up")
	rootCmd.AddCommand(catalogCmd)
}

func printCatalog(w io.Writer, c *fallback.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "KIND\tLEVEL\tTITLE\n")
	for _, e := range c.Entries() {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Kind, e.Level, e.Candidate.Title)
	}
	if missing := c.Missing(); len(missing) > 0 {
		fmt.Fprintf(tw, "\nmissing kinds: %v\n", missing)
	}
	return tw.Flush()
}

func printLookup(w io.Writer, c *fallback.Catalog, level int, kind models.Kind) error {
	if !models.ValidKinds[kind] {
		return fmt.Errorf("unknown kind %q", kind)
	}
	e, err := c.Lookup(level, kind)
	if err != nil {
		return err
	}
	if e.Level != level {
		fmt.Fprintf(w, "no entry at level %d, nearest is level %d\n", level, e.Level)
	}
	out, err := json.MarshalIndent(e.Candidate, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}
