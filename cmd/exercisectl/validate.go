package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/generator"
	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/pipeline"
	"github.com/cuentos-signos/backend/internal/validation"
	"github.com/spf13/cobra"
)

var (
	validateStoryFlag    string
	validateLevelFlag    int
	validateTitleFlag    string
	validateFinalizeFlag bool
	validateProviderFlag string
	validateJSONFlag     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <exercises.json>",
	Short: "Judge a file of exercises against a story",
	Long: `Read a JSON array of exercises and judge each one against the story.

By default only the verdict is printed. With --finalize the full pipeline
runs: rejected exercises are regenerated and replaced from the fallback
catalog when repair fails. Provider keys are read from the environment.

Exit status is 1 when any exercise is rejected (or passes through
unrepaired with --finalize).`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateStoryFlag, "story", "s", "", "Story text file (required)")
	validateCmd.Flags().IntVarP(&validateLevelFlag, "level", "l", 1, "Curriculum level")
	validateCmd.Flags().StringVarP(&validateTitleFlag, "title", "t", "", "Story title for fallback exercises")
	validateCmd.Flags().BoolVar(&validateFinalizeFlag, "finalize", false, "Run regeneration and fallback")
	validateCmd.Flags().StringVarP(&validateProviderFlag, "provider", "p", "mock", "Generator provider for --finalize (anthropic, gemini, cli, mock)")
	validateCmd.Flags().BoolVar(&validateJSONFlag, "json", false, "Print JSON instead of text")
	validateCmd.MarkFlagRequired("story")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	story, err := os.ReadFile(validateStoryFlag)
	if err != nil {
		return fmt.Errorf("read story: %w", err)
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read exercises: %w", err)
	}
	candidates, err := parseExercises(raw)
	if err != nil {
		return err
	}

	cur, err := curriculum.Load(curriculumFileFlag)
	if err != nil {
		return err
	}
	gate, err := validation.NewGate(analyzer.New(), cur, validation.DefaultScoring())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !validateFinalizeFlag {
		if rejected := judge(out, gate, candidates, string(story), validateLevelFlag, validateJSONFlag); rejected > 0 {
			return fmt.Errorf("%d of %d exercises rejected", rejected, len(candidates))
		}
		return nil
	}

	catalog, err := fallback.Load(catalogFileFlag)
	if err != nil {
		return err
	}
	gen, err := newGenerator(validateProviderFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	p := pipeline.New(gate, gen, catalog, cur, pipeline.Options{}, nil)
	res := p.ValidateAndFinalize(ctx, candidates, string(story), validateLevelFlag, validateTitleFlag)
	if err := printResult(out, res, validateJSONFlag); err != nil {
		return err
	}
	return res.Err()
}

// newGenerator reads provider settings from the environment the server uses.
func newGenerator(provider string) (*generator.Generator, error) {
	return generator.NewFromOptions(generator.Options{
		Provider:        provider,
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		CLIPath:         os.Getenv("CLAUDE_CLI_PATH"),
	}, logger.Nop())
}

func parseExercises(raw []byte) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, fmt.Errorf("parse exercises: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("parse exercises: file has no exercises")
	}
	return candidates, nil
}

// judge prints one verdict per candidate and returns how many were rejected.
func judge(w io.Writer, gate *validation.Gate, candidates []models.Candidate, story string, level int, asJSON bool) int {
	src := gate.Prepare(story)
	rejected := 0
	verdicts := make([]models.CompositeVerdict, len(candidates))
	for i, c := range candidates {
		verdicts[i] = gate.Evaluate(c, src, level)
		if !verdicts[i].Accepted {
			rejected++
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(verdicts)
		return rejected
	}
	for i, v := range verdicts {
		status := "ACCEPTED"
		if !v.Accepted {
			status = "REJECTED"
		}
		fmt.Fprintf(w, "#%d %s %s score=%d (grammar=%d coherence=%d pedagogy=%d)\n",
			i, candidates[i].Kind(), status, v.Score,
			v.PerDimension.Grammar, v.PerDimension.Coherence, v.PerDimension.Pedagogical)
		for _, is := range validation.Issues(v) {
			fmt.Fprintf(w, "    %s\n", is)
		}
		if len(v.Alignment) > 0 {
			fmt.Fprintf(w, "    aligned: %s\n", strings.Join(v.Alignment, "; "))
		}
	}
	return rejected
}

func printResult(w io.Writer, res *pipeline.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, warn := range res.PassageWarnings {
		fmt.Fprintf(w, "passage: %s\n", warn)
	}
	for _, o := range res.Outcomes {
		fmt.Fprintf(w, "#%d %s %s after %d attempt(s)\n", o.Index, o.Kind, o.State, len(o.Attempts))
		if o.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", o.Error)
		}
	}
	counts := res.Counts()
	fmt.Fprintf(w, "\naccepted=%d fallback=%d passthrough=%d\n",
		counts[models.StateAccepted], counts[models.StateFallbackApplied], counts[models.StatePassthroughOriginal])
	return nil
}
