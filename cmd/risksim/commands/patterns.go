package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"risksim/internal/patterns"
	"risksim/internal/risk"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and maintain the historical risk pattern database",
}

var patternsAddCmd = &cobra.Command{
	Use:   "add <outcome.json>",
	Short: "Record a completed project outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openPatternDB()
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading outcome file: %w", err)
		}
		var outcome risk.ProjectOutcome
		if err := json.Unmarshal(raw, &outcome); err != nil {
			return fmt.Errorf("parsing outcome file %q: %w", args[0], err)
		}
		if err := db.AddProjectOutcome(outcome); err != nil {
			return err
		}
		if err := db.Save(cfg.PatternsDir); err != nil {
			return err
		}
		log.Info().Str("project", outcome.ProjectID).Int("outcomes", db.OutcomeCount()).Msg("Project outcome recorded")
		return nil
	},
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show aggregated risk patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openPatternDB()
		if err != nil {
			return err
		}
		filter := patterns.PatternFilter{ProjectType: patternsProjectType}
		return emitJSON(db.GetRiskPatterns(filter))
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the pattern database to a portable JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openPatternDB()
		if err != nil {
			return err
		}
		data, err := db.Export()
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], data, 0644)
	},
}

var patternsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a previously exported pattern database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading import file: %w", err)
		}
		db := patterns.NewDatabase()
		if err := db.Import(raw); err != nil {
			return err
		}
		if err := db.Save(cfg.PatternsDir); err != nil {
			return err
		}
		log.Info().Int("outcomes", db.OutcomeCount()).Msg("Pattern database imported")
		return nil
	},
}

var patternsCorrelationsCmd = &cobra.Command{
	Use:   "correlations",
	Short: "Analyze category correlations across past projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		if patternsProjectType == "" {
			return fmt.Errorf("--project-type is required")
		}
		db, err := openPatternDB()
		if err != nil {
			return err
		}
		correlations, err := db.AnalyzeRiskCorrelations(patternsProjectType, patternsMinSamples)
		if err != nil {
			return err
		}
		return emitJSON(correlations)
	},
}

var (
	patternsProjectType string
	patternsMinSamples  int
)

func openPatternDB() (*patterns.Database, error) {
	db := patterns.NewDatabase()
	if err := db.Load(cfg.PatternsDir); err != nil {
		return nil, err
	}
	return db, nil
}

func init() {
	patternsCmd.PersistentFlags().StringVar(&patternsProjectType, "project-type", "", "restrict to one project type")
	patternsCorrelationsCmd.Flags().IntVar(&patternsMinSamples, "min-samples", 3, "minimum projects required for a correlation")
	patternsCmd.AddCommand(patternsAddCmd, patternsListCmd, patternsExportCmd, patternsImportCmd, patternsCorrelationsCmd)
	rootCmd.AddCommand(patternsCmd)
}
