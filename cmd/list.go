package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/stitch/internal/assembler"
	"github.com/conneroisu/stitch/internal/config"
	"github.com/conneroisu/stitch/internal/source"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List discovered variants and their output names",
	Long: `List the variant fragments found in the variants directory together
with the file each one would be built into. Nothing is read or written.

Examples:
  stitch list                    # Table output
  stitch list -f json            # Output as JSON
  stitch list --format yaml      # Output as YAML`,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, json, yaml)")
	AddFlagValidation(listCmd, "format", OneOf("table", "json", "yaml"))
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fs := source.OS()
	variants, err := assembler.New(fs, fs).Discover(ctx, cfg.Source.VariantsDir, cfg.Naming())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch listFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(variants)
	case "yaml":
		return yaml.NewEncoder(out).Encode(variants)
	case "table":
		if len(variants) == 0 {
			fmt.Fprintf(out, "No variants found in %s\n", cfg.Source.VariantsDir)
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VARIANT\tNAME\tOUTPUT")
		for _, v := range variants {
			fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Name, v.OutputName)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", listFormat)
	}
}
