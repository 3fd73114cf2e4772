package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/stitch/internal/assembler"
	"github.com/conneroisu/stitch/internal/config"
	"github.com/conneroisu/stitch/internal/logging"
	"github.com/conneroisu/stitch/internal/manifest"
	"github.com/conneroisu/stitch/internal/report"
	"github.com/conneroisu/stitch/internal/source"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build a standalone file for every variant",
	Long: `Build one standalone file per variant fragment.

Each output is the generated header, then every shared fragment in the
configured order (missing ones are skipped), then the variant fragment.
The version in the header is read from the project manifest (package.json
by default).

By default the build stops at the first failing variant and reports the
rest as skipped; --keep-going attempts every variant. Any failure makes
the command exit non-zero.

Examples:
  stitch build                        # Build all variants into dist/
  stitch build --output out           # Build to a specific output directory
  stitch build --keep-going           # Attempt every variant even after a failure
  stitch build --report json          # Machine-readable summary on stdout
  stitch build --version-override 2.0.0`,
	RunE: runBuild,
}

var (
	buildOutput          string
	buildKeepGoing       bool
	buildReport          string
	buildReportFile      string
	buildVersionOverride string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory (default from config: dist)")
	buildCmd.Flags().BoolVar(&buildKeepGoing, "keep-going", false, "Continue with remaining variants after a failure")
	buildCmd.Flags().StringVarP(&buildReport, "report", "r", "", "Report format (text, json, yaml)")
	buildCmd.Flags().StringVar(&buildReportFile, "report-file", "", "Also write a JSON report to this file")
	buildCmd.Flags().StringVar(&buildVersionOverride, "version-override", "", "Use this version instead of reading the manifest")

	AddFlagValidation(buildCmd, "report", OneOf("text", "json", "yaml"))
}

// errBuildFailed is returned when at least one variant failed.
type errBuildFailed struct {
	failed, skipped int
}

func (e *errBuildFailed) Error() string {
	return fmt.Sprintf("build failed: %d variant(s) failed, %d skipped", e.failed, e.skipped)
}

func runBuild(cmd *cobra.Command, args []string) error {
	applyBuildFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, err = buildOnce(ctx, cfg, source.OS(), logger, cmd.OutOrStdout())
	return err
}

// applyBuildFlags copies explicitly set build flags over the configuration.
func applyBuildFlags() {
	if buildOutput != "" {
		viper.Set("output.dir", buildOutput)
	}
	if buildKeepGoing {
		viper.Set("build.keep_going", true)
	}
	if buildReport != "" {
		viper.Set("build.report", buildReport)
	}
}

// buildOnce resolves the version, runs the assembler and prints the report.
func buildOnce(ctx context.Context, cfg *config.Config, fs *source.FS, logger logging.Logger, out io.Writer) (*assembler.Report, error) {
	perf := logging.StartOperation(logger, "build")

	version := buildVersionOverride
	if version == "" {
		v, err := manifest.NewReader(fs.Afero(), cfg.Manifest.VersionKey).Version(cfg.Manifest.Path)
		if err != nil {
			perf.EndWithError(ctx, err)
			return nil, err
		}
		version = v
	}

	job := cfg.Job(assembler.NewMetadata(version, clock))
	asm := assembler.New(fs, fs,
		assembler.WithLogger(logger),
		assembler.WithPolicy(cfg.Policy()),
	)

	logger.Info(ctx, "Building standalone files",
		"version", version,
		"variants_dir", job.VariantsDir,
		"output_dir", job.OutputDir,
		"policy", cfg.Policy().String(),
	)

	rep, err := asm.Build(ctx, job)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	if err := report.Write(out, cfg.Build.Report, rep, job.OutputDir); err != nil {
		perf.EndWithError(ctx, err)
		return rep, err
	}
	if buildReportFile != "" {
		if err := writeReportFile(fs, buildReportFile, rep, job.OutputDir); err != nil {
			perf.EndWithError(ctx, err)
			return rep, err
		}
	}

	if !rep.OK() {
		err := &errBuildFailed{failed: rep.Failed(), skipped: rep.Skipped()}
		perf.EndWithError(ctx, rep.Err())
		return rep, err
	}

	perf.End(ctx)
	return rep, nil
}

func writeReportFile(fs *source.FS, path string, rep *assembler.Report, outputDir string) error {
	f, err := fs.Afero().Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := report.Write(f, "json", rep, outputDir); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
