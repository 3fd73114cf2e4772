package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/stitch/internal/config"
	"github.com/conneroisu/stitch/internal/source"
)

const configFileName = ".stitch.yml"

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Write a default .stitch.yml and create the source directories",
	Long: `Initialize a stitch project by writing a configuration file containing
every default, and creating the shared and variants directories it names.
If no directory is provided, initializes in the current directory.

Existing fragment files are never touched. An existing configuration file
is kept unless --force is given.

Examples:
  stitch init                # Initialize in current directory
  stitch init scripts        # Initialize in 'scripts'
  stitch init --force        # Rewrite .stitch.yml with defaults`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}
	return initProject(source.OS(), projectDir, cmd)
}

func initProject(fs *source.FS, projectDir string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg := config.Default()

	fmt.Fprintf(out, "Initializing stitch project in %s\n", projectDir)

	for _, dir := range cfg.WatchDirs() {
		if err := fs.EnsureDirectory(filepath.Join(projectDir, dir)); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(projectDir, configFileName)
	if fs.Exists(configPath) && !initForce {
		fmt.Fprintln(out, "⚠ Configuration file already exists, skipping (use --force to overwrite)")
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString("# stitch configuration file\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := fs.WriteText(configPath, buf.String()); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintln(out, "✓ Project initialized successfully!")
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Put shared fragments in %s\n", filepath.Dir(cfg.Source.Shared[0]))
	fmt.Fprintf(out, "  2. Put one fragment per variant in %s\n", cfg.Source.VariantsDir)
	fmt.Fprintln(out, "  3. stitch build")

	return nil
}
