// Package report renders build reports for humans (text) and machines
// (json, yaml).
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/stitch/internal/assembler"
)

// Summary is the serialized form of an assembler.Report.
type Summary struct {
	Version       string          `json:"version" yaml:"version"`
	BuiltAt       string          `json:"built_at" yaml:"built_at"`
	OutputDir     string          `json:"output_dir" yaml:"output_dir"`
	Succeeded     int             `json:"succeeded" yaml:"succeeded"`
	Failed        int             `json:"failed" yaml:"failed"`
	Skipped       int             `json:"skipped" yaml:"skipped"`
	SkippedShared []string        `json:"skipped_shared,omitempty" yaml:"skipped_shared,omitempty"`
	Variants      []VariantResult `json:"variants" yaml:"variants"`
}

// VariantResult is one row of a Summary.
type VariantResult struct {
	Variant string `json:"variant" yaml:"variant"`
	Name    string `json:"name" yaml:"name"`
	Output  string `json:"output" yaml:"output"`
	Status  string `json:"status" yaml:"status"`
	Bytes   int    `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summarize converts a report into its serializable form.
func Summarize(r *assembler.Report, outputDir string) Summary {
	s := Summary{
		Version:       r.Version,
		BuiltAt:       r.BuiltAt,
		OutputDir:     outputDir,
		Succeeded:     r.Succeeded(),
		Failed:        r.Failed(),
		Skipped:       r.Skipped(),
		SkippedShared: r.SkippedShared,
		Variants:      make([]VariantResult, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		row := VariantResult{
			Variant: res.Variant.ID,
			Name:    res.Variant.Name,
			Output:  res.OutputPath,
			Status:  string(res.Status),
			Bytes:   res.Bytes,
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		s.Variants = append(s.Variants, row)
	}
	return s
}

// Write renders r to w in the given format: text, json or yaml.
func Write(w io.Writer, format string, r *assembler.Report, outputDir string) error {
	switch format {
	case "", "text":
		return writeText(w, r, outputDir)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Summarize(r, outputDir))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Summarize(r, outputDir)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format: %s (supported: text, json, yaml)", format)
	}
}

func writeText(w io.Writer, r *assembler.Report, outputDir string) error {
	p := &printer{w: w}

	for _, res := range r.Results {
		switch res.Status {
		case assembler.StatusSucceeded:
			p.printf("  ✓ Created %s\n", res.Variant.OutputName)
		case assembler.StatusFailed:
			p.printf("  ✗ %s: %v\n", res.Variant.ID, res.Err)
		case assembler.StatusSkipped:
			p.printf("  - Skipped %s\n", res.Variant.ID)
		}
	}

	p.printf("\n")
	switch {
	case len(r.Results) == 0:
		p.printf("✓ Build complete! No variants found, nothing to do.\n")
	case r.OK():
		p.printf("✓ Build complete! All standalone files are in the %s folder.\n", folder(outputDir))
	default:
		p.printf("✗ Build failed: %d succeeded, %d failed, %d skipped.\n", r.Succeeded(), r.Failed(), r.Skipped())
	}
	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func folder(dir string) string {
	if dir == "" {
		return "output"
	}
	if dir[len(dir)-1] != '/' {
		dir += "/"
	}
	return dir
}
