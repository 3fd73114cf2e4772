// Package assembler builds standalone files by concatenating an ordered list
// of shared fragments with one variant fragment per output.
//
// A build reads the shared fragments once, then for every variant found in the
// variants directory writes
//
//	header + shared bodies (configured order) + variant body
//
// to <OutputDir>/<Name><Suffix><Extension>. Shared fragments that do not exist
// are skipped; a variant whose own fragment cannot be read fails.
package assembler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/stitch/internal/errors"
	"github.com/conneroisu/stitch/internal/logging"
)

// DirectoryListing enumerates directories. A missing directory is an error
// like any other listing failure.
type DirectoryListing interface {
	ListEntries(dir string) ([]os.FileInfo, error)
}

// FragmentReader reads fragment text. found is false when the fragment does
// not exist; err is reserved for other failures.
type FragmentReader interface {
	ReadText(path string) (text string, found bool, err error)
}

// Source is everything the assembler reads from.
type Source interface {
	DirectoryListing
	FragmentReader
}

// OutputWriter persists assembled documents.
type OutputWriter interface {
	EnsureDirectory(path string) error
	WriteText(path, content string) error
}

// FailurePolicy decides what happens to the remaining variants once one fails.
type FailurePolicy int

const (
	// AbortRemaining stops at the first failed variant; later variants are
	// reported as skipped.
	AbortRemaining FailurePolicy = iota
	// ContinueOnError attempts every variant and reports all failures.
	ContinueOnError
)

// String returns the flag spelling of the policy.
func (p FailurePolicy) String() string {
	if p == ContinueOnError {
		return "continue"
	}
	return "abort"
}

// Job describes one build run.
type Job struct {
	Fragments   FragmentList
	VariantsDir string
	OutputDir   string
	Naming      Naming
	Metadata    BuildMetadata
	Header      HeaderInfo
}

// Assembler runs builds against a source and an output writer.
type Assembler struct {
	src    Source
	out    OutputWriter
	logger logging.Logger
	policy FailurePolicy
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the progress logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPolicy sets the failure policy.
func WithPolicy(p FailurePolicy) Option {
	return func(a *Assembler) { a.policy = p }
}

// New creates an Assembler.
func New(src Source, out OutputWriter, opts ...Option) *Assembler {
	a := &Assembler{
		src:    src,
		out:    out,
		logger: logging.Discard(),
		policy: AbortRemaining,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("assembler")
	return a
}

// Build assembles one document per variant and writes it to job.OutputDir.
//
// The returned error is non-nil only for run-fatal conditions (invalid job,
// unreadable variants directory or shared fragment, output directory that
// cannot be created); nothing is written in that case. Variant failures are
// recorded in the report; see Report.Err.
func (a *Assembler) Build(ctx context.Context, job Job) (*Report, error) {
	if err := validateJob(&job); err != nil {
		return nil, err
	}

	// Enumerate before touching the output so an unreadable source leaves no trace.
	variants, err := a.discover(ctx, &job)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Version: job.Metadata.Version,
		BuiltAt: job.Metadata.BuiltAt(),
		Results: make([]Result, 0, len(variants)),
	}

	shared, err := a.readShared(ctx, job.Fragments, report)
	if err != nil {
		return nil, err
	}

	if err := a.out.EnsureDirectory(job.OutputDir); err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeOutputDirFailed, "failed to create output directory").
			WithPath(job.OutputDir)
	}

	aborted := false
	for _, v := range variants {
		outPath := filepath.Join(job.OutputDir, v.OutputName)
		if aborted || ctx.Err() != nil {
			report.Results = append(report.Results, Result{Variant: v, OutputPath: outPath, Status: StatusSkipped})
			continue
		}

		a.logger.Info(ctx, "Building variant", "variant", v.ID)
		n, err := a.buildOne(v, outPath, shared, &job)
		if err != nil {
			a.logger.Error(ctx, err, "Variant failed", "variant", v.ID)
			report.Results = append(report.Results, Result{Variant: v, OutputPath: outPath, Status: StatusFailed, Err: err})
			if a.policy == AbortRemaining {
				aborted = true
			}
			continue
		}

		a.logger.Info(ctx, "Created output", "variant", v.ID, "output", v.OutputName, "bytes", n)
		report.Results = append(report.Results, Result{Variant: v, OutputPath: outPath, Status: StatusSucceeded, Bytes: n})
	}

	return report, nil
}

// Discover lists the variants Build would produce, without reading or writing
// any fragment.
func (a *Assembler) Discover(ctx context.Context, variantsDir string, n Naming) ([]Variant, error) {
	job := Job{VariantsDir: variantsDir, Naming: n}
	return a.discover(ctx, &job)
}

func (a *Assembler) discover(ctx context.Context, job *Job) ([]Variant, error) {
	entries, err := a.src.ListEntries(job.VariantsDir)
	if err != nil {
		return nil, errors.ErrVariantsUnreadable(job.VariantsDir, err)
	}

	variants := make([]Variant, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !job.Naming.Matches(entry.Name()) {
			a.logger.Debug(ctx, "Ignoring non-variant entry", "entry", entry.Name())
			continue
		}
		variants = append(variants, DeriveVariant(entry.Name(), job.Naming))
	}
	return variants, nil
}

// readShared concatenates the shared fragments in configured order. It runs
// once per build and the result is reused, unmodified, for every variant.
func (a *Assembler) readShared(ctx context.Context, fragments FragmentList, report *Report) (string, error) {
	var b strings.Builder
	for _, path := range fragments {
		text, found, err := a.src.ReadText(path)
		if err != nil {
			return "", errors.NewSourceError(errors.ErrCodeSharedUnreadable, "failed to read shared fragment", err).
				WithPath(path)
		}
		if !found {
			a.logger.Debug(ctx, "Shared fragment absent, skipping", "fragment", path)
			report.SkippedShared = append(report.SkippedShared, path)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func (a *Assembler) buildOne(v Variant, outPath, shared string, job *Job) (int, error) {
	header, err := renderHeader(v, job)
	if err != nil {
		return 0, errors.NewInternalError(errors.ErrCodeInternal, "failed to render header", err).WithVariant(v.ID)
	}

	srcPath := filepath.Join(job.VariantsDir, v.ID)
	body, found, err := a.src.ReadText(srcPath)
	if err != nil {
		return 0, errors.NewFragmentError(errors.ErrCodeFragmentUnreadable, "failed to read variant fragment", err).
			WithVariant(v.ID).
			WithPath(srcPath)
	}
	if !found {
		return 0, errors.ErrFragmentMissing(v.ID, srcPath)
	}

	doc := Assemble(header, shared, body)
	if err := a.out.WriteText(outPath, doc); err != nil {
		return 0, errors.ErrOutputWriteFailed(v.ID, outPath, err)
	}
	return len(doc), nil
}

// Assemble joins a header, the pre-joined shared bodies and a variant body.
func Assemble(header, shared, body string) string {
	var b strings.Builder
	b.Grow(len(header) + len(shared) + len(body))
	b.WriteString(header)
	b.WriteString(shared)
	b.WriteString(body)
	return b.String()
}

func validateJob(job *Job) error {
	if len(job.Fragments) == 0 {
		return errors.ErrFragmentListEmpty()
	}
	for i, f := range job.Fragments {
		if strings.TrimSpace(f) == "" {
			return errors.NewConfigError(errors.ErrCodeConfigInvalid, "shared fragment path is empty").
				WithContext("index", i)
		}
	}
	if strings.TrimSpace(job.Metadata.Version) == "" {
		return errors.NewConfigError(errors.ErrCodeMetadataInvalid, "version string is empty")
	}
	if job.Metadata.Timestamp.IsZero() {
		return errors.NewConfigError(errors.ErrCodeMetadataInvalid, "build timestamp is not set")
	}
	if job.Naming.Extension == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "fragment extension is empty")
	}
	if job.VariantsDir == "" || job.OutputDir == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "variants and output directories are required")
	}
	return nil
}
