package assembler

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/stitch/internal/errors"
	"github.com/conneroisu/stitch/internal/source"
)

var buildTime = time.Date(2024, 3, 9, 14, 5, 6, 789_000_000, time.UTC)

func newJob(fragments ...string) Job {
	return Job{
		Fragments:   fragments,
		VariantsDir: "src/workbooks",
		OutputDir:   "dist",
		Naming:      Naming{Extension: ".frag", Suffix: "_standalone"},
		Metadata:    BuildMetadata{Version: "1.4.0", Timestamp: buildTime},
		Header:      DefaultHeaderInfo(),
	}
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// bodyOf strips the generated header from a document.
func bodyOf(t *testing.T, doc string) string {
	t.Helper()
	idx := strings.Index(doc, " */\n\n")
	require.GreaterOrEqual(t, idx, 0, "document has no header terminator")
	return doc[idx+len(" */\n\n"):]
}

func TestBuildScenarioMissingSharedFragment(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"src/common/A.frag":     "common-A",
		"src/workbooks/V1.frag": "variant-one",
		"src/workbooks/V2.frag": "variant-two",
	})
	fs := source.New(mem)

	report, err := New(fs, fs).Build(context.Background(), newJob("src/common/A.frag", "src/common/B.frag"))
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.True(t, report.OK())
	assert.Equal(t, []string{"src/common/B.frag"}, report.SkippedShared)

	v1 := readFile(t, mem, "dist/V1_standalone.frag")
	v2 := readFile(t, mem, "dist/V2_standalone.frag")

	assert.Equal(t, "common-A\n\nvariant-one", bodyOf(t, v1))
	assert.Equal(t, "common-A\n\nvariant-two", bodyOf(t, v2))
	assert.Contains(t, v1, "@name V1\n")
	assert.Contains(t, v2, "@name V2\n")
}

func TestBuildHeader(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"src/common/A.frag":         "a",
		"src/workbooks/Budget.frag": "b",
	})
	fs := source.New(mem)

	_, err := New(fs, fs).Build(context.Background(), newJob("src/common/A.frag"))
	require.NoError(t, err)

	want := strings.Join([]string{
		"/**",
		" * @name Budget",
		" * @version 1.4.0",
		" * @built 2024-03-09T14:05:06.789Z",
		" * @description Standalone script. Do not edit directly - edit source files in src/ folder.",
		" * ",
		" * This file is auto-generated from:",
		" * - Common utilities (src/common/*.gs)",
		" * - Workbook-specific code (src/workbooks/Budget.frag)",
		" * ",
		" * To make changes:",
		" * 1. Edit source files in src/ folder",
		" * 2. Run: stitch build",
		" * 3. Copy the generated file from dist/ folder to Google Apps Script",
		" */",
		"",
		"a",
		"",
		"b",
	}, "\n")
	got := readFile(t, mem, "dist/Budget_standalone.frag")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOrderFollowsFragmentList(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"src/common/z.frag":    "Z",
		"src/common/a.frag":    "A",
		"src/common/m.frag":    "M",
		"src/workbooks/V.frag": "V",
	})
	fs := source.New(mem)

	_, err := New(fs, fs).Build(context.Background(),
		newJob("src/common/z.frag", "src/common/a.frag", "src/common/m.frag"))
	require.NoError(t, err)

	assert.Equal(t, "Z\n\nA\n\nM\n\nV", bodyOf(t, readFile(t, mem, "dist/V_standalone.frag")))
}

func TestBuildIsDeterministicExceptTimestamp(t *testing.T) {
	files := map[string]string{
		"src/common/a.frag":     "shared\n",
		"src/workbooks/X.frag":  "x\n",
		"src/workbooks/Y.frag":  "y\n",
		"src/workbooks/README":  "not a variant",
		"src/workbooks/Z.frag~": "editor backup",
	}

	run := func(ts time.Time) map[string]string {
		mem := afero.NewMemMapFs()
		writeFiles(t, mem, files)
		fs := source.New(mem)
		job := newJob("src/common/a.frag")
		job.Metadata.Timestamp = ts

		_, err := New(fs, fs).Build(context.Background(), job)
		require.NoError(t, err)

		entries, err := afero.ReadDir(mem, "dist")
		require.NoError(t, err)
		out := make(map[string]string)
		for _, e := range entries {
			out[e.Name()] = readFile(t, mem, filepath.Join("dist", e.Name()))
		}
		return out
	}

	first := run(buildTime)
	second := run(buildTime.Add(90 * time.Minute))

	require.Len(t, first, 2)
	assert.Equal(t, []string{"X_standalone.frag", "Y_standalone.frag"}, sortedKeys(first))

	for name, doc := range first {
		other := second[name]
		assert.NotEqual(t, doc, other)
		normalize := func(s string) string {
			return strings.NewReplacer(
				buildTime.Format(TimestampLayout), "<ts>",
				buildTime.Add(90*time.Minute).Format(TimestampLayout), "<ts>",
			).Replace(s)
		}
		assert.Equal(t, normalize(doc), normalize(other), name)
	}
}

func TestBuildEmptyVariantsDirectory(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("src/workbooks", 0755))
	fs := source.New(mem)

	report, err := New(fs, fs).Build(context.Background(), newJob("src/common/a.frag"))
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())

	entries, err := afero.ReadDir(mem, "dist")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildLeavesUnrelatedOutputFiles(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"src/workbooks/V.frag":   "new",
		"dist/notes.txt":         "keep me",
		"dist/Old_standalone.gs": "stale but unrelated",
		"dist/V_standalone.frag": "previous build",
	})
	fs := source.New(mem)

	_, err := New(fs, fs).Build(context.Background(), newJob("src/common/a.frag"))
	require.NoError(t, err)

	assert.Equal(t, "keep me", readFile(t, mem, "dist/notes.txt"))
	assert.Equal(t, "stale but unrelated", readFile(t, mem, "dist/Old_standalone.gs"))
	assert.Equal(t, "new", bodyOf(t, readFile(t, mem, "dist/V_standalone.frag")))
}

func TestBuildFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		job  func() Job
		code string
	}{
		{
			name: "empty fragment list",
			job:  func() Job { return newJob() },
			code: errors.ErrCodeFragmentListEmpty,
		},
		{
			name: "blank fragment path",
			job:  func() Job { return newJob("src/common/a.frag", " ") },
			code: errors.ErrCodeConfigInvalid,
		},
		{
			name: "empty version",
			job: func() Job {
				j := newJob("a.frag")
				j.Metadata.Version = ""
				return j
			},
			code: errors.ErrCodeMetadataInvalid,
		},
		{
			name: "zero timestamp",
			job: func() Job {
				j := newJob("a.frag")
				j.Metadata.Timestamp = time.Time{}
				return j
			},
			code: errors.ErrCodeMetadataInvalid,
		},
		{
			name: "variants directory missing",
			job: func() Job {
				j := newJob("a.frag")
				j.VariantsDir = "src/nowhere"
				return j
			},
			code: errors.ErrCodeVariantsUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := afero.NewMemMapFs()
			require.NoError(t, mem.MkdirAll("src/workbooks", 0755))
			fs := source.New(mem)

			report, err := New(fs, fs).Build(context.Background(), tt.job())
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.True(t, errors.IsFatal(err))

			exists, _ := afero.DirExists(mem, "dist")
			assert.False(t, exists, "fatal errors must not create output")
		})
	}
}

// faultySource hides selected paths and fails reads of others.
type faultySource struct {
	*source.FS
	hidden  map[string]bool
	broken  map[string]bool
	listErr error
}

func (f *faultySource) ReadText(path string) (string, bool, error) {
	if f.hidden[path] {
		return "", false, nil
	}
	if f.broken[path] {
		return "", false, fmt.Errorf("read %s: input/output error", path)
	}
	return f.FS.ReadText(path)
}

func (f *faultySource) ListEntries(dir string) ([]os.FileInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.FS.ListEntries(dir)
}

// faultyWriter fails writes whose base name is listed.
type faultyWriter struct {
	*source.FS
	fail map[string]bool
}

func (w *faultyWriter) WriteText(path, content string) error {
	if w.fail[filepath.Base(path)] {
		return fmt.Errorf("write %s: no space left on device", path)
	}
	return w.FS.WriteText(path, content)
}

func threeVariants(t *testing.T) afero.Fs {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"src/common/a.frag":    "shared",
		"src/workbooks/A.frag": "a",
		"src/workbooks/B.frag": "b",
		"src/workbooks/C.frag": "c",
	})
	return mem
}

func TestBuildMissingVariantFragment(t *testing.T) {
	mem := threeVariants(t)
	src := &faultySource{FS: source.New(mem), hidden: map[string]bool{
		filepath.Join("src/workbooks", "B.frag"): true,
	}}

	t.Run("abort remaining", func(t *testing.T) {
		out := source.New(afero.NewMemMapFs())
		report, err := New(src, out).Build(context.Background(), newJob("src/common/a.frag"))
		require.NoError(t, err)

		statuses := []Status{report.Results[0].Status, report.Results[1].Status, report.Results[2].Status}
		assert.Equal(t, []Status{StatusSucceeded, StatusFailed, StatusSkipped}, statuses)
		assert.False(t, report.OK())
		assert.ErrorIs(t, report.Results[1].Err, errors.FragmentMissing)
		assert.ErrorIs(t, report.Err(), errors.FragmentMissing)

		assert.True(t, out.Exists("dist/A_standalone.frag"))
		assert.False(t, out.Exists("dist/B_standalone.frag"))
		assert.False(t, out.Exists("dist/C_standalone.frag"))
	})

	t.Run("continue on error", func(t *testing.T) {
		out := source.New(afero.NewMemMapFs())
		report, err := New(src, out, WithPolicy(ContinueOnError)).
			Build(context.Background(), newJob("src/common/a.frag"))
		require.NoError(t, err)

		assert.Equal(t, 2, report.Succeeded())
		assert.Equal(t, 1, report.Failed())
		assert.Equal(t, 0, report.Skipped())

		res, ok := report.Lookup("B.frag")
		require.True(t, ok)
		assert.ErrorIs(t, res.Err, errors.FragmentMissing)
		assert.False(t, out.Exists("dist/B_standalone.frag"))
		assert.True(t, out.Exists("dist/C_standalone.frag"))
	})
}

func TestBuildUnreadableVariantFragment(t *testing.T) {
	mem := threeVariants(t)
	src := &faultySource{FS: source.New(mem), broken: map[string]bool{
		filepath.Join("src/workbooks", "A.frag"): true,
	}}

	report, err := New(src, src.FS).Build(context.Background(), newJob("src/common/a.frag"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Equal(t, errors.ErrCodeFragmentUnreadable, errors.CodeOf(report.Results[0].Err))
	assert.Equal(t, 2, report.Skipped())
}

func TestBuildUnreadableSharedFragmentIsFatal(t *testing.T) {
	mem := threeVariants(t)
	src := &faultySource{FS: source.New(mem), broken: map[string]bool{"src/common/a.frag": true}}

	report, err := New(src, src.FS).Build(context.Background(), newJob("src/common/a.frag"))
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.IsSourceError(err))
	assert.Equal(t, errors.ErrCodeSharedUnreadable, errors.CodeOf(err))
}

func TestBuildUnlistableVariantsDirectory(t *testing.T) {
	mem := threeVariants(t)
	src := &faultySource{FS: source.New(mem), listErr: &iofs.PathError{Op: "open", Path: "src/workbooks", Err: iofs.ErrPermission}}

	_, err := New(src, src.FS).Build(context.Background(), newJob("src/common/a.frag"))
	assert.ErrorIs(t, err, errors.VariantsUnreadable)
	assert.ErrorIs(t, err, iofs.ErrPermission)
	assert.NotErrorIs(t, err, iofs.ErrNotExist)
}

func TestBuildMissingVariantsDirectoryKeepsCause(t *testing.T) {
	fs := source.New(afero.NewMemMapFs())
	job := newJob("src/common/a.frag")

	_, err := New(fs, fs).Build(context.Background(), job)
	assert.ErrorIs(t, err, errors.VariantsUnreadable)
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}

func TestBuildWriteFailure(t *testing.T) {
	mem := threeVariants(t)
	fs := source.New(mem)
	out := &faultyWriter{FS: fs, fail: map[string]bool{"A_standalone.frag": true}}

	report, err := New(fs, out, WithPolicy(ContinueOnError)).Build(context.Background(), newJob("src/common/a.frag"))
	require.NoError(t, err)

	res, ok := report.Lookup("A.frag")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, errors.OutputWriteFailed)
	assert.Contains(t, res.Err.Error(), "no space left on device")
	assert.Equal(t, 2, report.Succeeded())
}

func TestBuildOutputDirectoryFailure(t *testing.T) {
	mem := threeVariants(t)
	src := source.New(mem)
	out := source.New(afero.NewReadOnlyFs(afero.NewMemMapFs()))

	_, err := New(src, out).Build(context.Background(), newJob("src/common/a.frag"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeOutputDirFailed, errors.CodeOf(err))
}

func TestBuildCancelledContextSkipsVariants(t *testing.T) {
	mem := threeVariants(t)
	fs := source.New(mem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(fs, fs).Build(ctx, newJob("src/common/a.frag"))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Skipped())
	assert.False(t, fs.Exists("dist/A_standalone.frag"))
}

func TestDiscover(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"src/workbooks/Sales.gs":       "s",
		"src/workbooks/Inventory.gs":   "i",
		"src/workbooks/notes.md":       "n",
		"src/workbooks/.gs":            "bare extension",
		"src/workbooks/nested/Deep.gs": "d",
		"src/workbooks/Archive.gs.bak": "b",
	})
	fs := source.New(mem)

	variants, err := New(fs, fs).Discover(context.Background(), "src/workbooks", DefaultNaming())
	require.NoError(t, err)

	want := []Variant{
		{ID: "Inventory.gs", Name: "Inventory", OutputName: "Inventory_standalone.gs"},
		{ID: "Sales.gs", Name: "Sales", OutputName: "Sales_standalone.gs"},
	}
	assert.Equal(t, want, variants)
}

func TestDeriveVariant(t *testing.T) {
	tests := []struct {
		id   string
		want Variant
	}{
		{"Budget.gs", Variant{ID: "Budget.gs", Name: "Budget", OutputName: "Budget_standalone.gs"}},
		{"a.gs.gs", Variant{ID: "a.gs.gs", Name: "a.gs", OutputName: "a.gs_standalone.gs"}},
		{"my.gsheet.gs", Variant{ID: "my.gsheet.gs", Name: "my.gsheet", OutputName: "my.gsheet_standalone.gs"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveVariant(tt.id, DefaultNaming()))
		})
	}
}

func TestNewMetadataReadsClockOnce(t *testing.T) {
	clock := &countingClock{t: buildTime}
	meta := NewMetadata("2.0.0", clock)

	assert.Equal(t, 1, clock.calls)
	assert.Equal(t, "2024-03-09T14:05:06.789Z", meta.BuiltAt())
	assert.Equal(t, buildTime, NewMetadata("x", FixedClock(buildTime)).Timestamp)
}

type countingClock struct {
	t     time.Time
	calls int
}

func (c *countingClock) Now() time.Time {
	c.calls++
	return c.t
}

func TestFailurePolicyString(t *testing.T) {
	assert.Equal(t, "abort", AbortRemaining.String())
	assert.Equal(t, "continue", ContinueOnError.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
