package assembler

import (
	"errors"
)

// Status is the outcome of one variant in a build.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusSkipped marks variants not attempted because an earlier variant
	// failed under the AbortRemaining policy.
	StatusSkipped Status = "skipped"
)

// Result records what happened to one variant.
type Result struct {
	Variant    Variant
	OutputPath string
	Status     Status
	Err        error
	Bytes      int
}

// Report is the per-run summary returned by Build.
type Report struct {
	Version string
	BuiltAt string
	Results []Result
	// SkippedShared lists configured shared fragments that were absent.
	// Absent shared fragments are allowed and are not failures.
	SkippedShared []string
}

// Succeeded returns the number of variants written.
func (r *Report) Succeeded() int { return r.count(StatusSucceeded) }

// Failed returns the number of variants that failed.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Skipped returns the number of variants never attempted.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

// OK reports whether every variant succeeded. An empty report is OK.
func (r *Report) OK() bool {
	return r.Failed() == 0 && r.Skipped() == 0
}

// Err joins the per-variant errors, or returns nil when the build succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the result for the variant with the given identifier.
func (r *Report) Lookup(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.Variant.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

func (r *Report) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}
