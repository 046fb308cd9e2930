// Package report folds per-dataset fetch and validation outcomes into run
// reports: the collection report written after a run and the status report
// produced by the availability check. Aggregation is pure — no I/O — so the
// severity policy is testable in isolation from the network layer.
package report

import (
	"fmt"

	"github.com/robertsoden/ontario-environmental-data/internal/validate"
)

// FetchStatus is the per-dataset outcome of a collection attempt or
// availability check.
type FetchStatus string

const (
	StatusSuccess FetchStatus = "success"
	StatusNoData  FetchStatus = "no_data"
	StatusError   FetchStatus = "error"
	StatusSkipped FetchStatus = "skipped"
	StatusStatic  FetchStatus = "static"
	StatusMissing FetchStatus = "missing"
)

// Verdict is the overall severity of a run.
type Verdict string

const (
	VerdictOK              Verdict = "ok"
	VerdictOKWithWarnings  Verdict = "ok_with_warnings"
	VerdictDegraded        Verdict = "degraded"
	VerdictCriticalFailure Verdict = "critical_failure"
)

// Entry is one dataset's contribution to a run.
type Entry struct {
	ID         string
	Critical   bool
	Status     FetchStatus
	Err        string
	Validation *validate.Outcome // nil when the file was never validated
}

// Summary is the aggregated severity classification for a run.
type Summary struct {
	Verdict        Verdict
	CriticalErrors []string
	Errors         []string
	Warnings       []string
}

// Aggregate classifies the entries of one run. A dataset is a critical error
// when it is marked critical and either its fetch failed or its validation
// did; any fetch or validation failure is a plain error regardless of
// criticality; validation warnings on otherwise-healthy datasets land in the
// warnings bucket.
func Aggregate(entries []Entry) Summary {
	var s Summary

	for _, e := range entries {
		fetchFailed := e.Status == StatusError || e.Status == StatusMissing
		validationFailed := e.Validation != nil && !e.Validation.Success

		if fetchFailed || validationFailed {
			msgs := failureMessages(e)
			s.Errors = append(s.Errors, msgs...)
			if e.Critical {
				s.CriticalErrors = append(s.CriticalErrors, msgs...)
			}
			continue
		}

		if e.Status == StatusNoData {
			s.Warnings = append(s.Warnings, fmt.Sprintf("%s: no data returned (may be expected)", e.ID))
		}
		if e.Validation != nil {
			for _, w := range e.Validation.Warnings {
				s.Warnings = append(s.Warnings, fmt.Sprintf("%s: %s", e.ID, w))
			}
		}
	}

	switch {
	case len(s.CriticalErrors) > 0:
		s.Verdict = VerdictCriticalFailure
	case len(s.Errors) > 0:
		s.Verdict = VerdictDegraded
	case len(s.Warnings) > 0:
		s.Verdict = VerdictOKWithWarnings
	default:
		s.Verdict = VerdictOK
	}
	return s
}

func failureMessages(e Entry) []string {
	var msgs []string
	switch e.Status {
	case StatusMissing:
		desc := e.Err
		if desc == "" {
			desc = "MISSING"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.ID, desc))
	case StatusError:
		desc := e.Err
		if desc == "" {
			desc = "unknown error"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.ID, desc))
	}
	if e.Validation != nil {
		for _, ve := range e.Validation.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.ID, ve))
		}
	}
	return msgs
}

// ExitCode maps a verdict onto the strict CLI exit scheme: 0 valid,
// 1 critical or plain failures, 2 warnings only.
func ExitCode(v Verdict) int {
	switch v {
	case VerdictCriticalFailure, VerdictDegraded:
		return 1
	case VerdictOKWithWarnings:
		return 2
	default:
		return 0
	}
}
