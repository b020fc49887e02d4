package analyzer

import (
	"github.com/thoth-station/build-analysers/pkg/model"
)

// Summarize counts row outcomes. Event count, handler and anomalies come
// from the earlier stages.
func Summarize(rows []model.DependencyRow, events int, handler string, anomalies model.Anomalies) model.Summary {
	s := model.Summary{
		Handler:     handler,
		TotalEvents: events,
		TotalRows:   len(rows),
		Anomalies:   anomalies,
	}
	for _, r := range rows {
		switch r.Outcome {
		case model.OutcomeSuccess:
			s.Installed++
		case model.OutcomeFailure:
			s.Failed++
		default:
			s.Unknown++
		}
	}
	return s
}

// Assemble combines the stage outputs into a report. Candidates are left
// out when includeCandidates is false.
func Assemble(branch model.FailedBranch, candidates []model.Candidate, summary model.Summary, includeCandidates bool) model.Report {
	report := model.Report{
		Branch:  branch,
		Summary: summary,
	}
	if includeCandidates {
		report.Candidates = candidates
	}
	if branch.Empty() {
		report.Warnings = append(report.Warnings, model.WarningEmptyResult)
	}
	return report
}
