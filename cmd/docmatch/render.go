package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docmatch/internal/attributes"
	"docmatch/internal/merge"
	"docmatch/internal/reconcile"
)

// writeSummary prints the counts of a run followed by its pairs, orphans and
// failures.
func writeSummary(out io.Writer, s *reconcile.Summary, colorize bool) {
	title := fmt.Sprintf("Run %s (%s)", shortID(s.RunID), s.Pipeline)
	if s.DryRun {
		title += " [dry run]"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(s.Status), string(s.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Documents", statusInfo,
		fmt.Sprintf("%d primaries, %d supports", s.Primaries, s.Supports), colorize))
	fmt.Fprintln(out, renderStatusLine("Matched", statusInfo, strconv.Itoa(s.Matched), colorize))
	fmt.Fprintln(out, renderStatusLine("Merged", countKind(s.MergeFailures),
		fmt.Sprintf("%d ok, %d failed", s.Merged, s.MergeFailures), colorize))
	fmt.Fprintln(out, renderStatusLine("Orphans", countKind(s.RoutingFailures),
		fmt.Sprintf("%d primaries, %d supports; %d copied (%d already held), %d failed",
			s.UnmatchedPrimaries, s.UnmatchedSupports, s.OrphansCopied, s.OrphansReused, s.RoutingFailures), colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, s.Duration().Round(time.Millisecond).String(), colorize))

	if len(s.Pairs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderPairs(s.Pairs))
	}
	if len(s.Orphans) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderOrphans(s.Orphans))
	}
	if len(s.Failures) > 0 {
		fmt.Fprintln(out)
		for _, f := range s.Failures {
			fmt.Fprintln(out, renderStatusLine(f.Stage, statusError,
				strings.Join(f.Documents, " + ")+": "+f.Message, colorize))
		}
	}
}

func renderPairs(pairs []reconcile.PairResult) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		output := filepath.Base(p.Output)
		if p.Error != "" {
			output = "FAILED: " + p.Error
		}
		rows = append(rows, []string{p.Primary, p.Support, strconv.Itoa(p.Score), strings.Join(p.Satisfied, "\n"), output})
	}
	return renderTable(
		[]string{"Primary", "Support", "Score", "Criteria", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func renderOrphans(orphans []reconcile.OrphanResult) string {
	rows := make([][]string, 0, len(orphans))
	for _, o := range orphans {
		target := filepath.Base(o.Target)
		switch {
		case o.Error != "":
			target = "FAILED: " + o.Error
		case o.Target == "":
			target = "-"
		case o.Reused:
			target += " (already held)"
		}
		rows = append(rows, []string{o.Identifier, o.Side, target})
	}
	return renderTable([]string{"Orphan", "Side", "Holding copy"}, rows, nil)
}

func renderRecords(records []attributes.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		date := "-"
		if r.HasDate() {
			date = r.Date.String()
		}
		pages := "?"
		if n, err := merge.PageCount(r.Source); err == nil {
			pages = strconv.Itoa(n)
		}
		rows = append(rows, []string{
			r.Identifier,
			pages,
			date,
			joinOrDash(r.AmountKeys()),
			joinOrDash(r.Codes),
			joinOrDash(r.OtherNumbers),
			joinOrDash(r.Names),
		})
	}
	return renderTable([]string{"Document", "Pages", "Date", "Amounts", "Codes", "Other numbers", "Names"}, rows, nil)
}

func renderRuns(runs []reconcile.Summary) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := string(r.Status)
		if r.DryRun {
			status += " (dry)"
		}
		rows = append(rows, []string{
			shortID(r.RunID),
			r.Pipeline,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			strconv.Itoa(r.Matched),
			strconv.Itoa(r.Merged),
			strconv.Itoa(r.Orphaned()),
			strconv.Itoa(r.Errored()),
		})
	}
	return renderTable(
		[]string{"Run", "Pipeline", "Started", "Status", "Matched", "Merged", "Orphans", "Errors"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func countKind(failures int) statusKind {
	if failures > 0 {
		return statusWarn
	}
	return statusOK
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
