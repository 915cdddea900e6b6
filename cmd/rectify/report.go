package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"rectify/internal/driver"
	"rectify/internal/proposal"
	"rectify/internal/trace"
)

var (
	committedColor = color.New(color.FgGreen, color.Bold)
	proposedColor  = color.New(color.FgCyan, color.Bold)
	recoveredColor = color.New(color.FgYellow, color.Bold)
	failedColor    = color.New(color.FgRed, color.Bold)
	skippedColor   = color.New(color.Faint)
	detailColor    = color.New(color.Faint)
)

func outcomeColor(o driver.Outcome) *color.Color {
	switch o {
	case driver.Committed:
		return committedColor
	case driver.Proposed:
		return proposedColor
	case driver.Recovered:
		return recoveredColor
	case driver.Failed:
		return failedColor
	default:
		return skippedColor
	}
}

// displayPath shortens path relative to root when it is inside it.
func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func describeProposal(p *proposal.Proposal) string {
	return fmt.Sprintf("%s (%.2f, %s)", p.Title(), p.Confidence, p.Safety)
}

// printReport writes one line per entry and a summary.
func printReport(out io.Writer, root string, rep *driver.Report, verbose bool) {
	for _, e := range rep.Entries {
		if e.Outcome == driver.Skipped && !verbose {
			continue
		}
		loc := fmt.Sprintf("%s:%d:%d", displayPath(root, e.Path), e.Diagnostic.Location.Line, e.Diagnostic.Location.Column)
		code := e.Diagnostic.Code
		if code == "" {
			code = "-"
		}
		var what string
		switch {
		case e.Proposal != nil:
			what = describeProposal(e.Proposal)
			if e.Proposal.ID != "" {
				what += " [" + e.Proposal.ID + "]"
			}
		case e.Skip != driver.SkipNone:
			what = e.Skip.String()
		default:
			what = e.Diagnostic.Message
		}
		fmt.Fprintf(out, "%s %s %s %s\n", outcomeColor(e.Outcome).Sprintf("%-9s", e.Outcome), loc, code, what)

		var details []string
		if e.Detail != "" {
			details = append(details, e.Detail)
		}
		if e.Err != nil && e.Outcome == driver.Failed {
			details = append(details, e.Err.Error())
		}
		if e.Result != nil && e.Result.Backup != "" && e.Outcome != driver.Committed {
			details = append(details, "backup "+displayPath(root, e.Result.Backup))
		}
		for _, d := range details {
			fmt.Fprintf(out, "          %s\n", detailColor.Sprint(d))
		}
	}

	summary := rep.Summary()
	if rep.Iterations > 1 {
		summary += fmt.Sprintf(" in %d passes", rep.Iterations)
	}
	fmt.Fprintln(out, summary)
	if rep.Remaining > 0 && !rep.DryRun {
		fmt.Fprintf(out, "%d diagnostic(s) remain\n", rep.Remaining)
	}
}

// dumpFailureTraces writes what the trace ring kept about each file whose
// fix failed or was rolled back. Nothing is written without a ring.
func dumpFailureTraces(out io.Writer, tr trace.Tracer, root string, rep *driver.Report) {
	ring, ok := trace.RingOf(tr)
	if !ok || rep == nil {
		return
	}
	dumped := make(map[string]bool)
	for _, e := range rep.Entries {
		if (e.Outcome != driver.Failed && e.Outcome != driver.Recovered) || dumped[e.Path] {
			continue
		}
		dumped[e.Path] = true
		events := ring.Events(trace.Subject{File: e.Path})
		if len(events) == 0 {
			continue
		}
		fmt.Fprintf(out, "trace of %s (%d events):\n", displayPath(root, e.Path), len(events))
		for i := range events {
			if _, err := out.Write(trace.FormatEvent(&events[i], trace.FormatText)); err != nil {
				return
			}
		}
	}
}

// printProposals lists every ranked proposal of one diagnostic.
func printProposals(out io.Writer, ps []proposal.Proposal) {
	if len(ps) == 0 {
		fmt.Fprintln(out, "no proposals")
		return
	}
	for i := range ps {
		p := &ps[i]
		fmt.Fprintf(out, "%d. %s [%s]\n", i+1, describeProposal(p), p.ID)
		if p.Original != "" || p.Corrected != "" {
			fmt.Fprintf(out, "   %s %s\n", failedColor.Sprint("-"), p.Original)
			fmt.Fprintf(out, "   %s %s\n", committedColor.Sprint("+"), p.Corrected)
		}
		if w := p.Metadata["warnings"]; w != "" {
			fmt.Fprintf(out, "   %s\n", detailColor.Sprint("warning: "+w))
		}
	}
}
