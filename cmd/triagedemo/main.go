// Command triagedemo walks a few issues through time on a controllable clock
// and prints how their priority changes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/jensholdgaard/issue-triage-bot/internal/clock"
	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
)

type step struct {
	advance time.Duration
	want    issue.Priority
}

type scenario struct {
	name     string
	severity issue.Severity
	steps    []step
}

var scenarios = []scenario{
	{
		name:     "fresh bug, then two days later",
		severity: issue.Bug,
		steps: []step{
			{0, issue.Concerning},
			{48 * time.Hour, issue.Immediate},
		},
	},
	{
		name:     "feature left for 100 days",
		severity: issue.Feature,
		steps: []step{
			{100 * 24 * time.Hour, issue.None},
		},
	},
	{
		name:     "bug around the 24h threshold",
		severity: issue.Bug,
		steps: []step{
			{23*time.Hour + 59*time.Minute + 59*time.Second, issue.Concerning},
			{time.Second, issue.Immediate},
		},
	},
	{
		name:     "other severity, no time passed",
		severity: issue.Other,
		steps: []step{
			{0, issue.Immediate},
		},
	},
}

var (
	header = color.New(color.Bold).SprintFunc()
	pass   = color.New(color.FgHiGreen).Sprint("\u2713")
	fail   = color.New(color.FgHiRed).Sprint("\u2717")
)

func main() {
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()
	if *noColor {
		color.NoColor = true
	}

	ok, err := run(os.Stdout, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// run plays every scenario against its own mock clock starting at start and
// reports whether every step produced the expected priority.
func run(w io.Writer, start time.Time) (bool, error) {
	allOK := true
	for idx, sc := range scenarios {
		clk := clock.NewMock(start)
		iss, err := issue.New(sc.severity, clk)
		if err != nil {
			return false, fmt.Errorf("scenario %d: %w", idx+1, err)
		}

		fmt.Fprintf(w, "%s %s (%s)\n", header(fmt.Sprintf("%d.", idx+1)), header(sc.name), sc.severity)
		for _, st := range sc.steps {
			if err := clk.Advance(st.advance); err != nil {
				return false, fmt.Errorf("scenario %d: %w", idx+1, err)
			}
			got := iss.Priority()
			mark := pass
			if got != st.want {
				mark = fail
				allOK = false
			}
			fmt.Fprintf(w, "   %s  age %-12s priority %-11s %s\n",
				mark, iss.Elapsed(), colorPriority(got), clk.Now().Format(time.DateTime))
		}
	}
	return allOK, nil
}

func colorPriority(p issue.Priority) string {
	switch p {
	case issue.Immediate:
		return color.New(color.FgHiRed).Sprint(p)
	case issue.Concerning:
		return color.New(color.FgHiYellow).Sprint(p)
	default:
		return color.New(color.FgHiGreen).Sprint(p)
	}
}
