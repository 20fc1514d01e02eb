package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// maxTraceLine bounds a single JSONL record. Spans and builtin data keep
// real events far below it.
const maxTraceLine = 16 << 20

// newTraceWriter returns a trace callback that appends JSONL records to w.
// The first write failure is logged and later events are dropped.
func newTraceWriter(w io.Writer, log *slog.Logger) func(evaluator.TraceEvent) {
	enc := json.NewEncoder(w)
	failed := false
	return func(ev evaluator.TraceEvent) {
		if failed {
			return
		}
		if err := enc.Encode(ev); err != nil {
			failed = true
			log.Error("writing trace failed", "event", string(ev.Event), "error", err)
		}
	}
}

// TraceSummary aggregates the events of a JSONL trace file.
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	FnCalls        int            `json:"fnCalls"`
	BuiltinCalls   int            `json:"builtinCalls"`
	BuiltinsByName map[string]int `json:"builtinsByName"`
	Errors         int            `json:"errors"`
	BudgetExceeded int            `json:"budgetExceeded"`
	Steps          int64          `json:"steps"`
	MaxDepth       int            `json:"maxDepth"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string            `json:"event"`
	RunID string            `json:"runId"`
	TS    string            `json:"ts"`
	Data  map[string]string `json:"data,omitempty"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		BuiltinsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTraceLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case "run_start":
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case "run_end":
			summary.EndTime = event.TS
			if n, err := strconv.ParseInt(event.Data["steps"], 10, 64); err == nil {
				summary.Steps += n
			}
			if n, err := strconv.Atoi(event.Data["maxDepth"]); err == nil && n > summary.MaxDepth {
				summary.MaxDepth = n
			}
		case "fn_call_start":
			summary.FnCalls++
		case "builtin_call":
			summary.BuiltinCalls++
			if name := event.Data["fn"]; name != "" {
				summary.BuiltinsByName[name]++
			}
		case "error":
			summary.Errors++
		case "budget_exceeded":
			summary.BudgetExceeded++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Function calls: %d\n", s.FnCalls)
	fmt.Fprintf(w, "Builtin calls: %d\n", s.BuiltinCalls)
	names := make([]string, 0, len(s.BuiltinsByName))
	for name := range s.BuiltinsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.BuiltinsByName[name])
	}
	fmt.Fprintf(w, "Steps: %d (max depth %d)\n", s.Steps, s.MaxDepth)
	fmt.Fprintf(w, "Errors: %d (%d budget)\n", s.Errors, s.BudgetExceeded)
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}
