// Package output renders wait results for the CLI: a colorized human
// summary or a stable JSON document, plus process exit code mapping.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/isitobservable/netwait/pkg/types"
	"github.com/isitobservable/netwait/pkg/wait"
)

// Process exit codes.
const (
	ExitSuccess        = 0
	ExitNotReady       = 1
	ExitUsage          = 2
	ExitCommandFailure = 3
)

// JSONResult is the stable JSON document printed with --json.
type JSONResult struct {
	Success       bool               `json:"success"`
	ElapsedMS     int64              `json:"elapsed_ms"`
	TotalAttempts int                `json:"total_attempts"`
	Targets       []JSONTargetResult `json:"targets"`
	Error         string             `json:"error,omitempty"`
}

// JSONTargetResult is the per-target entry inside JSONResult.
type JSONTargetResult struct {
	Target    string `json:"target"`
	Success   bool   `json:"success"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
}

// Options controls rendering.
type Options struct {
	// JSON selects machine output on stdout.
	JSON bool
	// Quiet suppresses human output entirely.
	Quiet bool
	// Verbose adds per-target lines to the human summary.
	Verbose bool
}

// Renderer writes results to the given streams.
type Renderer struct {
	Out io.Writer
	Err io.Writer
	Opt Options
}

// NewRenderer builds a renderer for the given streams.
func NewRenderer(out, errw io.Writer, opt Options) *Renderer {
	return &Renderer{Out: out, Err: errw, Opt: opt}
}

// Render writes the outcome of a wait operation. res may be nil when the
// operation was cancelled before producing results; err carries the failure.
func (r *Renderer) Render(res *wait.Result, err error) error {
	if r.Opt.JSON {
		return r.renderJSON(res, err)
	}
	if r.Opt.Quiet {
		return nil
	}
	return r.renderHuman(res, err)
}

// BuildJSON converts a wait outcome into the stable JSON document. res may
// be nil when the operation was cancelled before producing results.
func BuildJSON(res *wait.Result, err error) JSONResult {
	doc := JSONResult{Targets: []JSONTargetResult{}}
	if res != nil {
		doc.Success = res.Success
		doc.ElapsedMS = res.Elapsed.Milliseconds()
		doc.TotalAttempts = res.TotalAttempts
		for _, tr := range res.Targets {
			entry := JSONTargetResult{
				Target:    tr.Target.String(),
				Success:   tr.Success,
				ElapsedMS: tr.Elapsed.Milliseconds(),
				Attempts:  tr.Attempts,
			}
			if tr.Err != nil {
				entry.Error = tr.Err.Error()
			}
			doc.Targets = append(doc.Targets, entry)
		}
	}
	if err != nil {
		doc.Error = err.Error()
	}
	return doc
}

func (r *Renderer) renderJSON(res *wait.Result, err error) error {
	doc := BuildJSON(res, err)

	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (r *Renderer) renderHuman(res *wait.Result, err error) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if res != nil && (r.Opt.Verbose || !res.Success) {
		for _, tr := range res.Targets {
			if tr.Success {
				green.Fprintf(r.Out, "✓ %s", tr.Target.String())
				fmt.Fprintf(r.Out, " (%d attempts, %s)\n", tr.Attempts, tr.Elapsed.Round(time.Millisecond))
			} else {
				red.Fprintf(r.Err, "✗ %s", tr.Target.String())
				fmt.Fprintf(r.Err, " (%v)\n", tr.Err)
			}
		}
	}

	switch {
	case err != nil:
		red.Fprintf(r.Err, "Error: ")
		fmt.Fprintln(r.Err, err.Error())
	case res != nil && res.Success:
		green.Fprintf(r.Out, "Ready")
		fmt.Fprintf(r.Out, " after %d attempts in %s\n", res.TotalAttempts, res.Elapsed.Round(time.Millisecond))
	}
	return nil
}

// ExitCode maps a wait outcome to the process exit code: 0 when ready, 1 on
// timeout or cancellation, 2 on usage errors.
func ExitCode(res *wait.Result, err error) int {
	if err != nil {
		switch types.Code(err) {
		case types.ErrCodeInvalidTarget, types.ErrCodeInvalidHostname, types.ErrCodeInvalidPort,
			types.ErrCodeInvalidHeader, types.ErrCodeInvalidStatus, types.ErrCodeInvalidInput:
			return ExitUsage
		}
		return ExitNotReady
	}
	if res == nil || !res.Success {
		return ExitNotReady
	}
	return ExitSuccess
}
