package tools

import (
	"context"
	"time"

	"github.com/isitobservable/netwait/pkg/config"
	"github.com/isitobservable/netwait/pkg/types"
	"github.com/isitobservable/netwait/pkg/wait"
)

// CheckTargetTool makes exactly one connection attempt and reports the
// outcome. No retries, no backoff.
type CheckTargetTool struct {
	Cfg     *config.Config
	Checker wait.Checker
}

type checkTargetData struct {
	Target    string `json:"target"`
	Reachable bool   `json:"reachable"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func (t *CheckTargetTool) Name() string { return "check_target" }

func (t *CheckTargetTool) Description() string {
	return "Make a single connection attempt against one TCP host:port or HTTP(S) endpoint and report whether it is reachable right now."
}

func (t *CheckTargetTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"target": map[string]interface{}{
				"type":        "string",
				"description": "Target to check: host:port or http(s)://host/path",
			},
			"connection_timeout": map[string]interface{}{
				"type":        "string",
				"description": "Attempt timeout as a Go duration (default 10s)",
			},
			"expect_status": map[string]interface{}{
				"type":        "integer",
				"description": "Expected HTTP status code for HTTP targets (default 200)",
			},
			"headers": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "HTTP headers in \"Name: value\" form",
			},
		},
		"required": []string{"target"},
	}
}

func (t *CheckTargetTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	spec := getStringArg(args, "target", "")
	if spec == "" {
		return nil, types.NewError(types.ErrCodeInvalidInput, "target must be specified")
	}

	targets, err := parseTargets([]string{spec}, args)
	if err != nil {
		return nil, err
	}
	tgt := targets[0]

	checker := t.Checker
	if checker == nil {
		checker = wait.NewDialChecker()
	}
	timeout := getDurationArg(args, "connection_timeout", t.Cfg.ConnectionTimeout)

	start := time.Now()
	checkErr := checker.Check(ctx, tgt, timeout)
	data := checkTargetData{
		Target:    tgt.String(),
		Reachable: checkErr == nil,
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	if checkErr != nil {
		data.Error = checkErr.Error()
		data.ErrorCode = types.Code(checkErr)
	}
	return NewResponse(t.Name(), data), nil
}
