package tools

import (
	"context"

	"github.com/isitobservable/netwait/pkg/config"
	"github.com/isitobservable/netwait/pkg/policy"
	"github.com/isitobservable/netwait/pkg/types"
)

// ValidateTargetTool parses a target string and checks it against a
// security preset without touching the network.
type ValidateTargetTool struct {
	Cfg *config.Config
}

type validateTargetData struct {
	Target    string `json:"target"`
	Valid     bool   `json:"valid"`
	Kind      string `json:"kind,omitempty"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func (t *ValidateTargetTool) Name() string { return "validate_target" }

func (t *ValidateTargetTool) Description() string {
	return "Parse a target string and check it against a security policy preset. Reports validity without making any network connection."
}

func (t *ValidateTargetTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"target": map[string]interface{}{
				"type":        "string",
				"description": "Target to validate: host:port or http(s)://host/path",
			},
			"expect_status": map[string]interface{}{
				"type":        "integer",
				"description": "Expected HTTP status code for HTTP targets (default 200)",
			},
			"security_preset": map[string]interface{}{
				"type":        "string",
				"description": "Security policy preset: production, development, or off",
			},
		},
		"required": []string{"target"},
	}
}

func (t *ValidateTargetTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	spec := getStringArg(args, "target", "")
	if spec == "" {
		return nil, types.NewError(types.ErrCodeInvalidInput, "target must be specified")
	}

	validator, err := policy.Preset(getStringArg(args, "security_preset", t.Cfg.SecurityPreset))
	if err != nil {
		return nil, err
	}

	data := validateTargetData{Target: spec}
	targets, err := parseTargets([]string{spec}, args)
	if err == nil && validator != nil {
		err = validator.Validate(targets[0])
	}
	if err != nil {
		data.Error = err.Error()
		data.ErrorCode = types.Code(err)
		return NewResponse(t.Name(), data), nil
	}

	tgt := targets[0]
	data.Valid = true
	data.Target = tgt.String()
	data.Kind = string(tgt.Kind())
	data.Host = tgt.Host()
	data.Port = tgt.Port()
	return NewResponse(t.Name(), data), nil
}
