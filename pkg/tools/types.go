// Package tools defines the MCP tools exposed by the netwait server and a
// registry to hold them.
package tools

import (
	"context"
	"time"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error)
}

type StandardResponse struct {
	Timestamp string      `json:"timestamp"`
	Tool      string      `json:"tool"`
	Data      interface{} `json:"data"`
}

func NewResponse(toolName string, data interface{}) *StandardResponse {
	return &StandardResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Tool:      toolName,
		Data:      data,
	}
}

func getStringArg(args map[string]interface{}, key string, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultVal
}

func getIntArg(args map[string]interface{}, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return defaultVal
}

func getBoolArg(args map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// getStringSliceArg accepts both JSON arrays of strings and single strings.
func getStringSliceArg(args map[string]interface{}, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv != "" {
			return []string{vv}
		}
	}
	return nil
}

// getDurationArg parses Go duration strings ("30s", "500ms").
func getDurationArg(args map[string]interface{}, key string, defaultVal time.Duration) time.Duration {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			if d, err := time.ParseDuration(s); err == nil && d > 0 {
				return d
			}
		}
	}
	return defaultVal
}
