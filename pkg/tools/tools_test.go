package tools

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isitobservable/netwait/pkg/config"
	"github.com/isitobservable/netwait/pkg/output"
	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/types"
	"github.com/isitobservable/netwait/pkg/wait"
)

func testConfig() *config.Config {
	return &config.Config{
		Timeout:           2 * time.Second,
		Interval:          time.Millisecond,
		MaxInterval:       5 * time.Millisecond,
		ConnectionTimeout: 100 * time.Millisecond,
	}
}

// alwaysUp pretends every target is reachable.
var alwaysUp = wait.CheckerFunc(func(ctx context.Context, t target.Target, timeout time.Duration) error {
	return nil
})

// alwaysDown pretends every target is unreachable.
var alwaysDown = wait.CheckerFunc(func(ctx context.Context, t target.Target, timeout time.Duration) error {
	return types.NewTargetError(types.ErrCodeConnectionFailed, t.String(), "connection refused")
})

func TestWaitForTargetsSuccess(t *testing.T) {
	tool := &WaitForTargetsTool{Cfg: testConfig(), Checker: alwaysUp}

	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"targets": []interface{}{"db.local:5432", "cache.local:6380"},
	})
	require.NoError(t, err)
	assert.Equal(t, "wait_for_targets", resp.Tool)

	doc, ok := resp.Data.(output.JSONResult)
	require.True(t, ok)
	assert.True(t, doc.Success)
	assert.Len(t, doc.Targets, 2)
	assert.Equal(t, 2, doc.TotalAttempts)
}

func TestWaitForTargetsTimeoutIsData(t *testing.T) {
	tool := &WaitForTargetsTool{Cfg: testConfig(), Checker: alwaysDown}

	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"targets": []interface{}{"db.local:5432"},
		"timeout": "50ms",
	})
	require.NoError(t, err, "timeouts are reported as data, not tool errors")

	doc, ok := resp.Data.(output.JSONResult)
	require.True(t, ok)
	assert.False(t, doc.Success)
	assert.Contains(t, doc.Error, "db.local:5432")
}

func TestWaitForTargetsValidation(t *testing.T) {
	tool := &WaitForTargetsTool{Cfg: testConfig(), Checker: alwaysUp}

	_, err := tool.Run(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidInput, types.Code(err))

	_, err = tool.Run(context.Background(), map[string]interface{}{
		"targets": []interface{}{"no-port"},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidTarget, types.Code(err))

	_, err = tool.Run(context.Background(), map[string]interface{}{
		"targets":         []interface{}{"db.local:5432"},
		"security_preset": "bogus",
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidInput, types.Code(err))
}

func TestWaitForTargetsPolicyPreset(t *testing.T) {
	tool := &WaitForTargetsTool{Cfg: testConfig(), Checker: alwaysUp}

	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"targets":         []interface{}{"localhost:8080"},
		"security_preset": "production",
	})
	require.NoError(t, err)
	doc := resp.Data.(output.JSONResult)
	assert.False(t, doc.Success)
	require.Len(t, doc.Targets, 1)
	assert.Contains(t, doc.Targets[0].Error, "localhost")
}

func TestWaitForTargetsCancellation(t *testing.T) {
	tool := &WaitForTargetsTool{Cfg: testConfig(), Checker: alwaysDown}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tool.Run(ctx, map[string]interface{}{
		"targets": []interface{}{"db.local:5432"},
		"timeout": "10s",
	})
	require.Error(t, err)
	assert.True(t, types.IsCancelled(err))
}

func TestCheckTarget(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	addr := ln.Addr().(*net.TCPAddr)

	tool := &CheckTargetTool{Cfg: testConfig()}
	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"target": net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.Port)),
	})
	require.NoError(t, err)
	data := resp.Data.(checkTargetData)
	assert.True(t, data.Reachable)
	assert.Empty(t, data.Error)
}

func TestCheckTargetDown(t *testing.T) {
	tool := &CheckTargetTool{Cfg: testConfig(), Checker: alwaysDown}
	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"target": "db.local:5432",
	})
	require.NoError(t, err)
	data := resp.Data.(checkTargetData)
	assert.False(t, data.Reachable)
	assert.Equal(t, types.ErrCodeConnectionFailed, data.ErrorCode)

	_, err = tool.Run(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidInput, types.Code(err))
}

func TestValidateTarget(t *testing.T) {
	tool := &ValidateTargetTool{Cfg: testConfig()}

	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"target": "db.example.com:5432",
	})
	require.NoError(t, err)
	data := resp.Data.(validateTargetData)
	assert.True(t, data.Valid)
	assert.Equal(t, "tcp", data.Kind)
	assert.Equal(t, "db.example.com", data.Host)
	assert.Equal(t, 5432, data.Port)

	resp, err = tool.Run(context.Background(), map[string]interface{}{
		"target":          "db.example.com:5432",
		"security_preset": "production",
	})
	require.NoError(t, err)
	data = resp.Data.(validateTargetData)
	assert.False(t, data.Valid)
	assert.Equal(t, types.ErrCodePolicyViolation, data.ErrorCode)

	resp, err = tool.Run(context.Background(), map[string]interface{}{
		"target": "not a target",
	})
	require.NoError(t, err)
	data = resp.Data.(validateTargetData)
	assert.False(t, data.Valid)
	assert.NotEmpty(t, data.ErrorCode)
}

func TestRegistry(t *testing.T) {
	cfg := testConfig()
	r := DefaultRegistry(
		&WaitForTargetsTool{Cfg: cfg},
		&CheckTargetTool{Cfg: cfg},
		&ValidateTargetTool{Cfg: cfg},
	)
	assert.Len(t, r.List(), 3)

	tool, ok := r.Get("wait_for_targets")
	require.True(t, ok)
	assert.NotEmpty(t, tool.Description())
	assert.NotNil(t, tool.InputSchema())

	r.Unregister("check_target")
	_, ok = r.Get("check_target")
	assert.False(t, ok)
	assert.Len(t, r.List(), 2)
}

func TestArgHelpers(t *testing.T) {
	args := map[string]interface{}{
		"s":    "hello",
		"n":    float64(7),
		"b":    true,
		"list": []interface{}{"a", "b"},
		"d":    "250ms",
	}
	assert.Equal(t, "hello", getStringArg(args, "s", "x"))
	assert.Equal(t, "x", getStringArg(args, "missing", "x"))
	assert.Equal(t, 7, getIntArg(args, "n", 1))
	assert.Equal(t, 1, getIntArg(args, "missing", 1))
	assert.True(t, getBoolArg(args, "b", false))
	assert.Equal(t, []string{"a", "b"}, getStringSliceArg(args, "list"))
	assert.Nil(t, getStringSliceArg(args, "missing"))
	assert.Equal(t, 250*time.Millisecond, getDurationArg(args, "d", time.Second))
	assert.Equal(t, time.Second, getDurationArg(args, "missing", time.Second))
}
