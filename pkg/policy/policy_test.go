package policy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isitobservable/netwait/pkg/target"
	"github.com/isitobservable/netwait/pkg/types"
)

func mustTCP(t *testing.T, host string, port int) target.Target {
	t.Helper()
	tgt, err := target.TCP(host, port)
	require.NoError(t, err)
	return tgt
}

func mustHTTP(t *testing.T, rawURL string) target.Target {
	t.Helper()
	tgt, err := target.HTTP(rawURL, 200)
	require.NoError(t, err)
	return tgt
}

func TestProductionValidator(t *testing.T) {
	v := Production()

	assert.NoError(t, v.Validate(mustTCP(t, "example.com", 443)))
	assert.NoError(t, v.Validate(mustTCP(t, "example.com", 8080)))

	err := v.Validate(mustTCP(t, "localhost", 443))
	require.Error(t, err)
	assert.Equal(t, types.ErrCodePolicyViolation, types.Code(err))
	assert.True(t, types.IsPolicy(err))

	assert.Error(t, v.Validate(mustTCP(t, "127.0.0.1", 443)))
	assert.Error(t, v.Validate(mustTCP(t, "10.0.0.5", 443)))
	assert.Error(t, v.Validate(mustTCP(t, "172.16.0.1", 443)))
	assert.Error(t, v.Validate(mustTCP(t, "192.168.1.1", 443)))

	// Port 9090 is neither blocked nor in the allow set.
	assert.Error(t, v.Validate(mustTCP(t, "example.com", 9090)))
	// Blocked wins even when the host is public.
	assert.Error(t, v.Validate(mustTCP(t, "example.com", 22)))
}

func TestDevelopmentValidator(t *testing.T) {
	v := Development()

	assert.NoError(t, v.Validate(mustTCP(t, "localhost", 8080)))
	assert.NoError(t, v.Validate(mustTCP(t, "10.0.0.5", 5432)))
	assert.NoError(t, v.Validate(mustTCP(t, "example.com", 9090)))

	err := v.Validate(mustTCP(t, "localhost", 22))
	require.Error(t, err)
	assert.Equal(t, types.ErrCodePolicyViolation, types.Code(err))
}

func TestValidatorHostnameLength(t *testing.T) {
	v := Production()
	// 63+1+63 = 127 characters from valid labels: construction accepts it
	// (limit 253) but the production policy caps hostnames at 100.
	label := strings.Repeat("a", 63)
	long := label + "." + label
	tgt := mustTCP(t, long, 443)

	err := v.Validate(tgt)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodePolicyViolation, types.Code(err))

	assert.NoError(t, Development().Validate(tgt))
}

func TestValidatorURLLength(t *testing.T) {
	v := Production()
	path := "/"
	for len(path) < 1100 {
		path += "x"
	}
	err := v.Validate(mustHTTP(t, "https://example.com"+path))
	require.Error(t, err)
	assert.Equal(t, types.ErrCodePolicyViolation, types.Code(err))

	assert.NoError(t, Development().Validate(mustHTTP(t, "https://example.com"+path)))
}

func TestPreset(t *testing.T) {
	v, err := Preset("production")
	require.NoError(t, err)
	assert.False(t, v.AllowLocalhost)

	v, err = Preset("development")
	require.NoError(t, err)
	assert.True(t, v.AllowLocalhost)

	v, err = Preset("")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Preset("paranoid")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidInput, types.Code(err))
}

func TestRateLimiterWindow(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(3, time.Minute)
	r.now = func() time.Time { return clock }

	tgt := mustTCP(t, "db.internal", 5432)

	for i := 0; i < 3; i++ {
		assert.NoError(t, r.Allow(tgt), "attempt %d", i)
		clock = clock.Add(time.Second)
	}

	err := r.Allow(tgt)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeRateLimited, types.Code(err))
	assert.True(t, types.IsPolicy(err))

	// A different endpoint has its own budget.
	assert.NoError(t, r.Allow(mustTCP(t, "cache.internal", 6380)))

	// Once the window slides past the earliest attempts, the budget frees up.
	clock = clock.Add(time.Minute)
	assert.NoError(t, r.Allow(tgt))
}

func TestRateLimiterSharedKey(t *testing.T) {
	r := NewRateLimiter(1, time.Minute)
	a := mustTCP(t, "svc.local", 8080)
	b := mustTCP(t, "svc.local", 8080)

	require.NoError(t, r.Allow(a))
	assert.Error(t, r.Allow(b))
}

func TestRateLimiterCleanup(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(5, time.Minute)
	r.now = func() time.Time { return clock }
	r.lastCleanup.Store(clock.UnixNano())

	require.NoError(t, r.Allow(mustTCP(t, "one.internal", 8080)))
	require.NoError(t, r.Allow(mustTCP(t, "two.internal", 8080)))
	assert.Equal(t, 2, r.Tracked())

	// Advance past the cleanup interval; the next Allow sweeps stale entries.
	clock = clock.Add(6 * time.Minute)
	require.NoError(t, r.Allow(mustTCP(t, "three.internal", 8080)))
	assert.Equal(t, 1, r.Tracked())
}

func TestGate(t *testing.T) {
	var nilGate *Gate
	tgt := mustTCP(t, "localhost", 8080)
	assert.NoError(t, nilGate.Check(tgt))
	assert.NoError(t, NewGate(nil, nil).Check(tgt))

	// Validator rejection fires before the limiter records an attempt.
	limiter := NewRateLimiter(10, time.Minute)
	g := NewGate(Production(), limiter)
	assert.Error(t, g.Check(tgt))
	assert.Equal(t, 0, limiter.Tracked())

	g = NewGate(Development(), NewRateLimiter(1, time.Minute))
	assert.NoError(t, g.Check(tgt))
	err := g.Check(tgt)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeRateLimited, types.Code(err))
}
