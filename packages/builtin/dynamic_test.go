package builtin

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UUID(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"uuid", "random.uuid"} {
		v, ok := r.Call(name)
		require.True(t, ok)
		_, err := uuid.Parse(v)
		assert.NoError(t, err)
	}
}

func TestRegistry_Timestamps(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	r := NewRegistry(WithClock(func() time.Time { return fixed }))

	v, ok := r.Call("timestamp")
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(fixed.Unix(), 10), v)

	v, ok = r.Call("isoTimestamp")
	require.True(t, ok)
	assert.Equal(t, "2024-03-01T12:30:00Z", v)
}

func TestRegistry_RandomInt(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		expr     string
		ok       bool
		min, max int
	}{
		{"randomInt", true, 0, 999},
		{"random.integer(5, 6)", true, 5, 5},
		{"random.integer(-3, 3)", true, -3, 2},
		{"random.integer(6, 5)", false, 0, 0},
		{"random.integer(1)", false, 0, 0},
		{"random.integer(a, b)", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, ok := r.Call(tt.expr)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			n, err := strconv.Atoi(v)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, tt.min)
			assert.LessOrEqual(t, n, tt.max)
		})
	}
}

func TestRegistry_RandomStrings(t *testing.T) {
	r := NewRegistry()

	v, ok := r.Call("random.hexadecimal(12)")
	require.True(t, ok)
	assert.Regexp(t, `^[0-9a-f]{12}$`, v)

	v, ok = r.Call("random.alphabetic")
	require.True(t, ok)
	assert.Len(t, v, 10)

	v, ok = r.Call("random.email")
	require.True(t, ok)
	assert.Regexp(t, `^[a-z]{8}@[a-z]{6}\.com$`, v)

	_, ok = r.Call("random.alphanumeric(-1)")
	assert.False(t, ok)
}

func TestRegistry_ProcessEnv(t *testing.T) {
	r := NewRegistry(WithLookupEnv(func(name string) (string, bool) {
		if name == "API_TOKEN" {
			return "secret", true
		}
		return "", false
	}))

	v, ok := r.Call("processEnv.API_TOKEN")
	require.True(t, ok)
	assert.Equal(t, "secret", v)

	_, ok = r.Call("processEnv.MISSING")
	assert.False(t, ok)
	_, ok = r.Call("processEnv.")
	assert.False(t, ok)
}

func TestRegistry_RegisterAndNames(t *testing.T) {
	r := NewRegistry()
	r.Register("tenant", func(_ []string) (string, bool) { return "acme", true })

	v, ok := r.Call(" tenant ")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	names := r.Names()
	assert.Contains(t, names, "$tenant")
	assert.Contains(t, names, "$processEnv.NAME")
	assert.IsNonDecreasing(t, names)

	_, ok = r.Call("nope")
	assert.False(t, ok)
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b, c", "d"}, parseArgs(`a, "b, c", 'd'`))
	assert.Equal(t, []string{"1", ""}, parseArgs("1,"))
}
