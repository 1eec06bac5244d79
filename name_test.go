package ipipe_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bwHC-gko/ipipe"
)

func TestPipePath_Deterministic(t *testing.T) {
	first, err := ipipe.PipePath("applog")
	require.NoError(t, err)
	second, err := ipipe.PipePath("applog")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, "applog"))
}

func TestPipePath_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "applog", false},
		{"with underscore", "pipe_123_abc", false},
		{"with dots inside", "app.v2.log", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"nul byte", "a\x00b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ipipe.PipePath(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ipipe.ErrInvalidName)
				var opErr *ipipe.OpError
				require.ErrorAs(t, err, &opErr)
				assert.Equal(t, "path", opErr.Op)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, path)
			}
		})
	}
}

func TestPipePath_ValidNamesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z0-9_.-]{1,64}`).Draw(t, "name")
		if name == "." || name == ".." {
			return
		}
		first, err := ipipe.PipePath(name)
		if err != nil {
			t.Fatalf("valid name %q rejected: %v", name, err)
		}
		second, err := ipipe.PipePath(name)
		if err != nil || first != second {
			t.Fatalf("PipePath(%q) not deterministic: %q vs %q (%v)", name, first, second, err)
		}
	})
}

func TestTempName_Shape(t *testing.T) {
	name := ipipe.TempName()
	assert.True(t, strings.HasPrefix(name, fmt.Sprintf("pipe_%d_", os.Getpid())), name)

	suffix := name[strings.LastIndex(name, "_")+1:]
	assert.Len(t, suffix, 15)
	for _, r := range suffix {
		assert.True(t, (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'),
			"non-alphanumeric suffix rune %q in %s", r, name)
	}
}

func TestTempName_NoCollisions(t *testing.T) {
	const draws = 10000
	seen := make(map[string]bool, draws)
	for i := 0; i < draws; i++ {
		name := ipipe.TempName()
		require.False(t, seen[name], "collision after %d draws: %s", i, name)
		seen[name] = true
	}
}

func TestTempPath_Valid(t *testing.T) {
	path := ipipe.TempPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "pipe_")
}

func TestCounterSource_DeterministicPerInstance(t *testing.T) {
	a := ipipe.CounterSource()
	b := ipipe.CounterSource()
	var fromA, fromB []string
	for i := 0; i < 50; i++ {
		fromA = append(fromA, a(15))
		fromB = append(fromB, b(15))
	}
	// Independent instances replay the same sequence, and within one
	// instance every draw is distinct.
	assert.Equal(t, fromA, fromB)
	seen := make(map[string]bool)
	for _, s := range fromA {
		assert.False(t, seen[s], "duplicate counter suffix %s", s)
		seen[s] = true
	}
}

func TestAlternativeSources_Shape(t *testing.T) {
	for name, src := range map[string]ipipe.SuffixSource{
		"ulid": ipipe.ULIDSource(),
		"uuid": ipipe.UUIDSource(),
	} {
		t.Run(name, func(t *testing.T) {
			s := src(15)
			assert.Len(t, s, 15)
			assert.NotEqual(t, s, src(15))
			// Longer than one underlying id still fills the request.
			assert.Len(t, src(40), 40)
		})
	}
}

func TestSetSuffixSource(t *testing.T) {
	defer ipipe.SetSuffixSource(nil)

	calls := 0
	ipipe.SetSuffixSource(func(n int) string {
		calls++
		return strings.Repeat("x", n)
	})
	name := ipipe.TempName()
	assert.Contains(t, name, strings.Repeat("x", 15))
	assert.Equal(t, 1, calls)

	// nil restores the crypto default.
	ipipe.SetSuffixSource(nil)
	assert.NotContains(t, ipipe.TempName(), strings.Repeat("x", 15))
}
