package ipipe

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SuffixSource produces n alphanumeric characters for the random part of an
// auto-generated pipe name. Sources must be safe for concurrent use.
type SuffixSource func(n int) string

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	sourceMu      sync.RWMutex
	currentSource SuffixSource = CryptoSource()
)

// SetSuffixSource replaces the package-wide suffix source used by TempName
// and CreateTemp. Passing nil restores the default CryptoSource.
func SetSuffixSource(src SuffixSource) {
	if src == nil {
		src = CryptoSource()
	}
	sourceMu.Lock()
	currentSource = src
	sourceMu.Unlock()
}

func suffixSource() SuffixSource {
	sourceMu.RLock()
	defer sourceMu.RUnlock()
	return currentSource
}

// CryptoSource returns the default suffix source, backed by crypto/rand. If
// the system randomness source fails it degrades to a process-local counter;
// counter suffixes remain unique within the process but lose cross-process
// collision resistance.
func CryptoSource() SuffixSource {
	fallback := CounterSource()
	max := big.NewInt(int64(len(alphanumeric)))
	return func(n int) string {
		var b strings.Builder
		b.Grow(n)
		for i := 0; i < n; i++ {
			v, err := rand.Int(rand.Reader, max)
			if err != nil {
				return fallback(n)
			}
			b.WriteByte(alphanumeric[v.Int64()])
		}
		return b.String()
	}
}

// CounterSource returns a deterministic suffix source driven by a
// monotonically increasing counter. Suffixes are unique per source instance
// but predictable; use only where collision resistance does not matter, such
// as tests.
func CounterSource() SuffixSource {
	var counter atomic.Uint64
	return func(n int) string {
		v := counter.Add(1)
		var b strings.Builder
		b.Grow(n)
		for i := 0; i < n; i++ {
			b.WriteByte(alphanumeric[v%uint64(len(alphanumeric))])
			v /= uint64(len(alphanumeric))
		}
		return b.String()
	}
}

// ULIDSource returns a suffix source built from ULIDs, useful when generated
// pipe names should sort by creation time.
func ULIDSource() SuffixSource {
	return func(n int) string {
		var b strings.Builder
		b.Grow(n)
		for b.Len() < n {
			b.WriteString(ulid.Make().String())
		}
		return b.String()[:n]
	}
}

// UUIDSource returns a suffix source built from random UUIDs.
func UUIDSource() SuffixSource {
	return func(n int) string {
		var b strings.Builder
		b.Grow(n)
		for b.Len() < n {
			b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
		}
		return b.String()[:n]
	}
}
