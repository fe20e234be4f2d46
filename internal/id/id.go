// Package id generates time-sortable trade identifiers.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader
)

func init() {
	var seed int64
	if err := binary.Read(cryptorand.Reader, binary.LittleEndian, &seed); err != nil || seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic entropy keeps ids minted in the same millisecond ordered.
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID for a trade made at t. Times outside the ULID range
// are clamped to the epoch or to ulid.MaxTime.
func New(t time.Time) string {
	ms := timestamp(t)

	mu.Lock()
	defer mu.Unlock()
	id, err := ulid.New(ms, entropy)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		id, err = ulid.New(ms, cryptorand.Reader)
		if err != nil {
			return ulid.Make().String()
		}
	}
	return id.String()
}

func timestamp(t time.Time) uint64 {
	ms := t.UnixMilli()
	switch {
	case ms < 0:
		return 0
	case uint64(ms) > ulid.MaxTime():
		return ulid.MaxTime()
	}
	return uint64(ms)
}
