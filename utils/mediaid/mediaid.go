package mediaid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record id prefixes per media category.
const (
	PrefixImage    = "img"
	PrefixAudio    = "aud"
	PrefixDownload = "dl"
	PrefixEvent    = "rec"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a "<prefix>_<lowercase ulid>" identifier.
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// IsValid reports whether value is a well-formed id with the given prefix.
func IsValid(prefix, value string) bool {
	if !strings.HasPrefix(value, prefix+"_") {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	if idx := strings.LastIndex(value, "_"); idx >= 0 {
		value = value[idx+1:]
	}
	return ulid.ParseStrict(strings.ToUpper(value))
}
