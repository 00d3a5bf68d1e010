package cassette

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mocktape/mocktape/pkg/mock"
)

// Fingerprinter derives a stable lookup key from a request. Two requests
// that should replay the same recording must produce the same fingerprint.
type Fingerprinter interface {
	Fingerprint(req *mock.Request) string
}

// FingerprintFunc adapts a function to the Fingerprinter interface.
type FingerprintFunc func(req *mock.Request) string

// Fingerprint implements Fingerprinter.
func (f FingerprintFunc) Fingerprint(req *mock.Request) string {
	return f(req)
}

// DefaultFingerprinter keys recordings by METHOD:path:sortedQuery, plus a
// truncated body hash for mutating methods. Sorting the query makes the key
// insensitive to parameter order. The hash is for bucketing, not integrity.
type DefaultFingerprinter struct{}

// Fingerprint implements Fingerprinter.
func (DefaultFingerprinter) Fingerprint(req *mock.Request) string {
	method := strings.ToUpper(req.Method)
	parts := []string{method, req.Path(), req.SortedQuery()}
	if isMutating(method) && req.Data != nil {
		parts = append(parts, bodyHash8(req.Data))
	}
	return strings.Join(parts, ":")
}

func isMutating(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// bodyHash8 is the first 8 hex characters of the body's SHA-256. Values that
// cannot marshal hash as their formatted string.
func bodyHash8(data any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", data))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:8]
}
