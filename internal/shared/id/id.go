// Package id provides centralized ID generation for the scene backend.
//
// Session persistent IDs are small integers assigned by the directory. Everything
// else that needs a globally unique handle (listener subscriptions, remote agents,
// request traces) uses a prefixed ULID from this package:
//   - Lexicographic sortability: log lines sort by creation time
//   - Prefixed types: lsn_*, agt_*, req_*, spn_* are readable in logs
//   - Type safety: separate string types prevent mixing handles
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// ListenerID identifies a listener subscription
type ListenerID string

// AgentID identifies a remote client process connected to the scene service
type AgentID string

// RequestID identifies an API request or trace
type RequestID string

// SpanID identifies a single traced operation
type SpanID string

// ============================================================================
// ID Prefixes
// ============================================================================

const (
	ListenerPrefix = "lsn"
	AgentPrefix    = "agt"
	RequestPrefix  = "req"
	SpanPrefix     = "spn"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic entropy,
// so IDs minted in the same millisecond still sort in creation order
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
		now:     time.Now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewListenerID generates a listener subscription ID
func NewListenerID() ListenerID {
	return ListenerID(Default().GenerateWithPrefix(ListenerPrefix))
}

// NewAgentID generates a remote agent ID
func NewAgentID() AgentID {
	return AgentID(Default().GenerateWithPrefix(AgentPrefix))
}

// NewRequestID generates a request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSpanID generates a span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

func (id ListenerID) String() string { return string(id) }
func (id AgentID) String() string    { return string(id) }
func (id RequestID) String() string  { return string(id) }
func (id SpanID) String() string     { return string(id) }

// ============================================================================
// Validation
// ============================================================================

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// IsValidPrefixed checks that id is "<prefix>_<ulid>"
func IsValidPrefixed(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the creation time from a plain or prefixed ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
