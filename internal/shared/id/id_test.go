package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := gen.GenerateString()
		require.Len(t, s, 26)
		require.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
	}
}

func TestGenerateSortsInCreationOrder(t *testing.T) {
	gen := NewGenerator()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.GenerateString()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestTypedIDGeneration(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"listener", NewListenerID().String(), ListenerPrefix},
		{"agent", NewAgentID().String(), AgentPrefix},
		{"request", NewRequestID().String(), RequestPrefix},
		{"span", NewSpanID().String(), SpanPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.id, tt.prefix+"_"))
			assert.True(t, IsValidPrefixed(tt.id, tt.prefix))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewGenerator().GenerateString()))

	for _, s := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		assert.False(t, IsValid(s), s)
	}
	assert.False(t, IsValidPrefixed(NewAgentID().String(), ListenerPrefix))
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Millisecond)
	agent := NewAgentID()
	after := time.Now().Add(time.Millisecond)

	ts, err := Timestamp(agent.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "timestamp %v outside [%v, %v]", ts, before, after)

	_, err = Timestamp("agt_nope")
	assert.Error(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[ListenerID]bool)
	)

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				lid := NewListenerID()
				mu.Lock()
				ids[lid] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 800)
}
