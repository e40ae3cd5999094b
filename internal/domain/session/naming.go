package session

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const unnamedSurface = "UnnamedSession"

// surfaceCounter is shared by every session in the process
var surfaceCounter atomic.Uint64

// SurfaceNodeName derives a process-unique render surface name from a session name.
// An empty name becomes a placeholder; a dotted name keeps only its last segment.
func SurfaceNodeName(name string) string {
	n := surfaceCounter.Add(1)

	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = unnamedSurface
	}
	return fmt.Sprintf("%s%d", name, n)
}
