package storage

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

// FlagEnabled is the literal that turns a feature flag on
const FlagEnabled = "ENABLED"

// FeatureFlag is a boolean read once from the first line of a file.
// A missing file or any other content leaves the feature disabled.
type FeatureFlag struct {
	path    string
	once    sync.Once
	enabled bool
}

// NewFeatureFlag creates a flag backed by path
func NewFeatureFlag(path string) *FeatureFlag {
	return &FeatureFlag{path: path}
}

// Path returns the flag file
func (f *FeatureFlag) Path() string {
	return f.path
}

// Enabled reads the flag on first call and returns the cached answer afterwards
func (f *FeatureFlag) Enabled() bool {
	f.once.Do(func() {
		file, err := os.Open(f.path)
		if err != nil {
			return
		}
		defer file.Close()

		sc := bufio.NewScanner(file)
		if sc.Scan() {
			f.enabled = strings.TrimSpace(sc.Text()) == FlagEnabled
		}
	})
	return f.enabled
}
