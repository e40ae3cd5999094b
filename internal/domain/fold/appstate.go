package fold

import (
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// AppState is an application visibility change
type AppState int

const (
	AppStateForeground AppState = iota
	AppStateBackground
)

// AppStateObserver tracks the bundle currently in the foreground
type AppStateObserver struct {
	mu         sync.RWMutex
	foreground string
}

// NewAppStateObserver creates an observer with no foreground app
func NewAppStateObserver() *AppStateObserver {
	return &AppStateObserver{}
}

// OnForegroundApplicationChanged records a visibility change for bundle
func (o *AppStateObserver) OnForegroundApplicationChanged(bundle string, state AppState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch state {
	case AppStateForeground:
		o.foreground = bundle
	case AppStateBackground:
		if o.foreground == bundle {
			o.foreground = ""
		}
	}
}

// ForegroundApp returns the foreground bundle, or "" if none
func (o *AppStateObserver) ForegroundApp() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.foreground
}

// AppStateSource delivers application visibility changes to an observer
type AppStateSource interface {
	RegisterApplicationStateObserver(o *AppStateObserver) error
}

// AllowList matches bundle names against glob patterns such as "com.example.*"
type AllowList struct {
	patterns []string
}

// NewAllowList validates patterns and builds an allow-list
func NewAllowList(patterns []string) (*AllowList, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid hall switch pattern %q", p)
		}
	}
	return &AllowList{patterns: append([]string(nil), patterns...)}, nil
}

// Contains reports whether bundle matches any pattern
func (a *AllowList) Contains(bundle string) bool {
	if a == nil || bundle == "" {
		return false
	}
	for _, p := range a.patterns {
		if ok, _ := doublestar.Match(p, bundle); ok {
			return true
		}
	}
	return false
}

// Patterns returns the configured patterns
func (a *AllowList) Patterns() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.patterns...)
}
