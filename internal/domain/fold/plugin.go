package fold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/resilience"
)

// Exported symbol names looked up in the sensor plugin
const (
	SymbolSubscribe   = "SubscribeSensor"
	SymbolUnsubscribe = "UnSubscribeSensor"
)

// SensorCallback receives raw sensor readings
type SensorCallback func(sensorType int32, status int32, data []byte)

type (
	subscribeFunc   = func(sensorType int32, cb func(int32, int32, []byte)) bool
	unsubscribeFunc = func(sensorType int32) bool
)

// PluginState tracks the loader lifecycle
type PluginState int

const (
	PluginUnloaded PluginState = iota
	PluginLoaded
	PluginSymbolsResolved
	PluginUnavailable
)

// String returns the state name
func (s PluginState) String() string {
	switch s {
	case PluginUnloaded:
		return "unloaded"
	case PluginLoaded:
		return "loaded"
	case PluginSymbolsResolved:
		return "symbols_resolved"
	case PluginUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var (
	ErrPluginUnavailable = errors.New("sensor plugin unavailable")
	ErrPluginNotFound    = errors.New("no sensor plugin found")
	ErrSymbolType        = errors.New("sensor plugin symbol has unexpected type")
	ErrSubscribeRejected = errors.New("sensor plugin rejected request")
)

// Library is an opened shared object
type Library interface {
	Lookup(symbol string) (any, error)
}

// Opener opens the shared object at path
type Opener func(path string) (Library, error)

type goPlugin struct{ p *plugin.Plugin }

func (g goPlugin) Lookup(symbol string) (any, error) {
	return g.p.Lookup(symbol)
}

// OpenGoPlugin opens path with the Go plugin package
func OpenGoPlugin(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return goPlugin{p: p}, nil
}

// PluginConfig locates the sensor plugin
type PluginConfig struct {
	Dirs        []string
	Pattern     string
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPluginConfig returns the stock search settings
func DefaultPluginConfig() PluginConfig {
	return PluginConfig{
		Dirs:        []string{"/system/lib64/plugins", "/vendor/lib64/plugins"},
		Pattern:     "libsensor*.so",
		MaxAttempts: 5,
		Backoff:     100 * time.Millisecond,
	}
}

// PluginLoader opens the sensor plugin and resolves its subscribe symbols
type PluginLoader struct {
	cfg     PluginConfig
	open    Opener
	clock   clockwork.Clock
	logger  *zap.Logger
	onRetry func()

	mu          sync.Mutex
	state       PluginState
	path        string
	subscribe   subscribeFunc
	unsubscribe unsubscribeFunc
}

// PluginOption configures a PluginLoader
type PluginOption func(*PluginLoader)

// WithOpener replaces the shared object opener
func WithOpener(open Opener) PluginOption {
	return func(l *PluginLoader) { l.open = open }
}

// WithPluginClock sets the clock used between attempts
func WithPluginClock(clock clockwork.Clock) PluginOption {
	return func(l *PluginLoader) { l.clock = clock }
}

// WithRetryHook is called each time a load attempt is retried
func WithRetryHook(fn func()) PluginOption {
	return func(l *PluginLoader) { l.onRetry = fn }
}

// NewPluginLoader creates an unloaded loader
func NewPluginLoader(cfg PluginConfig, logger *zap.Logger, opts ...PluginOption) *PluginLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "*.so"
	}
	l := &PluginLoader{
		cfg:    cfg,
		open:   OpenGoPlugin,
		clock:  clockwork.NewRealClock(),
		logger: logger.Named("fold.plugin"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the loader state
func (l *PluginLoader) State() PluginState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Path returns the loaded plugin path, empty until loaded
func (l *PluginLoader) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Discover lists plugin candidates under the configured directories in a stable order
func (l *PluginLoader) Discover() ([]string, error) {
	var (
		mu    sync.Mutex
		found []string
	)
	conf := fastwalk.Config{Follow: false}
	for _, dir := range l.cfg.Dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ok, matchErr := doublestar.Match(l.cfg.Pattern, filepath.Base(p))
			if matchErr != nil {
				return matchErr
			}
			if ok {
				mu.Lock()
				found = append(found, p)
				mu.Unlock()
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}
	sort.Strings(found)
	return found, nil
}

// Load opens the first usable candidate. Each candidate gets MaxAttempts tries;
// once every attempt fails the loader stays Unavailable until Reload.
func (l *PluginLoader) Load(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case PluginSymbolsResolved:
		l.mu.Unlock()
		return nil
	case PluginUnavailable:
		l.mu.Unlock()
		return ErrPluginUnavailable
	}
	l.mu.Unlock()

	candidates, err := l.Discover()
	if err != nil {
		l.markUnavailable(err)
		return err
	}
	if len(candidates) == 0 {
		l.markUnavailable(ErrPluginNotFound)
		return ErrPluginNotFound
	}

	policy := resilience.RetryPolicy{
		MaxAttempts: l.cfg.MaxAttempts,
		Backoff:     l.cfg.Backoff,
		Clock:       l.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			l.logger.Warn("sensor plugin load failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if l.onRetry != nil {
				l.onRetry()
			}
		},
	}

	var lastErr error
	for _, path := range candidates {
		lastErr = resilience.RetryVoid(ctx, policy, classifyPluginError, func() error {
			return l.loadOne(path)
		})
		if lastErr == nil {
			l.logger.Info("sensor plugin ready", zap.String("path", path))
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	l.markUnavailable(lastErr)
	return fmt.Errorf("%w: %w", ErrPluginUnavailable, lastErr)
}

// Reload closes the current binding and loads again
func (l *PluginLoader) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.state = PluginUnloaded
	l.path = ""
	l.subscribe = nil
	l.unsubscribe = nil
	l.mu.Unlock()

	return l.Load(ctx)
}

// Subscribe registers cb for sensorType
func (l *PluginLoader) Subscribe(sensorType SensorType, cb SensorCallback) error {
	l.mu.Lock()
	sub := l.subscribe
	l.mu.Unlock()

	if sub == nil {
		return ErrPluginUnavailable
	}
	if !sub(int32(sensorType), cb) {
		return fmt.Errorf("subscribe %s: %w", sensorType, ErrSubscribeRejected)
	}
	return nil
}

// Unsubscribe drops the callback for sensorType
func (l *PluginLoader) Unsubscribe(sensorType SensorType) error {
	l.mu.Lock()
	unsub := l.unsubscribe
	l.mu.Unlock()

	if unsub == nil {
		return ErrPluginUnavailable
	}
	if !unsub(int32(sensorType)) {
		return fmt.Errorf("unsubscribe %s: %w", sensorType, ErrSubscribeRejected)
	}
	return nil
}

func (l *PluginLoader) loadOne(path string) error {
	lib, err := l.open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	l.mu.Lock()
	l.state = PluginLoaded
	l.path = path
	l.mu.Unlock()

	sub, err := lookup[subscribeFunc](lib, SymbolSubscribe)
	if err != nil {
		return err
	}
	unsub, err := lookup[unsubscribeFunc](lib, SymbolUnsubscribe)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.subscribe = sub
	l.unsubscribe = unsub
	l.state = PluginSymbolsResolved
	l.mu.Unlock()
	return nil
}

func (l *PluginLoader) markUnavailable(err error) {
	l.mu.Lock()
	l.state = PluginUnavailable
	l.subscribe = nil
	l.unsubscribe = nil
	l.mu.Unlock()

	l.logger.Error("sensor plugin unavailable", zap.Error(err))
}

// lookup resolves name as F, accepting either a func or a pointer to a func variable
func lookup[F any](lib Library, name string) (F, error) {
	var zero F
	sym, err := lib.Lookup(name)
	if err != nil {
		return zero, fmt.Errorf("lookup %s: %w", name, err)
	}
	switch fn := sym.(type) {
	case F:
		return fn, nil
	case *F:
		if fn != nil {
			return *fn, nil
		}
	}
	return zero, fmt.Errorf("%s is %T: %w", name, sym, ErrSymbolType)
}

// classifyPluginError stops retrying when the object opened but exports the wrong symbols
func classifyPluginError(err error) resilience.Action {
	if errors.Is(err, ErrSymbolType) {
		return resilience.ActionStop
	}
	return resilience.ActionRetry
}
