package decoder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/xsync"
)

// Priorities of the built-in backends: the raw-camera formats are matched
// by extension before the generic container fallback.
const (
	PriorityBRAW      = 100
	PriorityR3D       = 200
	PriorityContainer = 1000
)

// OpenParams is what a Factory gets to open a Backend.
type OpenParams struct {
	Input Input

	// Path is the best known path of the input: its own name, or the
	// "filename" option for nameless inputs.
	Path string

	// Hint is the lower-cased file name used for format detection.
	Hint string

	Options types.DecoderOptions
}

type Factory interface {
	fmt.Stringer

	// Priority orders the factories; lower goes first.
	Priority() int

	// Match reports whether the factory handles files named like hint
	// (lower-cased).
	Match(hint string) bool

	Open(ctx context.Context, params OpenParams) (Backend, error)
}

// Registry is an ordered set of backend factories.
type Registry struct {
	locker    xsync.Mutex
	factories []Factory
}

func NewRegistry(factories ...Factory) *Registry {
	r := &Registry{}
	for _, f := range factories {
		r.Register(f)
	}
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry holds the factories the backend packages register at
// init.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(f Factory) {
	defaultRegistry.Register(f)
}

// Register is called from package init functions, so it has no context
// of its own.
func (r *Registry) Register(f Factory) {
	ctx := xsync.WithNoLogging(context.Background(), true)
	r.locker.Do(ctx, func() {
		r.factories = append(r.factories, f)
		sort.SliceStable(r.factories, func(i, j int) bool {
			return r.factories[i].Priority() < r.factories[j].Priority()
		})
	})
}

func (r *Registry) Factories() []Factory {
	ctx := xsync.WithNoLogging(context.Background(), true)
	return xsync.DoR1(ctx, &r.locker, func() []Factory {
		result := make([]Factory, len(r.factories))
		copy(result, r.factories)
		return result
	})
}

// Find returns the first factory (by priority) matching the hint.
func (r *Registry) Find(hint string) Factory {
	hint = strings.ToLower(hint)
	for _, f := range r.Factories() {
		if f.Match(hint) {
			return f
		}
	}
	return nil
}

// ExtensionMatcher matches hints ending with any of the extensions.
type ExtensionMatcher []string

func (m ExtensionMatcher) Match(hint string) bool {
	for _, ext := range m {
		if strings.HasSuffix(hint, ext) {
			return true
		}
	}
	return false
}
