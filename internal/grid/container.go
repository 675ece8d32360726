// internal/grid/container.go
package grid

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/solatis/datagrid/internal/cache"
	"github.com/solatis/datagrid/internal/expr"
	"github.com/solatis/datagrid/internal/log"
)

/*
 * Capability container.
 *
 * Maps a capability, identified by the reflect.Type of its interface (or
 * pointer type), to a constructor. New resolves every capability once, so
 * a Datagrid never looks anything up while serving requests.
 *
 * Default providers:
 *   ParameterParser  -> ParameterManager
 *   Translator       -> TranslatorManager over Settings.Translations
 *   *expr.Verbs      -> default verbs plus Settings.Verbs
 *   *FilterManager   -> verbs + translator
 *   *SorterManager   -> descending fallback
 *   Boundary         -> NopBoundary
 *   cache.Store      -> MemoryStore
 *   log.Logger       -> Settings.Logger
 *
 * Provide replaces a default. Constructors may resolve other capabilities;
 * cycles are not detected.
 */

// ErrNoProvider is returned when resolving a capability nobody provides.
var ErrNoProvider = errors.New("no provider registered")

type provider func(*Container) (any, error)

// Container holds capability constructors and their resolved instances.
type Container struct {
	settings Settings

	mu        sync.Mutex
	providers map[reflect.Type]provider
	instances map[reflect.Type]any
}

// NewContainer registers the default providers.
func NewContainer(settings Settings) *Container {
	c := &Container{
		settings:  settings.normalized(),
		providers: map[reflect.Type]provider{},
		instances: map[reflect.Type]any{},
	}

	Provide(c, func(c *Container) (ParameterParser, error) {
		return NewParameterManager(c.settings.DefaultPageSize), nil
	})
	Provide(c, func(c *Container) (Translator, error) {
		return NewTranslatorManager(c.settings.Translations), nil
	})
	Provide(c, func(c *Container) (*expr.Verbs, error) {
		return expr.NewVerbs(c.settings.Verbs), nil
	})
	Provide(c, func(c *Container) (*FilterManager, error) {
		verbs, err := Resolve[*expr.Verbs](c)
		if err != nil {
			return nil, err
		}
		translator, err := Resolve[Translator](c)
		if err != nil {
			return nil, err
		}
		return NewFilterManager(verbs, translator), nil
	})
	Provide(c, func(*Container) (*SorterManager, error) {
		return NewSorterManager(), nil
	})
	Provide(c, func(*Container) (Boundary, error) {
		return NopBoundary{}, nil
	})
	Provide(c, func(c *Container) (cache.Store, error) {
		return cache.NewMemoryStore(c.settings.CleanupInterval), nil
	})
	Provide(c, func(c *Container) (log.Logger, error) {
		return c.settings.Logger, nil
	})
	return c
}

// Settings returns the normalized settings the container was built with.
func (c *Container) Settings() Settings {
	return c.settings
}

// Provide registers ctor for capability I, replacing any previous one.
func Provide[I any](c *Container, ctor func(*Container) (I, error)) {
	t := reflect.TypeFor[I]()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[t] = func(c *Container) (any, error) { return ctor(c) }
	delete(c.instances, t)
}

// Use registers a ready-made instance for capability I.
func Use[I any](c *Container, instance I) {
	Provide(c, func(*Container) (I, error) { return instance, nil })
}

// Resolve returns the instance of capability I, constructing it on first use.
func Resolve[I any](c *Container) (I, error) {
	var zero I
	t := reflect.TypeFor[I]()

	c.mu.Lock()
	if v, ok := c.instances[t]; ok {
		c.mu.Unlock()
		inst, _ := v.(I)
		return inst, nil
	}
	ctor, ok := c.providers[t]
	c.mu.Unlock()
	if !ok {
		return zero, fmt.Errorf("%w for %s", ErrNoProvider, t)
	}

	v, err := ctor(c)
	if err != nil {
		return zero, fmt.Errorf("failed to construct %s: %w", t, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[t]; ok {
		v = existing
	} else {
		c.instances[t] = v
	}
	inst, _ := v.(I)
	return inst, nil
}
