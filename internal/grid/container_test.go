package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/datagrid/internal/cache"
	"github.com/solatis/datagrid/internal/expr"
)

type upperTranslator struct{}

func (upperTranslator) Translate(_, text string) string { return text + "!" }

func TestContainer_Defaults(t *testing.T) {
	c := NewContainer(DefaultSettings())

	parser, err := Resolve[ParameterParser](c)
	require.NoError(t, err)
	assert.IsType(t, &ParameterManager{}, parser)

	store, err := Resolve[cache.Store](c)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStore{}, store)
	defer store.Close()

	boundary, err := Resolve[Boundary](c)
	require.NoError(t, err)
	assert.Equal(t, NopBoundary{}, boundary)

	again, err := Resolve[ParameterParser](c)
	require.NoError(t, err)
	assert.Same(t, parser, again, "instances are resolved once")
}

func TestContainer_Override(t *testing.T) {
	c := NewContainer(DefaultSettings())
	Use[Translator](c, upperTranslator{})

	fm, err := Resolve[*FilterManager](c)
	require.NoError(t, err)
	assert.Equal(t, "x!", fm.translator.Translate("col", "x"))
}

func TestContainer_Errors(t *testing.T) {
	c := NewContainer(DefaultSettings())

	_, err := Resolve[error](c)
	assert.ErrorIs(t, err, ErrNoProvider)

	boom := errors.New("boom")
	Provide(c, func(*Container) (Translator, error) { return nil, boom })
	_, err = Resolve[*FilterManager](c)
	assert.ErrorIs(t, err, boom)
}

func TestContainer_SettingsNormalized(t *testing.T) {
	c := NewContainer(Settings{CacheTimeout: -7})
	s := c.Settings()
	assert.Equal(t, DefaultCacheKeyPrefix, s.CacheKeyPrefix)
	assert.Equal(t, -1, s.CacheTimeout)
	assert.Equal(t, DefaultPageSize, s.DefaultPageSize)
	assert.NotNil(t, s.Logger)
}

func TestContainer_VerbsFromSettings(t *testing.T) {
	s := DefaultSettings()
	s.Verbs = map[string]expr.VerbFunc{
		"equals": func(value, keyword string) bool { return value == keyword },
	}
	g, err := New(s, func(c *Container) {
		Use[ParameterParser](c, NewParameterManager(3))
	})
	require.NoError(t, err)
	defer g.Close()

	ps := g.params.Parse(map[string]string{})
	assert.Equal(t, 3, ps.PageSize)
	assert.Equal(t, []string{"contains", "endswith", "equals", "startswith"}, g.Verbs().Names())
}
