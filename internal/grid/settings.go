// internal/grid/settings.go
package grid

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/solatis/datagrid/internal/cache"
	"github.com/solatis/datagrid/internal/expr"
	"github.com/solatis/datagrid/internal/log"
	"github.com/solatis/datagrid/internal/types"
)

// Defaults applied by DefaultSettings.
const (
	DefaultCacheKeyPrefix  = "Datagrid"
	DefaultPageSize        = 10
	DefaultCleanupInterval = 5 * time.Minute
)

// Settings configures a Datagrid. Start from DefaultSettings: the zero value
// of CacheTimeout means "never expire", not "disabled".
type Settings struct {
	CacheKeyPrefix  string
	CacheTimeout    int // seconds; cache.TimeoutDisabled or cache.TimeoutNever or N
	DefaultPageSize int
	// Isolation of the transaction wrapping a cache miss. sql.LevelDefault is
	// replaced by sql.LevelReadUncommitted.
	Isolation       sql.IsolationLevel
	CleanupInterval time.Duration // sweep interval of the default memory store
	Translations    []types.TranslatorSetting
	Verbs           map[string]expr.VerbFunc // added to or replacing the default verbs
	Logger          log.Logger
}

// DefaultSettings returns caching disabled, ten records per page and
// read-uncommitted isolation.
func DefaultSettings() Settings {
	return Settings{
		CacheKeyPrefix:  DefaultCacheKeyPrefix,
		CacheTimeout:    cache.TimeoutDisabled,
		DefaultPageSize: DefaultPageSize,
		Isolation:       sql.LevelReadUncommitted,
		CleanupInterval: DefaultCleanupInterval,
	}
}

func (s Settings) normalized() Settings {
	if s.CacheKeyPrefix == "" {
		s.CacheKeyPrefix = DefaultCacheKeyPrefix
	}
	if s.CacheTimeout < cache.TimeoutDisabled {
		s.CacheTimeout = cache.TimeoutDisabled
	}
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = DefaultPageSize
	}
	if s.Isolation == sql.LevelDefault {
		s.Isolation = sql.LevelReadUncommitted
	}
	if s.Logger == nil {
		s.Logger = log.Nop()
	}
	return s
}

var isolationLevels = map[string]sql.IsolationLevel{
	"default":          sql.LevelDefault,
	"read-uncommitted": sql.LevelReadUncommitted,
	"read-committed":   sql.LevelReadCommitted,
	"write-committed":  sql.LevelWriteCommitted,
	"repeatable-read":  sql.LevelRepeatableRead,
	"snapshot":         sql.LevelSnapshot,
	"serializable":     sql.LevelSerializable,
	"linearizable":     sql.LevelLinearizable,
}

// ParseIsolationLevel maps "read-uncommitted" style names (also with
// underscores or spaces) to sql.IsolationLevel.
func ParseIsolationLevel(name string) (sql.IsolationLevel, error) {
	key := strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(strings.TrimSpace(name)))
	level, ok := isolationLevels[key]
	if !ok {
		return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", name)
	}
	return level, nil
}
