package flags

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/cache/compressed"
	"github.com/chatlens/chatlens/pkg/cache/dbcache"
	"github.com/chatlens/chatlens/pkg/cache/memory"
	"github.com/chatlens/chatlens/pkg/cache/redis"
	"github.com/chatlens/chatlens/pkg/db"
)

const (
	CacheBackendDB     = "db"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// CacheFlags selects where report results are cached.
type CacheFlags struct {
	Backend  string
	RedisURL string
	Compress bool
}

func NewCacheFlags() *CacheFlags {
	return &CacheFlags{Backend: CacheBackendDB}
}

func (f *CacheFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Backend, "cache", f.Backend, "Report cache backend: db, redis, memory or none")
	fs.StringVar(&f.RedisURL,
		"redis-url",
		os.Getenv("REDIS_URL"),
		"Redis URL for caching, used with --cache=redis")
	fs.BoolVar(&f.Compress, "cache-compress", false, "gzip cached reports")
}

func (f *CacheFlags) Validate() error {
	switch f.Backend {
	case CacheBackendDB, CacheBackendMemory, CacheBackendNone:
		return nil
	case CacheBackendRedis:
		if f.RedisURL == "" {
			return fmt.Errorf("--redis-url is required with --cache=%s", CacheBackendRedis)
		}
		return nil
	}
	return fmt.Errorf("unknown cache backend %q", f.Backend)
}

// GetCacheClient builds the configured cache. dbc is only used by the db
// backend. A nil cache means reports are always generated.
func (f *CacheFlags) GetCacheClient(dbc *db.DB) (cache.Cache, error) {
	var c cache.Cache
	switch f.Backend {
	case CacheBackendDB:
		if dbc == nil {
			return nil, fmt.Errorf("the %s cache needs a database", CacheBackendDB)
		}
		c = dbcache.NewCache(dbc)
	case CacheBackendRedis:
		r, err := redis.NewRedisCache(f.RedisURL)
		if err != nil {
			return nil, err
		}
		c = r
	case CacheBackendMemory:
		c = memory.NewCache()
	case CacheBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.Backend)
	}

	if f.Compress {
		c = compressed.NewCompressedCache(c)
	}
	return c, nil
}
