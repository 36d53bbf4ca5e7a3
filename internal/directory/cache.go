package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"energy_usage/internal/logger"
	"energy_usage/internal/metrics"
	"energy_usage/internal/models"

	"github.com/go-redis/redis/v8"
)

// kv is the subset of redis used by the cache.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache is a read-through redis cache in front of the directories. Only
// single-record lookups are cached; DevicesForUser always hits the directory.
// Redis failures fall back to the directory.
type Cache struct {
	rdb     kv
	ttl     time.Duration
	devices DeviceDirectory
	users   UserDirectory
	log     *logger.Logger
}

// Ensure implementation of both directory interfaces at compile time.
var (
	_ DeviceDirectory = (*Cache)(nil)
	_ UserDirectory   = (*Cache)(nil)
)

// NewRedisClient connects and pings redis.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func NewCache(rdb kv, ttl time.Duration, dirs Directories, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{rdb: rdb, ttl: ttl, devices: dirs.Devices, users: dirs.Users, log: log}
}

// Directories returns the cache as both lookups.
func (c *Cache) Directories() Directories {
	return Directories{Devices: c, Users: c}
}

func deviceKey(id int64) string { return "directory:device:" + strconv.FormatInt(id, 10) }
func userKey(id int64) string   { return "directory:user:" + strconv.FormatInt(id, 10) }

func (c *Cache) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	var dev models.Device
	if c.load(ctx, "device", deviceKey(id), &dev) {
		return dev, nil
	}
	dev, err := c.devices.GetDevice(ctx, id)
	if err != nil {
		return models.Device{}, err
	}
	c.store(ctx, deviceKey(id), dev)
	return dev, nil
}

func (c *Cache) DevicesForUser(ctx context.Context, userID int64) ([]models.Device, error) {
	return c.devices.DevicesForUser(ctx, userID)
}

func (c *Cache) GetUser(ctx context.Context, id int64) (models.User, error) {
	var usr models.User
	if c.load(ctx, "user", userKey(id), &usr) {
		return usr, nil
	}
	usr, err := c.users.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	c.store(ctx, userKey(id), usr)
	return usr, nil
}

// load reports whether key was found and decoded into out.
func (c *Cache) load(ctx context.Context, directory, key string, out any) bool {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnw("directory_cache_get_failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		c.log.Warnw("directory_cache_decode_failed", "key", key, "err", err)
		return false
	}
	metrics.DirectoryLookups.WithLabelValues(directory, metrics.ResultCached).Inc()
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warnw("directory_cache_set_failed", "key", key, "err", err)
	}
}
