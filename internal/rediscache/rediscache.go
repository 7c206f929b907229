package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// Redis keys. The hash mirror and the config keys survive process restarts
// and are shared by every backend instance.
const (
	itemsKey   = "queue:items"
	rulesKey   = "queue:priority:rules"
	vipKey     = "queue:priority:vip"
	historyKey = "queue:distribution:history"
	counterKey = "queue:rr:" // + departmentID

	historyMax = 1000
)

// Cache wraps the redis client with the queue core's access patterns:
// item mirror, round-robin counters, priority rule storage and the
// distribution history list
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

// Config holds redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects to redis and verifies the connection
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("redis cache connected")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "rediscache").Logger(),
	}, nil
}

// Close releases the client
func (c *Cache) Close() error {
	return c.client.Close()
}

// SaveItem mirrors a queue item into the items hash
func (c *Cache) SaveItem(ctx context.Context, item *types.QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}
	if err := c.client.HSet(ctx, itemsKey, item.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to mirror queue item: %w", err)
	}
	return nil
}

// RemoveItem drops a queue item from the items hash
func (c *Cache) RemoveItem(ctx context.Context, id string) error {
	if err := c.client.HDel(ctx, itemsKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove mirrored queue item: %w", err)
	}
	return nil
}

// LoadItems returns every mirrored queue item. Entries that fail to decode
// are skipped and logged.
func (c *Cache) LoadItems(ctx context.Context) ([]*types.QueueItem, error) {
	entries, err := c.client.HGetAll(ctx, itemsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load mirrored queue items: %w", err)
	}

	items := make([]*types.QueueItem, 0, len(entries))
	for id, data := range entries {
		var item types.QueueItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			c.logger.Error().Err(err).Str("item_id", id).Msg("skipping undecodable mirrored item")
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// Next atomically advances the round-robin counter for a department pool.
// The first call for a pool returns 0.
func (c *Cache) Next(poolID string) (int64, error) {
	n, err := c.client.Incr(context.Background(), counterKey+poolID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to advance round-robin counter: %w", err)
	}
	return n - 1, nil
}

// PriorityRules loads the configured rule list. A missing key means no
// rules are configured.
func (c *Cache) PriorityRules(ctx context.Context) ([]types.PriorityRule, error) {
	data, err := c.client.Get(ctx, rulesKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load priority rules: %w", err)
	}

	var rules []types.PriorityRule
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("failed to decode priority rules: %w", err)
	}
	return rules, nil
}

// SetPriorityRules replaces the configured rule list
func (c *Cache) SetPriorityRules(ctx context.Context, rules []types.PriorityRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal priority rules: %w", err)
	}
	if err := c.client.Set(ctx, rulesKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store priority rules: %w", err)
	}
	return nil
}

// VIPConfig loads the global VIP allow-list. A missing key yields an empty
// list with a high default priority.
func (c *Cache) VIPConfig(ctx context.Context) (types.VIPConfig, error) {
	data, err := c.client.Get(ctx, vipKey).Result()
	if err == redis.Nil {
		return types.VIPConfig{DefaultPriority: types.PriorityHigh}, nil
	}
	if err != nil {
		return types.VIPConfig{}, fmt.Errorf("failed to load VIP config: %w", err)
	}

	var cfg types.VIPConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return types.VIPConfig{}, fmt.Errorf("failed to decode VIP config: %w", err)
	}
	return cfg, nil
}

// SetVIPConfig replaces the global VIP allow-list
func (c *Cache) SetVIPConfig(ctx context.Context, cfg types.VIPConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal VIP config: %w", err)
	}
	if err := c.client.Set(ctx, vipKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store VIP config: %w", err)
	}
	return nil
}

// AddAssignment appends to the distribution history list, trimmed to the
// most recent entries
func (c *Cache) AddAssignment(ctx context.Context, record types.AssignmentRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment record: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, -historyMax, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record assignment history: %w", err)
	}
	return nil
}

// History returns up to limit of the most recent assignment records
func (c *Cache) History(ctx context.Context, limit int) ([]types.AssignmentRecord, error) {
	if limit <= 0 || limit > historyMax {
		limit = 100
	}

	entries, err := c.client.LRange(ctx, historyKey, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment history: %w", err)
	}

	records := make([]types.AssignmentRecord, 0, len(entries))
	for _, data := range entries {
		var record types.AssignmentRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			c.logger.Error().Err(err).Msg("skipping undecodable history record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
