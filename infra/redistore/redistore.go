package redistore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
)

// Store keeps the cache-shaped engine state in Redis: per-vehicle forecast
// documents and the debounce queue. Durable documents (vehicles, orders,
// trips) stay in the primary document store.
type Store struct {
	cli *redis.Client
}

// Config defines the Redis connection.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Store, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redistore: ping %s: %w", cfg.Addr, err)
	}
	return &Store{cli: cli}, nil
}

// Close releases the client.
func (s *Store) Close() error { return s.cli.Close() }

func forecastKey(orgID, vehicleID string) string {
	return "tripcast:" + orgID + ":forecast:" + vehicleID
}

func queueKey(orgID string) string {
	return "tripcast:" + orgID + ":recalcq"
}

const orgsKey = "tripcast:recalcq:orgs"

func (s *Store) Forecast(ctx context.Context, orgID, vehicleID string) (model.Forecast, error) {
	doc, err := s.cli.Get(ctx, forecastKey(orgID, vehicleID)).Result()
	if err == redis.Nil {
		return model.Forecast{}, store.ErrNotFound
	}
	if err != nil {
		return model.Forecast{}, err
	}
	var fc model.Forecast
	if err := json.Unmarshal([]byte(doc), &fc); err != nil {
		return model.Forecast{}, fmt.Errorf("unmarshal forecast: %w", err)
	}
	return fc, nil
}

func (s *Store) PutForecast(ctx context.Context, orgID string, f model.Forecast) error {
	doc, err := json.Marshal(f)
	if err != nil {
		return err
	}
	// SET replaces the whole document, matching the cache's
	// full-replacement write contract.
	return s.cli.Set(ctx, forecastKey(orgID, f.VehicleID), doc, 0).Err()
}

func (s *Store) Upsert(ctx context.Context, e model.RecalcEntry) error {
	key := queueKey(e.OrgID)
	prev, err := s.cli.HGet(ctx, key, e.VehicleID).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil {
		var existing model.RecalcEntry
		if uerr := json.Unmarshal([]byte(prev), &existing); uerr == nil {
			e.EnqueuedAt = existing.EnqueuedAt
		}
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.cli.TxPipeline()
	pipe.HSet(ctx, key, e.VehicleID, doc)
	pipe.SAdd(ctx, orgsKey, e.OrgID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Due(ctx context.Context, orgID string, now time.Time) ([]model.RecalcEntry, error) {
	entries, err := s.cli.HGetAll(ctx, queueKey(orgID)).Result()
	if err != nil {
		return nil, err
	}
	var res []model.RecalcEntry
	for vehicleID, doc := range entries {
		var e model.RecalcEntry
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("unmarshal queue entry for vehicle %s: %w", vehicleID, err)
		}
		if !e.ScheduledAt.After(now) {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ScheduledAt.Before(res[j].ScheduledAt) })
	return res, nil
}

func (s *Store) Delete(ctx context.Context, orgID, vehicleID string) error {
	key := queueKey(orgID)
	if err := s.cli.HDel(ctx, key, vehicleID).Err(); err != nil {
		return err
	}
	n, err := s.cli.HLen(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.cli.SRem(ctx, orgsKey, orgID).Err()
	}
	return nil
}

func (s *Store) Orgs(ctx context.Context) ([]string, error) {
	orgs, err := s.cli.SMembers(ctx, orgsKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(orgs)
	return orgs, nil
}
