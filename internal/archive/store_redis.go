package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

// RedisStore keeps one JSON document per match plus an index set of active ids.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.ID) == "" { return ErrNotFound }
	raw, err := json.Marshal(rec)
	if err != nil { return err }
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, matchKey(rec.ID), raw, s.ttl)
		if rec.Finished {
			p.SRem(ctx, activeKey(), rec.ID)
		} else {
			p.SAdd(ctx, activeKey(), rec.ID)
			// 인덱스 TTL도 갱신하여 누적 방지
			p.Expire(ctx, activeKey(), s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == redis.Nil { return nil, ErrNotFound }
	if err != nil { return nil, err }
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil { return nil, fmt.Errorf("decode record %s: %w", id, err) }
	return &rec, nil
}

// ListActive drops index entries whose document has expired.
func (s *RedisStore) ListActive(ctx context.Context) ([]*Record, error) {
	ids, err := s.rdb.SMembers(ctx, activeKey()).Result()
	if err != nil { return nil, err }
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Load(ctx, id)
		if err == ErrNotFound {
			_ = s.rdb.SRem(ctx, activeKey(), id).Err()
			continue
		}
		if err != nil { return nil, err }
		if !rec.Finished {
			out = append(out, rec)
		}
	}
	sortRecent(out)
	return out, nil
}

func (s *RedisStore) MarkFinished(ctx context.Context, rec *Record) error {
	if rec == nil { return ErrNotFound }
	c := rec.clone()
	c.Finished = true
	return s.SaveSnapshot(ctx, c)
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func matchKey(id string) string { return "chess-tui:match:" + strings.TrimSpace(id) }
func activeKey() string         { return "chess-tui:index:active" }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil { return nil, err }
	if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" { if n, err := strconv.Atoi(p); err == nil { db = n } }
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
