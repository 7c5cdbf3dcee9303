package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/redis/go-redis/v9"
)

// PingStatusKey is the Redis hash holding the latest ping outcome per URL.
const PingStatusKey = "ping_status"

// PingStatus is the last observed ping outcome for one subscriber URL.
type PingStatus struct {
	Success    bool      `json:"success"`
	StatusCode *int      `json:"statusCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	ResponseMs int64     `json:"responseTimeMs"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// PingStatusStore keeps an expiring last-value snapshot of ping outcomes.
// It holds no history.
type PingStatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPingStatusStore(client *redis.Client, ttl time.Duration) *PingStatusStore {
	return &PingStatusStore{client: client, ttl: ttl}
}

// RecordPings replaces the snapshot entries for every URL in results.
func (s *PingStatusStore) RecordPings(ctx context.Context, checkedAt time.Time, results []domain.DeliveryResult) error {
	if len(results) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(results)*2)
	for _, r := range results {
		data, err := json.Marshal(PingStatus{
			Success:    r.Success,
			StatusCode: r.StatusCode,
			Error:      r.Error,
			ResponseMs: r.ResponseMs,
			CheckedAt:  checkedAt.UTC(),
		})
		if err != nil {
			return fmt.Errorf("marshaling ping status for %s: %w", r.URL, err)
		}
		values = append(values, r.URL, string(data))
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, PingStatusKey, values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, PingStatusKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing ping status: %w", err)
	}
	return nil
}

// All returns the snapshot keyed by URL.
func (s *PingStatusStore) All(ctx context.Context) (map[string]PingStatus, error) {
	data, err := s.client.HGetAll(ctx, PingStatusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("reading ping status: %w", err)
	}

	out := make(map[string]PingStatus, len(data))
	for url, raw := range data {
		var st PingStatus
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("decoding ping status for %s: %w", url, err)
		}
		out[url] = st
	}
	return out, nil
}

// Forget drops a URL from the snapshot.
func (s *PingStatusStore) Forget(ctx context.Context, url string) error {
	if err := s.client.HDel(ctx, PingStatusKey, url).Err(); err != nil {
		return fmt.Errorf("deleting ping status for %s: %w", url, err)
	}
	return nil
}
