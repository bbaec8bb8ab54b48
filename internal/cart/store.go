package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-masala/internal/catalog"
	"github.com/noah-isme/backend-masala/internal/pricing"
)

// Notice is a message queued on the cart for the storefront to surface on
// the next read, e.g. when a mix candidate went out of stock.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ItemID  string `json:"itemId,omitempty"`
}

// Notice codes.
const (
	NoticeStaleSelection = "stale_selection_dropped"
	NoticeLineRemoved    = "line_removed_unavailable"
)

// Cart is the session document stored in Redis. It owns the ordered line
// sequence and the mix counter used to label mix lines.
type Cart struct {
	ID         string             `json:"id"`
	Storefront catalog.Storefront `json:"storefront"`
	Lines      []pricing.Line     `json:"lines"`
	MixCounter int                `json:"mixCounter"`
	Notices    []Notice           `json:"notices,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Store persists carts as JSON documents in Redis with a sliding TTL. An
// index set tracks live cart ids for background revalidation.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

const indexKey = "cart:index"

func docKey(id string) string { return "cart:doc:" + id }

// LockKey is the Redis key serialising writers for one cart.
func LockKey(id string) string { return "cart:lock:" + id }

// Get loads a cart document. The second return reports existence.
func (s *Store) Get(ctx context.Context, id string) (Cart, bool, error) {
	data, err := s.Client.Get(ctx, docKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Cart{}, false, nil
		}
		return Cart{}, false, fmt.Errorf("get cart %s: %w", id, err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, false, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return c, true, nil
}

// Save writes the cart document and refreshes its TTL.
func (s *Store) Save(ctx context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", c.ID, err)
	}
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, docKey(c.ID), data, s.TTL)
	pipe.SAdd(ctx, indexKey, c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save cart %s: %w", c.ID, err)
	}
	return nil
}

// Delete removes the cart document and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.Client.TxPipeline()
	pipe.Del(ctx, docKey(id))
	pipe.SRem(ctx, indexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}

// IDs lists cart ids known to the index. Expired documents may still be
// indexed; callers must tolerate missing carts.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.Client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list cart ids: %w", err)
	}
	return ids, nil
}
