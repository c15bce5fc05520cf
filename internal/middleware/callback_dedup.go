package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// CallbackDeduper tracks already-seen Daraja checkout request IDs. The
// provider delivers callbacks at-least-once; deduplication keeps immediate
// retries from reaching the reconciler at all. The reconciler is still
// idempotent on its own.
type CallbackDeduper interface {
	Seen(ctx context.Context, checkoutRequestID string) (bool, error)
}

type redisCallbackDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisCallbackDeduper) Seen(ctx context.Context, checkoutRequestID string) (bool, error) {
	key := d.prefix + ":" + checkoutRequestID
	ok, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	// false => key already exists => duplicate
	return !ok, nil
}

type memoryCallbackDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryCallbackDeduper(ttl time.Duration) *memoryCallbackDeduper {
	now := time.Now()
	return &memoryCallbackDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: now.Add(ttl),
	}
}

func (d *memoryCallbackDeduper) Seen(_ context.Context, checkoutRequestID string) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[checkoutRequestID]; ok && exp.After(now) {
		return true, nil
	}

	d.seen[checkoutRequestID] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for id, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, id)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}

	return false, nil
}

// NewCallbackDeduper builds a Redis deduper and falls back to in-memory on
// failure.
func NewCallbackDeduper(addr, pass string, db int, ttl time.Duration) (CallbackDeduper, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if addr == "" {
		return newMemoryCallbackDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryCallbackDeduper(ttl), err
	}

	return &redisCallbackDeduper{
		client: client,
		prefix: "mpesa:callback",
		ttl:    ttl,
	}, nil
}

// MpesaCallbackDedup short-circuits duplicate provider callbacks by
// CheckoutRequestID. Duplicates are acknowledged exactly like processed
// callbacks, so the provider stops retrying either way.
func MpesaCallbackDedup(deduper CallbackDeduper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if deduper == nil {
				return next(c)
			}

			req := c.Request()
			if req.Body == nil {
				return next(c)
			}

			rawBody, err := io.ReadAll(req.Body)
			if err != nil {
				return next(c)
			}
			req.Body = io.NopCloser(bytes.NewBuffer(rawBody))
			if len(rawBody) == 0 {
				return next(c)
			}

			var payload struct {
				Body struct {
					StkCallback struct {
						CheckoutRequestID string `json:"CheckoutRequestID"`
					} `json:"stkCallback"`
				} `json:"Body"`
			}
			if err := json.Unmarshal(rawBody, &payload); err != nil || payload.Body.StkCallback.CheckoutRequestID == "" {
				return next(c)
			}

			isDuplicate, err := deduper.Seen(req.Context(), payload.Body.StkCallback.CheckoutRequestID)
			if err != nil {
				return next(c)
			}
			if isDuplicate {
				return c.JSON(http.StatusOK, map[string]interface{}{
					"ResultCode": 0,
					"ResultDesc": "Success",
				})
			}

			return next(c)
		}
	}
}
