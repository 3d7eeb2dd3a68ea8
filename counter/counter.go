// Package counter maintains the per-user activity counters shown on profiles.
// Increments are single atomic operations so concurrent senders never lose an
// update.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go-referral/web/db"

	"github.com/go-redis/redis/v8"
)

type Counter interface {
	Incr(ctx context.Context, userID, field string, delta int64) error
	Get(ctx context.Context, userID string) (db.Counters, error)
	// Recount rebuilds db.DerivedFields of the given users from the documents
	// and returns how many values changed. An increment racing a recount is
	// never dropped.
	Recount(ctx context.Context, userIDs []string) (int, error)
}

// Documents counts the documents behind the derived counters.
type Documents interface {
	DerivedCounters(ctx context.Context, userID string) (db.Counters, error)
}

// Store keeps the counters in the users table, incremented with
// UPDATE ... SET f = f + ? (or under the lock of the memory store).
type Store struct {
	users db.UserStore
}

func NewStore(users db.UserStore) *Store {
	return &Store{users: users}
}

func (s *Store) Incr(ctx context.Context, userID, field string, delta int64) error {
	return s.users.IncrCounter(ctx, userID, field, delta)
}

func (s *Store) Get(ctx context.Context, userID string) (db.Counters, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Counters(), nil
}

func (s *Store) Recount(ctx context.Context, userIDs []string) (int, error) {
	return s.users.RecountCounters(ctx, userIDs)
}

// Redis keeps the counters in one hash per user, incremented with HINCRBY.
type Redis struct {
	client *redis.Client
	docs   Documents
	prefix string
}

func NewRedis(client *redis.Client, docs Documents) *Redis {
	return &Redis{client: client, docs: docs, prefix: "referral:counters:"}
}

const recountAttempts = 5

func (r *Redis) key(userID string) string {
	return r.prefix + userID
}

func (r *Redis) Incr(ctx context.Context, userID, field string, delta int64) error {
	if !db.ValidCounter(field) {
		return fmt.Errorf("unknown counter %q", field)
	}
	if err := r.client.HIncrBy(ctx, r.key(userID), field, delta).Err(); err != nil {
		return fmt.Errorf("redis hincrby %s: %w", field, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, userID string) (db.Counters, error) {
	vals, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make(db.Counters, len(db.CounterFields))
	for _, f := range db.CounterFields {
		out[f] = 0
		if v, ok := vals[f]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("counter %s: %w", f, err)
			}
			out[f] = n
		}
	}
	return out, nil
}

// Recount watches the user's hash before counting documents. An HINCRBY that
// lands before EXEC aborts the transaction and the user is counted again.
func (r *Redis) Recount(ctx context.Context, userIDs []string) (int, error) {
	changed := 0
	for _, id := range userIDs {
		n, err := r.recountUser(ctx, id)
		if err != nil {
			return changed, err
		}
		changed += n
	}
	return changed, nil
}

func (r *Redis) recountUser(ctx context.Context, userID string) (int, error) {
	key := r.key(userID)
	for attempt := 0; attempt < recountAttempts; attempt++ {
		changed := 0
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			want, err := r.docs.DerivedCounters(ctx, userID)
			if err != nil {
				return err
			}
			cur, err := tx.HMGet(ctx, key, db.DerivedFields...).Result()
			if err != nil {
				return err
			}
			var set []any
			for i, field := range db.DerivedFields {
				var have int64
				if s, ok := cur[i].(string); ok {
					if have, err = strconv.ParseInt(s, 10, 64); err != nil {
						return fmt.Errorf("counter %s: %w", field, err)
					}
				}
				if have != want[field] {
					set = append(set, field, want[field])
				}
			}
			if len(set) == 0 {
				return nil
			}
			changed = len(set) / 2
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, key, set...)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("redis recount %s: %w", userID, err)
		}
		return changed, nil
	}
	return 0, fmt.Errorf("redis recount %s: counters kept changing", userID)
}
