package auth

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/knowledgebrain/knowbrain/internal/common"
	"github.com/knowledgebrain/knowbrain/internal/logging"
)

// RenewFunc performs the actual network renewal call and returns the fresh
// credential together with the identity it belongs to.
type RenewFunc func(ctx context.Context) (string, Identity, error)

// Refresher collapses concurrent renewal needs into a single network call.
//
// Any number of callers may invoke Renew at the same time; exactly one
// renewal call is issued and every caller observes its settled outcome. On
// success the fresh credential is stored before any caller resumes. On
// failure the store is cleared (the session is invalidated) and every caller
// receives ErrSessionExpired; the renewal is not retried automatically, so a
// permanently invalid session cannot cause a refresh loop.
//
// The gate returns to idle after every attempt and is reusable indefinitely.
type Refresher struct {
	store *Store
	renew RenewFunc
	group singleflight.Group
	log   logging.Logger
}

func NewRefresher(store *Store, renew RenewFunc, log logging.Logger) *Refresher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Refresher{store: store, renew: renew, log: log}
}

// Renew returns a fresh credential, issuing at most one renewal call no
// matter how many goroutines ask concurrently.
func (r *Refresher) Renew(ctx context.Context) (string, error) {
	v, err, shared := r.group.Do("renew", func() (any, error) {
		token, id, err := r.renew(ctx)
		if err != nil {
			r.store.Clear()
			r.log.Warn(ctx, "session renewal failed, session invalidated", "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrSessionExpired, err)
		}
		r.store.Set(token, id)
		r.log.Debug(ctx, "session renewed")
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		r.log.Debug(ctx, "renewal outcome shared with waiter")
	}
	return v.(string), nil
}
