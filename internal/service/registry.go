package service

import (
	"context"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/scrapers/isu"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const report_registry_close = "registry.close"

const (
	registrySize = 2048
	closeTimeout = 10 * time.Second
)

// session is a portal client bound to a browser, the mutex serializes every
// use of the client since it is not safe for concurrent use.
type session struct {
	mutex  sync.Mutex
	client *isu.Client
}

// registry keeps the portal sessions of browsers for a limited time, a session
// that leaves the registry for any reason is closed, which logs it out.
type registry struct {
	cache   *expirable.LRU[string, *session]
	closing sync.WaitGroup
	tel     telemetry.API
}

func newRegistry(ttl time.Duration, tel telemetry.API) *registry {
	r := &registry{tel: tel}
	r.cache = expirable.NewLRU[string, *session](registrySize, r.onEvict, ttl)
	return r
}

// onEvict runs while the cache is locked, so closing happens in the background.
func (r *registry) onEvict(id string, s *session) {
	r.closing.Add(1)
	go func() {
		defer r.closing.Done()

		s.mutex.Lock()
		defer s.mutex.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		err := s.client.Close(ctx)
		if err != nil {
			r.tel.ReportWarning(report_registry_close, err, id)
		}
	}()
}

func (r *registry) Get(id string) (*session, bool) {
	if id == "" {
		return nil, false
	}
	return r.cache.Get(id)
}

func (r *registry) Add(id string, client *isu.Client) *session {
	s := &session{client: client}
	r.cache.Add(id, s)
	return s
}

// Remove drops a session and closes it.
func (r *registry) Remove(id string) {
	r.cache.Remove(id)
}

func (r *registry) Len() int {
	return r.cache.Len()
}

// Shutdown closes every session and waits for the logouts to finish or for ctx
// to be done.
func (r *registry) Shutdown(ctx context.Context) error {
	r.cache.Purge()

	done := make(chan struct{})
	go func() {
		r.closing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
