package client

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nhle/todolist/internal/localstore"
)

// QueuedRequest is a mutating request deferred while offline.
type QueuedRequest struct {
	ID       string          `json:"id"`
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body,omitempty"`
	// Ref is the caller's handle on the entry, set with WithQueueRef.
	Ref string `json:"ref,omitempty"`
}

type queueRefKey struct{}

// WithQueueRef tags a request that ends up in the offline queue with ref,
// so it can later be rewritten with RewriteQueued or dropped with
// CancelQueued.
func WithQueueRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, queueRefKey{}, ref)
}

func queueRef(ctx context.Context) string {
	ref, _ := ctx.Value(queueRefKey{}).(string)
	return ref
}

// queue is the durable offline queue under localstore.QueueKey. Entries
// handed to a flush stay stored until the flush finishes but can no longer
// be rewritten.
type queue struct {
	mu       sync.Mutex
	storage  localstore.Storage
	inflight map[string]bool
}

func (q *queue) load() ([]QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

func (q *queue) loadLocked() ([]QueuedRequest, error) {
	data, ok, err := q.storage.Get(localstore.QueueKey)
	if err != nil {
		return nil, fmt.Errorf("reading offline queue: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var entries []QueuedRequest
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing offline queue: %w", err)
	}
	return entries, nil
}

func (q *queue) storeLocked(entries []QueuedRequest) error {
	if len(entries) == 0 {
		if err := q.storage.Remove(localstore.QueueKey); err != nil {
			return fmt.Errorf("clearing offline queue: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding offline queue: %w", err)
	}
	if err := q.storage.Set(localstore.QueueKey, data); err != nil {
		return fmt.Errorf("writing offline queue: %w", err)
	}
	return nil
}

func (q *queue) push(method, endpoint, ref string, body []byte) (QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.loadLocked()
	if err != nil {
		return QueuedRequest{}, err
	}

	entry := QueuedRequest{
		ID:       uuid.New().String(),
		Endpoint: endpoint,
		Method:   method,
		Body:     body,
		Ref:      ref,
	}
	if err := q.storeLocked(append(entries, entry)); err != nil {
		return QueuedRequest{}, err
	}
	return entry, nil
}

// update finds the entry tagged ref that is not being flushed and applies
// fn to it. fn returning false removes the entry. found is false when no
// such entry exists.
func (q *queue) update(ref string, fn func(*QueuedRequest) bool) (found bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.loadLocked()
	if err != nil {
		return false, err
	}
	i := slices.IndexFunc(entries, func(e QueuedRequest) bool {
		return e.Ref == ref && !q.inflight[e.ID]
	})
	if ref == "" || i < 0 {
		return false, nil
	}

	if fn(&entries[i]) {
		return true, q.storeLocked(entries)
	}
	return true, q.storeLocked(slices.Delete(entries, i, i+1))
}

// begin returns the entries not already being flushed, in enqueue order,
// and marks them in flight.
func (q *queue) begin() ([]QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.loadLocked()
	if err != nil {
		return nil, err
	}
	if q.inflight == nil {
		q.inflight = make(map[string]bool)
	}
	var batch []QueuedRequest
	for _, e := range entries {
		if !q.inflight[e.ID] {
			q.inflight[e.ID] = true
			batch = append(batch, e)
		}
	}
	return batch, nil
}

// finish removes the flushed entries. Entries queued since begin stay.
func (q *queue) finish(batch []QueuedRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	done := make(map[string]bool, len(batch))
	for _, e := range batch {
		done[e.ID] = true
		delete(q.inflight, e.ID)
	}

	entries, err := q.loadLocked()
	if err != nil {
		return err
	}
	return q.storeLocked(slices.DeleteFunc(entries, func(e QueuedRequest) bool { return done[e.ID] }))
}
