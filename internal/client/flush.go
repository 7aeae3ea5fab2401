package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sourcegraph/conc/pool"
)

// FlushResult summarizes one FlushQueue run.
type FlushResult struct {
	Replayed int
	Failed   int
}

// Pending returns the queued requests in enqueue order.
func (c *Client) Pending() ([]QueuedRequest, error) {
	return c.queue.load()
}

// FlushQueue replays the queued requests in enqueue order and then removes
// them from the queue. Each replay settles independently; failures are
// logged and dropped, and a later sync reconciles whatever they would have
// changed. Requests queued while a flush runs are left for the next one.
func (c *Client) FlushQueue(ctx context.Context) (FlushResult, error) {
	batch, err := c.queue.begin()
	if err != nil {
		return FlushResult{}, err
	}
	if len(batch) == 0 {
		return FlushResult{}, nil
	}

	type outcome struct {
		entry QueuedRequest
		err   error
	}
	p := pool.NewWithResults[outcome]().WithMaxGoroutines(c.flushWorkers)
	for _, entry := range batch {
		p.Go(func() outcome {
			return outcome{entry: entry, err: c.replay(ctx, entry)}
		})
	}
	outcomes := p.Wait()

	if err := c.queue.finish(batch); err != nil {
		return FlushResult{}, err
	}

	var res FlushResult
	for _, o := range outcomes {
		if o.err != nil {
			res.Failed++
			c.logger.Warn("replaying queued request",
				"id", o.entry.ID, "method", o.entry.Method,
				"path", o.entry.Endpoint, "error", o.err)
			continue
		}
		res.Replayed++
	}
	c.logger.Info("offline queue flushed", "replayed", res.Replayed, "failed", res.Failed)
	return res, nil
}

// RewriteQueued replaces the body of the queued request tagged ref. It
// reports false when no such request is waiting, including when it is
// already being replayed.
func (c *Client) RewriteQueued(ref string, body any) (bool, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("marshaling queued body: %w", err)
	}
	return c.queue.update(ref, func(e *QueuedRequest) bool {
		e.Body = data
		return true
	})
}

// CancelQueued removes the queued request tagged ref. It reports false when
// no such request is waiting.
func (c *Client) CancelQueued(ref string) (bool, error) {
	return c.queue.update(ref, func(*QueuedRequest) bool { return false })
}

func (c *Client) replay(ctx context.Context, entry QueuedRequest) error {
	var payload []byte
	if len(entry.Body) > 0 {
		payload = entry.Body
	}
	resp, err := c.send(ctx, entry.Method, entry.Endpoint, payload)
	if err != nil {
		return &NetworkError{Method: entry.Method, Path: entry.Endpoint, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.tokens.ClearToken(); err != nil {
			c.logger.Warn("clearing token after 401", "error", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("replay %s %s: HTTP %d", entry.Method, entry.Endpoint, resp.StatusCode)
	}
	return nil
}
