package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// FetchFunc retrieves the vendor checkout script.
type FetchFunc func(ctx context.Context) ([]byte, error)

// HTTPFetch downloads url with the given timeout.
func HTTPFetch(url string, timeout time.Duration) FetchFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("checkout script returned %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

type loadCall struct {
	done   chan struct{}
	script []byte
	err    error
}

// ScriptLoader loads the checkout script at most once. Concurrent callers
// share the in-flight load. A failed load is forgotten so the next call
// tries again.
type ScriptLoader struct {
	fetch FetchFunc

	mu   sync.Mutex
	call *loadCall
}

func NewScriptLoader(fetch FetchFunc) *ScriptLoader {
	return &ScriptLoader{fetch: fetch}
}

func (l *ScriptLoader) Load(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	c := l.call
	if c == nil {
		c = &loadCall{done: make(chan struct{})}
		l.call = c
		go l.run(context.WithoutCancel(ctx), c)
	}
	l.mu.Unlock()

	select {
	case <-c.done:
		return c.script, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *ScriptLoader) run(ctx context.Context, c *loadCall) {
	c.script, c.err = l.fetch(ctx)
	if c.err != nil {
		c.err = fmt.Errorf("load checkout script: %w", c.err)
		l.mu.Lock()
		if l.call == c {
			l.call = nil
		}
		l.mu.Unlock()
	}
	close(c.done)
}

// Loaded reports whether a successful load is memoized.
func (l *ScriptLoader) Loaded() bool {
	l.mu.Lock()
	c := l.call
	l.mu.Unlock()
	if c == nil {
		return false
	}
	select {
	case <-c.done:
		return c.err == nil
	default:
		return false
	}
}
