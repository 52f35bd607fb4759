package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	HTTPClient *http.Client
	// Delay is the minimum gap between two outgoing requests.
	Delay  time.Duration
	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.HTTPClient == nil {
		return fmt.Errorf("HTTPClient is nil")
	}
	if o.Delay < 0 {
		return fmt.Errorf("Delay must be >= 0")
	}
	return nil
}

func Build(opts Options) (Transport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var t Transport = &HTTPTransport{Client: opts.HTTPClient}

	if opts.Delay > 0 {
		t = &ThrottleTransport{
			Base:  t,
			Delay: opts.Delay,
			Log:   opts.Logger,
		}
	}

	return t, nil
}

// HTTP transport

type HTTPTransport struct {
	Client *http.Client
}

func (h *HTTPTransport) Do(req *http.Request) (*http.Response, error) {
	return h.Client.Do(req)
}

// ThrottleTransport spaces requests at least Delay apart. It never retries.
type ThrottleTransport struct {
	Base  Transport
	Delay time.Duration
	Log   *slog.Logger

	mu   sync.Mutex
	last time.Time
}

func (t *ThrottleTransport) Do(req *http.Request) (*http.Response, error) {
	if err := t.wait(req.Context()); err != nil {
		return nil, err
	}
	return t.Base.Do(req)
}

func (t *ThrottleTransport) wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if d := t.Delay - time.Since(t.last); d > 0 {
			if t.Log != nil {
				t.Log.Debug("throttle", "sleep_ms", d.Milliseconds())
			}
			if err := sleepCtx(ctx, d); err != nil {
				return err
			}
		}
	}
	t.last = time.Now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
