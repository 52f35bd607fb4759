package client

import (
	"log/slog"
	"net/http"
	"time"

	"preisradar/internal/client/httpc"
	"preisradar/internal/client/transport"
)

type Transport = transport.Transport

type Options struct {
	Timeout time.Duration
	Delay   time.Duration
	Logger  *slog.Logger
}

// Build returns the throttled transport every marketplace call goes through.
func Build(opts Options) (Transport, error) {
	return transport.Build(transport.Options{
		HTTPClient: NewHTTPClient(opts.Timeout),
		Delay:      opts.Delay,
		Logger:     opts.Logger,
	})
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return httpc.New(timeout)
}
