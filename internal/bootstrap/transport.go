package bootstrap

import (
	"log/slog"
	"time"

	"preisradar/internal/client"
	"preisradar/internal/config"
)

func BuildTransport(profile *config.Config, log *slog.Logger) (client.Transport, error) {
	delay := time.Duration(profile.Ebay.RequestDelayMS) * time.Millisecond
	log.Info("profile",
		"env", profile.Env,
		"marketplace", profile.Ebay.Marketplace,
		"timeout_s", profile.HTTP.TimeoutSeconds,
		"request_delay_ms", profile.Ebay.RequestDelayMS,
	)

	return client.Build(client.Options{
		Timeout: time.Duration(profile.HTTP.TimeoutSeconds) * time.Second,
		Delay:   delay,
		Logger:  log,
	})
}
