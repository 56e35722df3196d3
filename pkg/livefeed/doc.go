/*
Package livefeed keeps downstream cached query results consistent with
a server-pushed stream of domain change notifications.

# Overview

livefeed is a long-lived client for the agent index platform's push
stream. It owns the streaming connection lifecycle (dial, listen,
detect failure, reconnect with capped exponential backoff), validates
incoming events against a closed vocabulary, keeps a bounded
newest-first history of accepted events, and maps each event to the
set of cache keys that must be invalidated downstream.

Transport churn is never fatal: connection errors schedule a
reconnect, malformed or unknown messages are dropped with a warning,
and the host application only ever observes a connectivity flag and
the event stream.

# Basic Usage

Dial the stream with the SSE transport, hand the client a cache
invalidator, and start it:

	dialer := &transport.SSEDialer{}
	inv := invalidate.NewRedisInvalidator(redisClient)

	client := livefeed.New(dialer, inv,
	    livefeed.WithEndpoint("https://index.example.com/api/events"),
	    livefeed.WithLogger(slog.Default()),
	)
	if err := client.Start(); err != nil {
	    log.Fatal(err)
	}
	defer client.Stop()

	cancel, _ := client.Subscribe(func(snap livefeed.Snapshot) {
	    fmt.Println("connected:", snap.Connected, "events:", snap.EventCount)
	})
	defer cancel()

# Configuration

Settings can come from a YAML or JSON file via the config package:

	cfg, err := config.FromFile("feed.yaml")
	fc := config.Feed(cfg)
	client := livefeed.New(dialer, inv, livefeed.FromConfig(fc)...)

# Observability

Structured logging uses slog; metrics and tracing use the global
OpenTelemetry providers and default to no-ops:

	client := livefeed.New(dialer, inv,
	    livefeed.WithMetrics(observability.NewMetricsRecorder()),
	    livefeed.WithSpanManager(observability.NewSpanManager()),
	)
*/
package livefeed
