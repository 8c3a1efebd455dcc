// Package redis connects to Redis for the relay's optional message mirror.
//
//   - Connect: parses REDIS_URL, creates a client and pings it with exponential
//     backoff (sethvargo/go-retry) before returning
//   - Healthcheck: readiness probe that pings the client
//
// Configuration:
//
//	REDIS_URL              redis:// or rediss:// URL; empty disables the mirror
//	REDIS_RETRY_ATTEMPTS   3
//	REDIS_RETRY_INTERVAL   2s (base of the exponential backoff)
//	REDIS_CONNECT_TIMEOUT  30s
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	mux.Handle("GET /health/ready", health.Readiness(log, redis.Healthcheck(client)))
//
// Errors are stable sentinels checked with errors.Is: ErrEmptyConnectionURL,
// ErrFailedToParseRedisConnString, ErrRedisNotReady, ErrHealthcheckFailed.
package redis
