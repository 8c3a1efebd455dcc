// Package server wraps http.Server with graceful shutdown, environment-driven
// configuration and errgroup-friendly lifecycle helpers.
//
// The listener is bound inside Start before serving begins, so an address that is
// already in use fails immediately instead of from a background goroutine:
//
//	srv, err := server.NewFromConfig(cfg.Server,
//		server.WithLogger(log),
//		server.WithOnShutdown(func() { _ = hub.Close() }),
//	)
//	if err != nil {
//		return err
//	}
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(srv.Run(ctx, mux))
//	return eg.Wait()
//
// # Hijacked Connections
//
// http.Server.Shutdown neither closes nor waits for hijacked connections, which
// includes every upgraded WebSocket. Register a WithOnShutdown hook to tell their
// owners to finish.
//
// # Configuration
//
//	SERVER_ADDR              listener address (default 127.0.0.1:3030)
//	SERVER_READ_TIMEOUT      15s
//	SERVER_WRITE_TIMEOUT     15s
//	SERVER_IDLE_TIMEOUT      60s
//	SERVER_SHUTDOWN_TIMEOUT  10s
//	SERVER_MAX_HEADER_BYTES  1048576
//	SERVER_TLS_CERT_FILE     optional, together with SERVER_TLS_KEY_FILE
package server
