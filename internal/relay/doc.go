// Package relay implements the upstream-to-subscribers WebSocket relay.
//
// A Reader owns the single upstream connection and publishes every text frame to a
// broadcast hub. A Handler accepts downstream connections, subscribes each one to the
// hub right after the handshake and drives it with a Session. An optional Mirror
// republishes the same stream to Redis.
//
//	hub := broadcast.NewMemoryBroadcaster[string](999)
//
//	reader, err := relay.Dial(ctx, relay.UpstreamURL("localhost", port, "/Messages"), hub)
//	if err != nil {
//		return err // relay.ErrUpstreamUnavailable
//	}
//
//	mux.Handle("/relay", relay.NewHandler(hub, relay.WithAllowAnyOrigin()))
//
//	eg.Go(func() error { return reader.Run(ctx) }) // relay.ErrUpstreamLost on failure
//
// # Failure Semantics
//
// Upstream failures are returned from Reader.Run and are meant to stop the process;
// the reader never reconnects. Session failures stay inside the session: a failed
// write, a disconnected peer or a closed queue ends that session only, and its queue
// is released. Relaying is one-directional; frames sent by subscribers are discarded.
package relay
