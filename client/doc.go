// Package client implements client sessions that move bound signal memory
// to and from an OPC UA server once per cycle.
//
// A session walks Unconnected → Connected → Bound → Ready:
//
//	s := client.NewWriter(transport, client.Options{Oracle: registry})
//	s.Connect(ctx, endpoint, creds)
//	handles, err := s.Register(ctx, signals...)
//	s.Prepare(ctx)
//	for range ticker.C {
//		s.Transfer(ctx)
//	}
//	s.Shutdown(ctx)
//
// Three variants share this lifecycle. A Writer sends every signal in one
// batched Write. A MethodInvoker passes the structured signal to a remote
// method and probes server liveness at a bounded rate. A Reader loads every
// signal from one batched Read.
//
// Paths are resolved during Register only. Transfer never re-resolves and
// never reconnects: transport failures are returned and the session stays
// Ready for the next cycle.
package client
