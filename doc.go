// Package opcuabridge binds a real-time application's signal memory to
// variables on a remote OPC UA server.
//
// The library resolves dotted browse paths to node identifiers once at setup,
// encodes nested, array-bearing structures into the protocol's binary
// extension-object body, and moves data with a bounded number of service calls
// per control cycle.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	opcuabridge/         Root package with Transport, Oracle and event interfaces
//	├── ua/              Protocol value model: NodeID sum type, PathSpec, Variant
//	├── errors/          Structured errors and the four-way error taxonomy
//	├── resolver/        Browse path resolution with pagination and time budget
//	├── binding/         Signal handle table pointing into live memory
//	├── transcoder/      Structure layout tables and the body codec
//	├── typereg/         Structure type registry implementing Oracle
//	├── client/          Per-cycle sessions: Writer, MethodInvoker, Reader
//	├── dispatch/        Routes transport events to the owning session
//	├── datasource/      Owning-component facade built from configuration
//	├── config/          YAML configuration and validation
//	├── metrics/         Prometheus collectors
//	└── uasim/           In-process simulated server for tests and dry runs
//
// # Quick Start
//
//	cfg, err := config.Load("plant.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ds, err := datasource.New(cfg, transport)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ds.Initialise(ctx); err != nil {
//	    log.Fatal(err) // names every offending path or signal
//	}
//	defer ds.Shutdown(ctx)
//
//	mem := ds.GetMemory(handle)
//	for range ticker.C {
//	    if err := ds.Transfer(ctx); err != nil {
//	        log.Print(err) // reported, the next cycle retries
//	    }
//	}
//
// # Phases
//
// Setup (resolution, registration, layout construction, template fetch) may
// block and allocate. Transfer never re-resolves, never reconnects and never
// retries internally.
//
// # Thread Safety
//
// A session is driven by one goroutine. Transfer must not overlap another
// Transfer or Shutdown on the same session; the owning component serializes
// access. The dispatcher is the only type safe for concurrent use.
package opcuabridge
