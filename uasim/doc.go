// Package uasim is an in-process OPC UA address space.
//
// Server implements opcuabridge.Transport over a tree of objects,
// variables and methods rooted at the Objects folder. It pages browse
// results, keeps register-nodes aliases, validates writes against the
// stored type and shape, and raises asynchronous events. Faults and call
// hooks can be injected per service, which makes it the fake server of
// the module's tests and the backend of the CLI's dry runs.
//
//	srv := uasim.New()
//	srv.SetPageSize(2)
//	id := srv.AddPath(ua.MustParsePath("Line1.Motor.Speed", 2), uasim.Scalar(ua.TypeFloat, raw))
//	srv.FailOnce(uasim.ServiceWrite, ua.StatusBadConnectionClosed)
package uasim
