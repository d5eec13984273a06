// Package binding keeps the per-signal bookkeeping of a session.
//
// A Binding records where a configured signal lives on the server (its
// resolved node id, and a register-nodes alias when fast access is on) and
// where it lives locally (a view into the session's value arena). Bindings
// are stored in a Table under small integer handles that the owning
// component uses to fetch signal memory:
//
//	table := binding.NewTable()
//	h, _ := table.Insert(b)
//	mem, _ := table.Memory(h)
//
// Handle 0 is never issued. Observers are notified when bindings are
// bound, unbound, registered and unregistered.
package binding
