// Package shuttle provides the addressing and transport primitives that
// connect runners and gateways.
//
// # Addresses
//
// An [Address] is a hierarchical path such as "runner:counter:child". The
// first segment names the subsystem (runner or gateway) that owns the
// address; the remaining segments identify an actor inside it.
//
//	a := shuttle.MustParse("runner:counter")
//	child, _ := a.Append("child")
//	suffix, _ := child.RemovePrefix(a) // "child"
//
// # Buses and Shuttles
//
// Every runner or gateway drains exactly one [Bus] from a single goroutine.
// Other components write to it through a [Shuttle], which is bound to the
// owner's prefix and rejects messages addressed elsewhere:
//
//	bus := shuttle.NewBus(shuttle.BusOptions{Owner: "runner"})
//	in := shuttle.NewSimpleShuttle("runner", bus, log)
//	in.Send(shuttle.NewMessage(src, dst, payload))
//
// A consumer routes its outgoing messages with a [Table], which maps the
// first segment of each destination to a registered outgoing shuttle.
// Messages without a matching shuttle are logged and dropped; delivery is
// fire-and-forget throughout.
package shuttle
