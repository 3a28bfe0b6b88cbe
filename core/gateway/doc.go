// Package gateway provides [Direct], a gateway that lets ordinary Go code
// take part in the actor network: it writes messages to actors and reads
// the messages actors send back to it.
//
//	d, _ := gateway.NewDirect(gateway.DirectOptions{Prefix: "direct"})
//	defer d.Close()
//
//	runner.AddOutgoingShuttle(d.IncomingShuttle())
//	d.AddOutgoingShuttle(runner.IncomingShuttle())
//
//	_ = d.WriteTo(shuttle.MustParse("runner:counter"), "incr")
//	n, err := gateway.Read[int](ctx, d)
package gateway
