// Package app wires one actor [actor.Runner] and one [gateway.Direct]
// gateway together, so a process can host actors and talk to them without
// setting up shuttles by hand.
//
// # Basic Usage
//
//	a, err := app.New(app.Config{
//	    Prefix:       "actors",
//	    Checkpointer: checkpointer,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Shutdown()
//
//	addr, err := a.Spawn("counter", &Counter{}, "start")
//	_ = a.Direct().WriteTo(addr, "inc")
//	reply, err := a.Direct().ReadPayload(ctx)
//
// # Lazy Actors
//
// With a [actor.Factory] configured, top-level actors are created the first
// time a message addresses them:
//
//	app.Config{
//	    Factory: func(id string) (actor.Body, []any, error) {
//	        return &Counter{}, []any{"start"}, nil
//	    },
//	}
package app
