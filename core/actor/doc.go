// Package actor implements a hierarchical, checkpointable actor engine.
//
// Actors live in trees addressed by [shuttle.Address]. A top-level actor
// at "runner:counter" may spawn children such as "runner:counter:worker-1";
// every message is dispatched from the root of its tree down to its
// destination.
//
// # Bodies
//
// An actor's behaviour is a [Body]: an explicit state machine that is
// resumed once per admitted message and records in its own fields where to
// continue next time.
//
//	type Counter struct {
//	    Step  int
//	    Count int
//	}
//
//	func (c *Counter) Resume(ctx *actor.Context) (bool, error) {
//	    switch c.Step {
//	    case 0:
//	        ctx.AllowAll()
//	        c.Step = 1
//	        return false, nil
//	    default:
//	        c.Count++
//	        return false, ctx.Reply(c.Count)
//	    }
//	}
//
// Returning done=true finishes the actor. A finished root discards its
// whole tree; a finished child is removed from its parent. Errors and
// panics discard the tree.
//
// # Admission
//
// Each actor carries a [RuleSet]. New actors only accept messages from
// themselves; use [Context.Allow], [Context.AllowAll] and friends to open
// up. Rejected messages are dropped without resuming the body.
//
// # Interception
//
// An actor that calls [Context.Intercept] sees messages addressed to its
// descendants first and decides with [Context.Forward] whether, and how,
// they continue.
//
// # Checkpoints
//
// [Context.Checkpoint] persists an actor and its descendants through the
// configured [Checkpointer]. Bodies are encoded with a codec, or through
// [Snapshottable], and decoded by type name via a [BodyRegistry]. A
// [Runner] restores checkpointed top-level actors when it starts.
//
// # Runners
//
// A [Runner] owns one address prefix, hosts top-level actors under it and
// exchanges messages with other gateways through shuttles.
package actor
