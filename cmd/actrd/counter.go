package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmehali/actors/core/actor"
)

const openMsg = "open"

// Counter is the actor hosted by the daemon. It understands the commands
// "inc", "add <n>", "reset", "get" and "stop", and answers each with its
// current count.
type Counter struct {
	Step  int
	Count int
}

func (c *Counter) Resume(ctx *actor.Context) (bool, error) {
	if c.Step == 0 {
		ctx.AllowAll()
		c.Step = 1
		return false, nil
	}

	cmd, _ := ctx.In().(string)
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false, ctx.Reply("error: empty command")
	}

	switch fields[0] {
	case "inc":
		c.Count++
	case "add":
		if len(fields) != 2 {
			return false, ctx.Reply("error: usage: add <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, ctx.Reply(fmt.Sprintf("error: %v", err))
		}
		c.Count += n
	case "reset":
		c.Count = 0
	case "get":
	case "stop":
		return true, ctx.Reply("stopped")
	default:
		return false, ctx.Reply(fmt.Sprintf("error: unknown command %q", fields[0]))
	}

	if err := ctx.Reply(strconv.Itoa(c.Count)); err != nil {
		return false, err
	}
	return false, ctx.Checkpoint(actor.CheckpointDeferred)
}

func newBodyRegistry() *actor.BodyRegistry {
	r := actor.NewBodyRegistry()
	actor.RegisterBody[Counter](r)
	return r
}

func counterFactory(string) (actor.Body, []any, error) {
	return &Counter{}, []any{openMsg}, nil
}
