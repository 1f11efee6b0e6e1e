package canvas

import "context"

// ScheduleDeferred queues callback to run once after delayTicks ticks.
func (c *Canvas) ScheduleDeferred(callback func(ctx context.Context), delayTicks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, &deferred{remaining: delayTicks, callback: callback})
}

// Pending reports the number of queued callbacks.
func (c *Canvas) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Tick advances the host clock by one tick and runs every callback whose
// delay has elapsed, in scheduling order. Callbacks run without the canvas
// lock held so they may mutate the graph. It returns the number run.
func (c *Canvas) Tick(ctx context.Context) int {
	c.mu.Lock()
	var due []func(context.Context)
	keep := c.queue[:0]
	for _, d := range c.queue {
		d.remaining--
		if d.remaining <= 0 {
			due = append(due, d.callback)
			continue
		}
		keep = append(keep, d)
	}
	c.queue = keep
	c.mu.Unlock()

	for _, cb := range due {
		cb(ctx)
	}
	return len(due)
}

// Drain ticks until the queue is empty or ctx is done, returning the number
// of callbacks run.
func (c *Canvas) Drain(ctx context.Context) (int, error) {
	ran := 0
	for c.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		ran += c.Tick(ctx)
	}
	return ran, nil
}
