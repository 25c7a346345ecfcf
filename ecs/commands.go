package ecs

// Commands queues world mutations for deferred application. Hooks receive a
// Commands-backed handle so they can mutate entities without invalidating the
// iteration in progress; queued operations take effect when Flush is called.
type Commands struct {
	w   *World
	ops []func(*World)
}

// NewCommands creates a command queue targeting the given World.
func NewCommands(w *World) *Commands {
	return &Commands{w: w}
}

// Entity returns a command handle bound to the given entity.
func (c *Commands) Entity(e Entity) *EntityCommands {
	return &EntityCommands{c: c, e: e}
}

// Spawn queues creation of a new entity and returns its identifier
// immediately so it can be referenced by later commands.
func (c *Commands) Spawn() Entity {
	e := c.w.Spawn()
	return e
}

// Queue appends an arbitrary deferred operation.
func (c *Commands) Queue(op func(*World)) {
	c.ops = append(c.ops, op)
}

// Flush applies all queued operations in order and clears the queue.
func (c *Commands) Flush() {
	for _, op := range c.ops {
		op(c.w)
	}
	c.ops = c.ops[:0]
}

// EntityCommands queues mutations for a single entity.
type EntityCommands struct {
	c *Commands
	e Entity
}

// Entity returns the target entity identifier.
func (ec *EntityCommands) Entity() Entity { return ec.e }

// Insert queues attaching a component to the entity.
func (ec *EntityCommands) Insert(typePath string, value any) {
	e := ec.e
	ec.c.Queue(func(w *World) { w.Insert(e, typePath, value) })
}

// Remove queues detaching a component from the entity.
func (ec *EntityCommands) Remove(typePath string) {
	e := ec.e
	ec.c.Queue(func(w *World) { w.Remove(e, typePath) })
}

// Despawn queues removal of the entity.
func (ec *EntityCommands) Despawn() {
	e := ec.e
	ec.c.Queue(func(w *World) { w.Despawn(e) })
}
