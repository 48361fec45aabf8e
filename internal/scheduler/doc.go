// Package scheduler brings service branches up concurrently.
//
// Every branch produced by the resolver becomes one task on a bounded worker
// pool sized min(MaxParallelism, number of branches). Inside a task the
// branch's nodes are handled strictly in order: a node is enabled only after
// every node before it has left the Enabling state. Branches run with no
// ordering relative to each other, so a dependency shared by two branches
// may be asked to enable twice; the provider is expected to treat that as a
// no-op.
//
// Failures stay local. An enable error, a wait timeout or even a panic is
// logged, reported as a bulletin, and the branch moves on to its next node.
// Other branches are never affected and Activate always returns once every
// branch has finished.
package scheduler
