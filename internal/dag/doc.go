// Package dag computes the enabling order of service nodes.
//
// For every node in the registry the resolver produces a Branch: the node's
// transitive dependencies followed by the node itself, dependencies first.
// Branches are computed per root with a visited set scoped to that root, so
// a shared dependency appears in its own branch and again inside every
// dependent's branch. That redundancy lets each branch be activated as an
// independent, strictly sequential unit of work.
//
// The traversal tolerates cycles and self references. A node is marked
// visited before the resolver descends into one of its references, so coming
// back to it through a cycle returns immediately instead of recursing forever.
package dag
