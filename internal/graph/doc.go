// Package graph is the service registry: the canonical, insertion-ordered
// mapping from service identifier to service node.
//
// # Nodes by Identifier, Not by Pointer
//
// The graph is an arena. Nodes never hold pointers to one another; a
// dependency edge exists only because a reference-typed property of one node
// currently holds the identifier of another. Edges are therefore derived on
// demand from the live property values every time they are asked for:
//
//	node "1" ──(property other_service = "2")──▶ lookup("2") ──▶ node "2"
//
// Nothing is cached, so a node that is reconfigured between two activation
// passes is seen with its new dependencies by the next pass.
//
// # Dangling References
//
// A reference whose identifier is not registered is a configuration fact, not
// an error at this layer. Lookup returns nil and Dependencies skips it; the
// resolver treats it as "no dependency" and the provider decides whether the
// referencing service can be enabled.
//
// # Thread-Safety
//
// All methods are safe for concurrent use. Node state and properties are
// guarded by the node itself.
package graph
