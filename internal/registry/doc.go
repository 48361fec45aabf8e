// Package registry provides the central "glue" for the service type system.
//
// The Registry maps the type names used in service descriptors (for example
// "redis_client") to the compiled Go parts that implement them: the property
// descriptors a service of that type declares and a constructor for its
// Controller.
//
// Modules populate the registry at startup through Module.Register. The
// registry is then validated once, so a descriptor that references an
// unknown service type is rejected before any service is created.
package registry
