// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle: load service
// descriptors, create the services, resume the ones marked ENABLED, and,
// when asked to, keep serving status until the context is cancelled.
package app
