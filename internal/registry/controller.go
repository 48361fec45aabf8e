package registry

import "context"

// ConfigurationContext gives a controller read access to its service's
// configuration while it is being enabled.
type ConfigurationContext interface {
	// Property returns the effective value of a property: the configured
	// value, the descriptor default, or false when neither exists.
	Property(name string) (string, bool)
	// Service returns the controller of the Enabled service referenced by a
	// reference-typed property.
	Service(property string) (any, error)
}

// Controller is the implementation behind one service instance.
type Controller interface {
	// Enable brings the service up. It may take as long as it needs; the
	// service stays in Enabling until it returns.
	Enable(ctx context.Context, cfg ConfigurationContext) error
	// Disable releases everything Enable acquired.
	Disable(ctx context.Context) error
}
