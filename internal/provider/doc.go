// Package provider creates service nodes from registered types and drives
// their lifecycle.
//
// Enabling is two-phase. Enable checks synchronously that the node's
// configuration is usable: required properties are set, and every referenced
// service exists, has the declared type and is already Enabled. If anything
// is wrong the node is returned to Disabled and the error is handed back to
// the caller. Otherwise the controller's own Enable runs in the background
// and the node moves to Enabled, or back to Disabled with a bulletin, once it
// finishes.
package provider
