// Package config defines the format-agnostic service descriptor model, along
// with the Loader interface implemented by each descriptor format.
//
// The `config.Model` is the single source of truth for the `flow` package.
// Concrete loaders, such as for HCL and YAML, live in separate packages.
package config
