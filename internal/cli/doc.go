// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags, SVCGRID_* environment variables and an optional
// dotenv file into the application's internal configuration. Flags win over
// the environment, which wins over defaults.
package cli
