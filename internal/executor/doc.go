// Package executor provides a fixed-size pool of workers that run submitted
// tasks concurrently. Tasks carry no ordering guarantee relative to each
// other; any ordering a caller needs must live inside a single task.
package executor
