// Package memory provides in-memory implementations of the storage ports.
// They back single-process development setups and tests; nothing survives a
// restart.
package memory
