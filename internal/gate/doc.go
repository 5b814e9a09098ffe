// Package gate holds the two time gates that sit in front of the orchestrator:
// the per-channel Debouncer and the process-wide Cooldown.
package gate
