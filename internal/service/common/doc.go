// Package common holds helpers shared by the control commands.
//
// It provides a gRPC client for the prop daemon with per-call timeouts and a
// helper naming the local user for the audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
