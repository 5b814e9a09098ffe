// Package stats persists performance statistics across restarts.
//
// The FileRepository keeps one JSON document on disk, produced and consumed
// through protojson as a google.protobuf.Struct.
package stats
