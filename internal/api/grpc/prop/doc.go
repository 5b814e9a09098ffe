// Package prop implements the gRPC control API of the prop.
//
// The service is declared in Go rather than generated: every message is a
// protobuf well-known type, google.protobuf.Struct for payloads and
// google.protobuf.Empty for argument-less calls, so the default protobuf
// codec carries them without any generated code on either side.
package prop
