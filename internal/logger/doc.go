// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder and an optional file tee,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every component of the prop accepts a context and extracts the logger from
// it, so sensor, engine and orchestrator messages carry their own names.
package logger
