// Package performance contains the core domain types of the prop.
//
// It defines trigger sources, actuator commands, word intervals, the
// performance session and the status/statistics snapshots, together with the
// rejection reasons returned when a trigger cannot start a performance.
package performance
