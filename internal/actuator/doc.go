// Package actuator drives the mouth, head and torso outputs.
//
// The Engine runs the three timed sequences of a performance (mouth per word,
// head/torso sweep, watchdog) and guarantees that every run ends with the
// outputs commanded to their safe state. Drivers translate commands into I/O.
package actuator
