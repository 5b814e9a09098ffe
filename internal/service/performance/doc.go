// Package performance implements the performance orchestrator: the state
// machine that turns an accepted trigger into one synchronized audio and
// actuator performance and starts the cooldown once it is over.
//
// States move Idle -> Arming -> Active -> Completing -> Idle. Whatever goes
// wrong after a trigger was accepted is absorbed into the Completing step,
// which always commands the actuators to their safe state.
package performance
