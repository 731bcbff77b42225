package robot

import "strings"

// Verb is the first token of an outbound command.
type Verb string

const (
	VerbPing          Verb = "PING"
	VerbEnableTorque  Verb = "ENABLE_TORQUE"
	VerbDisableTorque Verb = "DISABLE_TORQUE"
	VerbSetPosition   Verb = "SET_POSITION"
	VerbSetVelocity   Verb = "SET_VELOCITY"
	VerbSetMode       Verb = "SET_MODE"
	VerbGetPosition   Verb = "GET_POSITION"
	VerbGetVelocity   Verb = "GET_VELOCITY"
	VerbGetTemp       Verb = "GET_TEMP"
	VerbEmergencyStop Verb = "EMERGENCY_STOP"
)

// Terminator ends every outbound frame.
const Terminator = ";"

// Encode renders VERB[:arg...]; for the wire.
func Encode(verb Verb, args ...string) string {
	var b strings.Builder
	b.WriteString(string(verb))
	for _, a := range args {
		b.WriteByte(':')
		b.WriteString(a)
	}
	b.WriteString(Terminator)
	return b.String()
}

// verbOf extracts the verb of a raw command for metric labels.
func verbOf(command string) string {
	command = strings.TrimSuffix(strings.TrimSpace(command), Terminator)
	if i := strings.IndexByte(command, ':'); i >= 0 {
		command = command[:i]
	}
	switch Verb(command) {
	case VerbPing, VerbEnableTorque, VerbDisableTorque, VerbSetPosition, VerbSetVelocity,
		VerbSetMode, VerbGetPosition, VerbGetVelocity, VerbGetTemp, VerbEmergencyStop:
		return command
	}
	// Free-form commands would explode label cardinality
	return "RAW"
}
