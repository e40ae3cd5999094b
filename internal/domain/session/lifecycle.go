package session

import "github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"

// transitions lists the legal target states for each source state
var transitions = map[types.SessionState][]types.SessionState{
	types.StateDisconnect: {types.StateConnect},
	types.StateConnect:    {types.StateForeground, types.StateBackground, types.StateDisconnect},
	types.StateForeground: {types.StateActive, types.StateBackground, types.StateDisconnect},
	types.StateActive:     {types.StateInactive, types.StateBackground, types.StateDisconnect},
	types.StateInactive:   {types.StateActive, types.StateBackground, types.StateDisconnect},
	types.StateBackground: {types.StateForeground, types.StateDisconnect},
}

// CanTransition reports whether from -> to is a legal edge
func CanTransition(from, to types.SessionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidState reports whether s is one of the six lifecycle states
func IsValidState(s types.SessionState) bool {
	_, ok := transitions[s]
	return ok
}
