package types

import (
	"errors"
	"fmt"
)

// WSError is a scene service result code. Non-zero values are usable as errors.
type WSError int32

const (
	WSErrorOK                WSError = 0
	WSErrorDoNothing         WSError = 1
	WSErrorNullError         WSError = 2
	WSErrorInvalidSession    WSError = 3
	WSErrorInvalidOperation  WSError = 4
	WSErrorInvalidTransition WSError = 5
	WSErrorInvalidParam      WSError = 6
	WSErrorIPCFailed         WSError = 7
	WSErrorUnavailable       WSError = 8
	WSErrorUnknown           WSError = 99
)

var wsErrorNames = map[WSError]string{
	WSErrorOK:                "ok",
	WSErrorDoNothing:         "do nothing",
	WSErrorNullError:         "null argument",
	WSErrorInvalidSession:    "invalid session",
	WSErrorInvalidOperation:  "invalid operation",
	WSErrorInvalidTransition: "invalid state transition",
	WSErrorInvalidParam:      "invalid parameter",
	WSErrorIPCFailed:         "ipc failed",
	WSErrorUnavailable:       "resource unavailable",
	WSErrorUnknown:           "unknown error",
}

// Error implements error
func (e WSError) Error() string {
	if name, ok := wsErrorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ws error %d", int32(e))
}

// Code converts an error into its wire code
func Code(err error) WSError {
	if err == nil {
		return WSErrorOK
	}
	var code WSError
	if errors.As(err, &code) {
		return code
	}
	return WSErrorUnknown
}

// FromCode converts a wire code back into an error. WSErrorOK becomes nil.
func FromCode(code WSError) error {
	if code == WSErrorOK {
		return nil
	}
	return code
}

// IsNoOp reports whether err only says the target was already gone
func IsNoOp(err error) bool {
	return errors.Is(err, WSErrorDoNothing)
}
