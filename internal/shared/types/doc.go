// Package types provides shared data structures for the scene backend.
//
// This package defines the value types passed between the session directory,
// the fold engine, the IPC layer and the HTTP surface.
//
// Core Types:
//   - SessionState: Window lifecycle state (DISCONNECT .. BACKGROUND)
//   - SessionInfo: Creation request for a scene session
//   - Rect: Window geometry in global coordinates
//   - SizeChangeReason: Why a rect changed
//   - ScreenProperty: Display geometry, rotation and fold classification
//   - FoldStatus, Rotation: Sensor-derived discrete states
//
// Errors:
//   - WSError: Numeric result code that doubles as an error value
//
// Example Usage:
//
//	info := types.SessionInfo{
//	    BundleName: "com.example.notes",
//	    ScreenID:   0,
//	}
//	if types.IsNoOp(err) {
//	    // target already gone, nothing to retry
//	}
package types
