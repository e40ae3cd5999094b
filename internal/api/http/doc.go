// Package http exposes the session directory, the fold engine and the
// diagnostic dump over a gin REST API.
//
// Scene result codes map onto HTTP statuses:
//
//	OK, DoNothing            200
//	NullError, InvalidParam  400
//	InvalidSession           404
//	InvalidOperation,
//	InvalidTransition        409
//	IPCFailed                502
//	Unavailable              503
//
// Every error body carries the numeric scene code alongside the message.
package http
