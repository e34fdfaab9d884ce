// Package session holds the per-connection state machine.
//
// A session starts in StateNone with an armed authentication deadline,
// moves to StateAuthenticated on a successful AUTH_REQ and to
// StateSubscribed on a successful SUBSCRIBE. Unsubscribing returns it to
// StateAuthenticated. States are never skipped.
//
// Session state is read and written only on the execution loop. The
// deadline timer fires on its own goroutine and must hand its work back to
// the loop.
package session
