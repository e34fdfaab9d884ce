// Package loop provides the single serialized execution context that owns
// all registry state.
//
// Connection goroutines never touch the registry directory directly. They
// hand work to the loop with Submit ("submit and return") or Do ("submit
// and wait"), and every task runs to completion on one goroutine before the
// next starts. Reads taken inside a task therefore never observe a torn
// membership invariant.
//
// Tasks must not call Do on the loop they are running on; that deadlocks.
package loop
