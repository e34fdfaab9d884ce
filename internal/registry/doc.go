// Package registry implements the Webstone entity model.
//
// A Block is a named switch with an on/off state and a power level in
// [0,15]. Blocks are organised into ordered, named Groups. Blocks and groups
// live in a Registry, one per owner, plus a single public registry whose id
// is the all-zero UUID. The Directory holds every registry together with
// each user's registration context.
//
// # Membership
//
// A block belongs to at most one group, and its recorded group id always
// agrees with that group's member list. Group methods update both sides
// together, so callers never patch one side by hand.
//
// # Concurrency
//
// Nothing in this package is safe for concurrent use. The Directory and
// everything reachable from it must only be touched from the single
// execution loop that owns it (see package loop). Snapshots taken with
// Directory.State are plain values and may be handed to other goroutines.
package registry
