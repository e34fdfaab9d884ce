// Package control applies mutations to the registry directory and fans the
// results out to subscribers.
//
// Every Service method must run on the execution loop (package loop). A
// mutation resolves the owning registry from the entity id, applies one
// bounded domain operation and, only when something actually changed,
// marks the directory dirty and broadcasts to that registry's subscribers.
//
// Client requests carry a Scope bound to the session's subscribed
// registry; an entity outside that registry is left untouched. Host calls
// use HostScope and are unrestricted.
package control
