/*
Package session serialises access to per-user wizard sessions.

A Manager wraps a ports.SessionStore with a per-user mutex, and optionally a
ports.DistributedLocker, so that two actions of the same user are never applied
concurrently while different users proceed in parallel.
*/
package session
