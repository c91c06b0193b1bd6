/*
Package session coordinates access to persisted conversation sessions.

A Manager serializes work on one session id inside a process with a
reference-counted mutex per id, and across replicas with an optional
ports.DistributedLocker. Run combines load, render and save under that lock,
so a session is owned by at most one in-flight run.
*/
package session
