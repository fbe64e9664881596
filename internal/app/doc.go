// Package app contains the application wiring. It turns a loaded fit
// configuration into a Session (registry, datasets, composite model and
// likelihood engine) and implements the user-facing operations on it,
// decoupled from any specific entrypoint like a CLI.
//
// There is no process-wide state: every App owns its logger and Session, so
// tests and embedding callers can run several side by side.
package app
