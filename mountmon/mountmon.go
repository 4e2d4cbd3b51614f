// Package mountmon is the core of the mountmon application, providing the
// pieces that turn "a network share came back" into "the containers that
// depend on it are running again."
//
// Mechanism of Operation
//
// A Monitor runs a single logical thread of control through three phases.
// It first polls the configured mount points until every one of them is an
// active mount or the configured timeout elapses. Once all mounts are
// active, it restarts the configured containers one by one through a
// Controller; individual failures are collected but never abort the batch.
// It then settles into a slow surveillance loop, re-probing the mounts once
// a minute, and starts a fresh cycle the moment any of them disappears.
//
// Nothing here talks to Proxmox or Docker directly. The Controller and
// Prober interfaces are the only contact surface with the outside world,
// which keeps the whole state machine runnable against in-memory fakes.
package mountmon
