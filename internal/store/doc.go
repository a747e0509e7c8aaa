// Package store provides SQLite-backed persistence for custom commands.
//
// Two tables:
//   - custom_commands: one row per (tenant, name), the authoritative copy of
//     every registered command
//   - executions: append-only history of command invocations
//
// # Ordering
//
// Command listings are ordered by name; execution history by seq, a logical
// counter assigned by SQLite on insert. Wall-clock time is never stored.
//
// # Errors
//
// Every method returns *Error on failure. Kind separates transient
// connectivity problems (database unreachable, busy, I/O) from logic errors
// (constraint violations, malformed rows).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
