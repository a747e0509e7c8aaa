// Package cache provides a lazily-populated, inactivity-evicting cache of
// shared per-key state.
//
// Entries are created on first Get and handed out as reference-counted
// handles. A periodic Sweep evicts entries in two phases: the first sweep
// after an access only clears the entry's accessed marker, and a later
// sweep removes the entry if it is still unmarked AND no handle to it is
// outstanding. An entry borrowed by an in-flight operation therefore
// survives any number of sweeps.
//
// The cache does not guard the values it stores: V is expected to carry its
// own lock.
package cache
