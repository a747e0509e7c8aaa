// Package manager is the entry point for a tenant's custom commands.
//
// A Manager resolves each tenant through a cache.Cache of tenant states. A
// tenant state holds one exclusive lock and a script.Sandbox. Every operation
// on a tenant (register, update, delete, execute, republish, restart, clear)
// runs under that lock for its whole duration, including store I/O,
// compilation, guest execution and publishing. Different tenants never
// contend.
//
// The store is the source of truth. The sandbox's registry and runtime are
// caches of it, mutated only under the tenant lock and discarded wholesale
// by Restart and ClearTenant.
//
// A mutation that fails with PERSISTENCE_FAILURE or PLATFORM_SYNC_ERROR
// after the in-memory registry was updated is not rolled back. A later
// successful Republish brings the surface back in line.
package manager
