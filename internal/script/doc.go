// Package script hosts tenant-authored Lua commands.
//
// A Sandbox is the per-tenant pair of a command Registry (lazily hydrated
// from persistence) and a Host (lazily created guest runtime). The two are
// created on demand and destroyed together: Restart drops the runtime and
// every compiled function in one step, never one without the other.
//
// A command's source is a Lua chunk. The chunk itself is the compiled
// function and receives the execution context and the argument table as
// its varargs:
//
//	local ctx, args = ...
//	ctx:reply("Hello " .. args.name)
//
// Guest code runs with only the base, table, string and math libraries.
// Filesystem, process, module loading and code loading functions are
// removed; the execution context is the only capability a command gets.
//
// Nothing in this package is safe for concurrent use. Callers serialize
// access per tenant (see package manager).
package script
