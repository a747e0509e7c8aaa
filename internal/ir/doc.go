// Package ir provides the shared value model and command record types for guildscript.
//
// This package contains type definitions and pure helpers only. All other internal
// packages import ir; ir imports nothing internal. This keeps it the foundational
// layer with no circular dependencies.
//
// Key constraints:
//   - Value is a closed sum type: Null, Bool, Number, String, Array, Object
//   - Numbers are float64 and must be finite
//   - Strings must be valid UTF-8
//   - Command and parameter names are stored normalised (see NormalizeName)
//   - All JSON tags use snake_case
package ir
