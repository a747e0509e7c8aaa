// Package harness runs YAML scenarios against a real Manager.
//
// Every scenario gets a fresh in-memory SQLite store, an in-memory
// publisher and sequential execution ids, so two runs of the same scenario
// produce byte-identical traces. Traces are compared against golden files
// with RunWithGolden.
//
// A scenario looks like:
//
//	name: greet_roundtrip
//	description: register a command and execute it
//	tenant: guild-1
//	steps:
//	  - op: register
//	    command:
//	      name: greet
//	      parameters: [{name: name, type: string, required: true}]
//	      source: |
//	        local ctx, args = ...
//	        ctx:reply("Hello " .. args.name)
//	  - op: execute
//	    name: greet
//	    args: {name: Ada}
//	    expect: {replied: true, replies: ["Hello Ada"]}
//	assertions:
//	  - type: published
//	    commands: [greet]
//
// A step without expect must succeed.
package harness
