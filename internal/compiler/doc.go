// Package compiler turns command definition documents into ir.Definitions.
//
// Two document formats are accepted.
//
// CUE, one field per command under "command":
//
//	command: greet: {
//		description: "Greets someone"
//		parameters: [{name: "name", type: "string", required: true}]
//		source: """
//			local ctx, args = ...
//			ctx:reply("Hello " .. args.name)
//			"""
//	}
//
// YAML, a list under "commands", checked against the JSON Schema returned
// by Schema before decoding:
//
//	commands:
//	  - name: greet
//	    parameters: [{name: name, type: string, required: true}]
//	    source: |
//	      local ctx, args = ...
//	      ctx:reply("Hello " .. args.name)
//
// Compilation here is structural only. Name rules, limits and the Lua
// syntax check are applied by the manager on submission.
package compiler
