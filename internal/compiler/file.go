package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/guildscript/internal/ir"
)

// LoadFile reads one definition document. The format follows the
// extension: .cue, .yaml or .yml.
func LoadFile(path string) ([]ir.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return CompileCommands(v)
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return nil, fmt.Errorf("%s: unsupported definition format (want .cue, .yaml or .yml)", path)
	}
}
