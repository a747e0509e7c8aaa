package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/guildscript/internal/compiler"
	"github.com/roach88/guildscript/internal/ir"
)

// LoadError represents an error that occurred while loading definitions.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants for failures outside the manager.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No definition files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeBadArgs     = "E007" // Malformed --args
	ErrCodeDatabase    = "E008" // Database cannot be opened

	ErrCodeInvalidDefinition = "E101" // Definition document failed compilation
)

// LoadDefinitions loads command definitions from a file or a directory.
//
// A directory is loaded as one CUE package (every .cue file in it) plus
// every .yaml/.yml document directly inside it. Definitions are returned in
// file order, CUE first.
func LoadDefinitions(path string) ([]ir.Definition, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	if !info.IsDir() {
		defs, err := compiler.LoadFile(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return defs, nil
	}
	return loadDir(path)
}

func loadDir(dir string) ([]ir.Definition, error) {
	cueFiles, yamlFiles, err := findDefinitionFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 && len(yamlFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no definition files found in %s", dir)}
	}

	var defs []ir.Definition

	if len(cueFiles) > 0 {
		instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
		if len(instances) == 0 {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
		}

		value := cuecontext.New().BuildInstance(inst)
		if err := value.Err(); err != nil {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
		}

		cueDefs, err := compiler.CompileCommands(value)
		if err != nil {
			return nil, convertCompileError(err)
		}
		defs = append(defs, cueDefs...)
	}

	for _, path := range yamlFiles {
		yamlDefs, err := compiler.LoadFile(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		defs = append(defs, yamlDefs...)
	}
	return defs, nil
}

// findDefinitionFiles lists definition files directly inside dir, sorted.
func findDefinitionFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch filepath.Ext(path) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
	}
	slices.Sort(cueFiles)
	slices.Sort(yamlFiles)
	return cueFiles, yamlFiles, nil
}

// convertCompileError converts a compiler error to a LoadError. CUE
// positions are kept in the message.
func convertCompileError(err error) *LoadError {
	return &LoadError{Code: ErrCodeInvalidDefinition, Message: err.Error()}
}
