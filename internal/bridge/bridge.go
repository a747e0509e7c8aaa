// Package bridge converts between ir.Value and gopher-lua values.
//
// ToValue validates the shape of guest tables once, at the boundary: a table
// is an Array iff its keys are exactly 1..n, an Object iff every key is a
// string, and anything else is rejected with a MarshalError naming the path
// of the offending container.
//
// Every table is converted at most once. The walk remembers each table it
// has entered, and reaching one again is a KindCycle error whether or not it
// is an ancestor: a value graph must be a tree. Conversion is therefore linear
// in the number of tables the guest built.
//
// FromValue is total but lossy in two places, both inherent to Lua tables:
// an empty Array becomes an empty table, which ToValue reads back as an empty
// Object, and a Null element of an Array becomes a hole, so the table reads
// back as a sparse array (or as a shorter Array when the Null is last).
package bridge

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf8"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/guildscript/internal/ir"
)

// RootPath is the path prefix used by ToValue.
const RootPath = "value"

// ErrorKind categorises marshal failures.
type ErrorKind string

const (
	// KindShape covers mixed, sparse or non-positive table keys.
	KindShape ErrorKind = "shape"
	// KindType covers values with no Value encoding (functions, userdata, ...).
	KindType ErrorKind = "type"
	// KindNumber covers NaN and infinities.
	KindNumber ErrorKind = "number"
	// KindText covers strings that are not valid UTF-8.
	KindText ErrorKind = "text"
	// KindCycle covers tables reachable from themselves or reached twice.
	KindCycle ErrorKind = "cycle"
)

// MarshalError reports a guest value that cannot be represented as an ir.Value.
type MarshalError struct {
	Kind   ErrorKind
	Path   string
	Reason string
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func marshalErr(kind ErrorKind, path, format string, args ...any) *MarshalError {
	return &MarshalError{Kind: kind, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ToValue converts a guest value rooted at RootPath.
func ToValue(lv lua.LValue) (ir.Value, error) {
	return ToValueAt(lv, RootPath)
}

// ToValueAt converts a guest value, reporting errors relative to path.
func ToValueAt(lv lua.LValue, path string) (ir.Value, error) {
	w := walker{visited: make(map[*lua.LTable]bool)}
	return w.convert(lv, path)
}

// walker carries every table entered so far. visited[t] is true while t is
// on the current descent path.
type walker struct {
	visited map[*lua.LTable]bool
}

func (w *walker) convert(lv lua.LValue, path string) (ir.Value, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return ir.Null{}, nil
	case lua.LBool:
		return ir.Bool(v), nil
	case lua.LNumber:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, marshalErr(KindNumber, path, "number must be finite, got %v", f)
		}
		return ir.Number(f), nil
	case lua.LString:
		if !utf8.ValidString(string(v)) {
			return nil, marshalErr(KindText, path, "string is not valid UTF-8 text")
		}
		return ir.String(v), nil
	case *lua.LTable:
		return w.convertTable(v, path)
	default:
		return nil, marshalErr(KindType, path, "unsupported value of type %s", lv.Type().String())
	}
}

func (w *walker) convertTable(tbl *lua.LTable, path string) (ir.Value, error) {
	if onPath, seen := w.visited[tbl]; seen {
		if onPath {
			return nil, marshalErr(KindCycle, path, "cycle detected: table contains itself")
		}
		return nil, marshalErr(KindCycle, path, "table is referenced more than once")
	}
	w.visited[tbl] = true
	defer func() { w.visited[tbl] = false }()

	var (
		strKeys  []string
		maxIndex int
		intCount int
	)
	for key, _ := tbl.Next(lua.LNil); key != lua.LNil; key, _ = tbl.Next(key) {
		switch k := key.(type) {
		case lua.LString:
			if !utf8.ValidString(string(k)) {
				return nil, marshalErr(KindText, path, "table key is not valid UTF-8 text")
			}
			strKeys = append(strKeys, string(k))
		case lua.LNumber:
			f := float64(k)
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, marshalErr(KindShape, path, "table key %v is not an integer", f)
			}
			if f < 1 {
				return nil, marshalErr(KindShape, path, "table key %v is not a positive index", f)
			}
			intCount++
			if int(f) > maxIndex {
				maxIndex = int(f)
			}
		default:
			return nil, marshalErr(KindShape, path, "table key of type %s is neither string nor index", key.Type().String())
		}
	}

	if len(strKeys) > 0 && intCount > 0 {
		return nil, marshalErr(KindShape, path, "table mixes integer and string keys")
	}

	if intCount > 0 {
		if maxIndex != intCount {
			return nil, marshalErr(KindShape, path, "sparse array: %d elements but highest index %d", intCount, maxIndex)
		}
		arr := make(ir.Array, intCount)
		for i := 1; i <= intCount; i++ {
			elem, err := w.convert(tbl.RawGetInt(i), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			arr[i-1] = elem
		}
		return arr, nil
	}

	// Sorted so that the first reported error is deterministic.
	slices.Sort(strKeys)
	obj := make(ir.Object, len(strKeys))
	for _, k := range strKeys {
		elem, err := w.convert(tbl.RawGetString(k), path+"."+k)
		if err != nil {
			return nil, err
		}
		obj[k] = elem
	}
	return obj, nil
}

// FromValue builds the guest encoding of v in L.
func FromValue(L *lua.LState, v ir.Value) lua.LValue {
	switch val := v.(type) {
	case ir.Null, nil:
		return lua.LNil
	case ir.Bool:
		return lua.LBool(val)
	case ir.Number:
		return lua.LNumber(val)
	case ir.String:
		return lua.LString(val)
	case ir.Array:
		tbl := L.CreateTable(len(val), 0)
		for i, elem := range val {
			tbl.RawSetInt(i+1, FromValue(L, elem))
		}
		return tbl
	case ir.Object:
		tbl := L.CreateTable(0, len(val))
		for k, elem := range val {
			tbl.RawSetString(k, FromValue(L, elem))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// FromObject builds a guest table from an Object. Convenience for argument tables.
func FromObject(L *lua.LState, obj ir.Object) *lua.LTable {
	tbl := L.CreateTable(0, len(obj))
	for k, elem := range obj {
		tbl.RawSetString(k, FromValue(L, elem))
	}
	return tbl
}
