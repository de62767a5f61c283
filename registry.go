package main

import (
	"fmt"
	"strings"
)

func upperFunctionName(name string) string {
	return strings.ToUpper(name)
}

// EngineErrorCode distinguishes the structural failures the engine can
// report from calling a function, as opposed to the #NAME?/#N/A *value*
// errors a formula can hold as data. These mirror the gRPC-style
// AppErrorCode enum (sheet.go) but belong to function dispatch rather than
// the Spreadsheet-level API surface.
type EngineErrorCode uint8

const (
	EngineErrorUnknownFunction EngineErrorCode = iota + 1
	EngineErrorInvalidArgCount
)

// EngineError reports a structural dispatch failure: the function name
// isn't registered, or the call supplied an argument count the function's
// FunctionDefinition doesn't accept. Unlike *SpreadsheetError, this is never
// meant to be stored as a cell's computed value and then inspected by
// ISERROR/ISNA the way #DIV/0! or #REF! can be - it indicates the formula
// itself cannot be dispatched, which is closer to a parse error than a
// runtime value. calculateCell still has to put *something* in the cell
// (callers expect a Primitive), so it renders this down to the matching
// SpreadsheetError code for display, but the structural type survives long
// enough for callers that care (tests, a future engine-facade Compile step)
// to tell the two failure modes apart with errors.As.
type EngineError struct {
	Code     EngineErrorCode
	Function string
	Expected string // e.g. "1", "2..3", "1+"; empty for EngineErrorUnknownFunction
	Got      int
}

func (e *EngineError) Error() string {
	switch e.Code {
	case EngineErrorUnknownFunction:
		return fmt.Sprintf("unknown function: %s", e.Function)
	case EngineErrorInvalidArgCount:
		return fmt.Sprintf("%s expected %s argument(s), got %d", e.Function, e.Expected, e.Got)
	default:
		return "engine error"
	}
}

// AsSpreadsheetError renders a structural EngineError down to the value-error
// code it displays as in a cell: unknown functions are #NAME?, bad arg
// counts are #N/A, matching the codes this engine already used for these
// failures before the registry existed.
func (e *EngineError) AsSpreadsheetError() *SpreadsheetError {
	switch e.Code {
	case EngineErrorUnknownFunction:
		return NewSpreadsheetError(ErrorCodeName, e.Error())
	default:
		return NewSpreadsheetError(ErrorCodeNA, e.Error())
	}
}

// FunctionDefinition declares a registered function's arity so dispatch can
// validate argument counts structurally, before the function body ever
// runs, instead of every function hand-rolling its own len(args) check and
// returning it as an ordinary value error. MaxArgs of -1 means unbounded.
type FunctionDefinition struct {
	Name     string
	MinArgs  int
	MaxArgs  int // -1 = unbounded
	Variadic bool
}

// expectedLabel renders the arity as the spec's "1", "2..3", or "1+" shape
// for use in InvalidArgCount's message.
func (d FunctionDefinition) expectedLabel() string {
	if d.MaxArgs < 0 {
		return fmt.Sprintf("%d+", d.MinArgs)
	}
	if d.MinArgs == d.MaxArgs {
		return fmt.Sprintf("%d", d.MinArgs)
	}
	return fmt.Sprintf("%d..%d", d.MinArgs, d.MaxArgs)
}

func (d FunctionDefinition) accepts(argc int) bool {
	if argc < d.MinArgs {
		return false
	}
	if d.MaxArgs >= 0 && argc > d.MaxArgs {
		return false
	}
	return true
}

func fixedArgs(name string, n int) FunctionDefinition {
	return FunctionDefinition{Name: name, MinArgs: n, MaxArgs: n}
}

func rangeArgs(name string, min, max int) FunctionDefinition {
	return FunctionDefinition{Name: name, MinArgs: min, MaxArgs: max}
}

func variadicArgs(name string, min int) FunctionDefinition {
	return FunctionDefinition{Name: name, MinArgs: min, MaxArgs: -1, Variadic: true}
}

// functionRegistry is the name -> definition table every call is validated
// against before BuiltInFunctions.Call dispatches to the function's body.
// Names are upper-cased; dispatch is case-insensitive (Call upper-cases
// before looking up, matching the table's keys).
var functionRegistry = buildFunctionRegistry()

func buildFunctionRegistry() map[string]FunctionDefinition {
	defs := []FunctionDefinition{
		// Aggregation
		variadicArgs("SUM", 0),
		variadicArgs("AVERAGE", 0),
		variadicArgs("AVERAGEA", 0),
		variadicArgs("COUNT", 0),
		variadicArgs("COUNTA", 0),
		variadicArgs("MAX", 0),
		variadicArgs("MIN", 0),
		variadicArgs("MEDIAN", 0),
		variadicArgs("MODE", 0),
		variadicArgs("PRODUCT", 0),
		// Logic
		rangeArgs("IF", 2, 3),
		variadicArgs("AND", 0),
		variadicArgs("OR", 0),
		fixedArgs("NOT", 1),
		// Text
		variadicArgs("CONCATENATE", 0),
		variadicArgs("CONCAT", 0),
		fixedArgs("LEN", 1),
		rangeArgs("LEFT", 1, 2),
		rangeArgs("RIGHT", 1, 2),
		fixedArgs("TRIM", 1),
		fixedArgs("UPPER", 1),
		fixedArgs("LOWER", 1),
		fixedArgs("PROPER", 1),
		// Date
		fixedArgs("TODAY", 0),
		fixedArgs("NOW", 0),
		fixedArgs("DATE", 3),
		// Lookup
		rangeArgs("VLOOKUP", 3, 4),
		rangeArgs("HLOOKUP", 3, 4),
		rangeArgs("INDEX", 2, 3),
		rangeArgs("MATCH", 2, 3),
		rangeArgs("XLOOKUP", 3, 6),
		rangeArgs("OFFSET", 3, 5),
		// Math
		fixedArgs("ABS", 1),
		rangeArgs("ROUND", 1, 2),
		rangeArgs("ROUNDUP", 1, 2),
		rangeArgs("ROUNDDOWN", 1, 2),
		fixedArgs("FLOOR", 1),
		fixedArgs("CEILING", 1),
		fixedArgs("MOD", 2),
		fixedArgs("POWER", 2),
		fixedArgs("SQRT", 1),
		fixedArgs("INT", 1),
		rangeArgs("TRUNC", 1, 2),
		fixedArgs("SIGN", 1),
		fixedArgs("EVEN", 1),
		fixedArgs("ODD", 1),
		fixedArgs("RAND", 0),
		fixedArgs("RANDBETWEEN", 2),
		fixedArgs("PI", 0),
		fixedArgs("EXP", 1),
		fixedArgs("LN", 1),
		rangeArgs("LOG", 1, 2),
		fixedArgs("LOG10", 1),
		fixedArgs("FACT", 1),
		// Information
		fixedArgs("ISBLANK", 1),
		fixedArgs("ISERROR", 1),
		fixedArgs("ISNA", 1),
		fixedArgs("ISNUMBER", 1),
		fixedArgs("ISTEXT", 1),
	}

	table := make(map[string]FunctionDefinition, len(defs))
	for _, d := range defs {
		table[d.Name] = d
	}
	return table
}

// HasFunction reports whether name (case-insensitive) is registered.
func HasFunction(name string) bool {
	_, ok := functionRegistry[upperFunctionName(name)]
	return ok
}

// LookupFunction returns the registered definition for name, if any.
func LookupFunction(name string) (FunctionDefinition, bool) {
	d, ok := functionRegistry[upperFunctionName(name)]
	return d, ok
}

// validateDispatch checks name/argc against the registry and returns a
// structural *EngineError describing the failure, or nil if the call is
// well-formed and dispatch should proceed.
func validateDispatch(name string, argc int) *EngineError {
	def, ok := LookupFunction(name)
	if !ok {
		return &EngineError{Code: EngineErrorUnknownFunction, Function: upperFunctionName(name)}
	}
	if !def.accepts(argc) {
		return &EngineError{
			Code:     EngineErrorInvalidArgCount,
			Function: def.Name,
			Expected: def.expectedLabel(),
			Got:      argc,
		}
	}
	return nil
}
