package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PRODUCT multiplies every numeric argument, flattening ranges the same
// way SUM does.
func (bf *BuiltInFunctions) PRODUCT(args ...any) (Primitive, error) {
	product := 1.0
	seen := false
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return nil, err
		}
		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				if err := checkForError(value); err != nil {
					return nil, err
				}
				if num, ok := toNumber(value); ok {
					product *= num
					seen = true
				}
			}
			continue
		}
		if num, ok := toNumber(arg); ok {
			product *= num
			seen = true
		}
	}
	if !seen {
		return 0.0, nil
	}
	return product, nil
}

// CONCAT is the modern replacement for CONCATENATE: it also accepts
// ranges, flattening their values before joining.
func (bf *BuiltInFunctions) CONCAT(args ...any) (Primitive, error) {
	var sb strings.Builder
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return nil, err
		}
		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				if err := checkForError(value); err != nil {
					return nil, err
				}
				sb.WriteString(toString(value))
			}
			continue
		}
		sb.WriteString(toString(arg))
	}
	return sb.String(), nil
}

// LEFT returns the leftmost num_chars characters of text (default 1).
func (bf *BuiltInFunctions) LEFT(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	text := []rune(toString(args[0]))

	n := 1
	if len(args) == 2 {
		if err := checkForError(args[1]); err != nil {
			return nil, err
		}
		num, ok := toNumber(args[1])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "LEFT requires a numeric character count")
		}
		n = int(num)
	}
	if n < 0 {
		return nil, NewSpreadsheetError(ErrorCodeValue, "LEFT character count must be non-negative")
	}
	if n > len(text) {
		n = len(text)
	}
	return string(text[:n]), nil
}

// RIGHT returns the rightmost num_chars characters of text (default 1).
func (bf *BuiltInFunctions) RIGHT(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	text := []rune(toString(args[0]))

	n := 1
	if len(args) == 2 {
		if err := checkForError(args[1]); err != nil {
			return nil, err
		}
		num, ok := toNumber(args[1])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "RIGHT requires a numeric character count")
		}
		n = int(num)
	}
	if n < 0 {
		return nil, NewSpreadsheetError(ErrorCodeValue, "RIGHT character count must be non-negative")
	}
	if n > len(text) {
		n = len(text)
	}
	return string(text[len(text)-n:]), nil
}

// PROPER capitalizes the first letter of each word in text and
// lowercases the rest.
func (bf *BuiltInFunctions) PROPER(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	return strings.Title(strings.ToLower(toString(args[0]))), nil
}

// DATE returns the Excel serial number for the given year, month, and day,
// normalizing out-of-range month/day values the way Excel does (e.g.
// month 13 rolls over into January of the following year).
func (bf *BuiltInFunctions) DATE(args ...any) (Primitive, error) {
	for _, a := range args {
		if err := checkForError(a); err != nil {
			return nil, err
		}
	}
	yearF, ok1 := toNumber(args[0])
	monthF, ok2 := toNumber(args[1])
	dayF, ok3 := toNumber(args[2])
	if !ok1 || !ok2 || !ok3 {
		return nil, NewSpreadsheetError(ErrorCodeValue, "DATE requires numeric arguments")
	}

	t := time.Date(int(yearF), time.Month(int(monthF)), int(dayF), 0, 0, 0, 0, time.UTC)
	diffMs := float64(t.UnixMilli() - EXCEL_EPOCH_MS)
	return math.Floor(diffMs / MS_PER_DAY), nil
}

// decimalRound rounds num to places decimal places using banker-free
// half-away-from-zero rounding via shopspring/decimal, avoiding the
// float64 representation error that math.Round(num*10^n)/10^n can
// introduce for values like 2.675 at 2 decimal places.
func decimalRound(num float64, places int32) float64 {
	d := decimal.NewFromFloat(num)
	rounded, _ := d.Round(int32(places)).Float64()
	return rounded
}

// ROUNDUP rounds num away from zero to num_digits decimal places.
func (bf *BuiltInFunctions) ROUNDUP(args ...any) (Primitive, error) {
	num, places, err := roundArgs(args, "ROUNDUP")
	if err != nil {
		return nil, err
	}
	d := decimal.NewFromFloat(num)
	scale := decimal.New(1, places)
	scaled := d.Mul(scale)
	var rounded decimal.Decimal
	if scaled.Sign() >= 0 {
		rounded = scaled.Ceil()
	} else {
		rounded = scaled.Floor()
	}
	result, _ := rounded.Div(scale).Float64()
	return result, nil
}

// ROUNDDOWN truncates num toward zero to num_digits decimal places.
func (bf *BuiltInFunctions) ROUNDDOWN(args ...any) (Primitive, error) {
	num, places, err := roundArgs(args, "ROUNDDOWN")
	if err != nil {
		return nil, err
	}
	d := decimal.NewFromFloat(num)
	scale := decimal.New(1, places)
	scaled := d.Mul(scale).Truncate(0)
	result, _ := scaled.Div(scale).Float64()
	return result, nil
}

// TRUNC truncates num to num_digits decimal places (default 0), without
// rounding, same as ROUNDDOWN with its argument order flattened into a
// single function the way Excel exposes both.
func (bf *BuiltInFunctions) TRUNC(args ...any) (Primitive, error) {
	return bf.ROUNDDOWN(args...)
}

func roundArgs(args []any, fn string) (num float64, places int32, err error) {
	for _, a := range args {
		if e := checkForError(a); e != nil {
			return 0, 0, e
		}
	}
	num, ok := toNumber(args[0])
	if !ok {
		return 0, 0, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("%s requires a numeric first argument", fn))
	}
	if len(args) == 2 {
		p, ok := toNumber(args[1])
		if !ok {
			return 0, 0, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("%s requires a numeric second argument", fn))
		}
		places = int32(p)
	}
	return num, places, nil
}

// SIGN returns -1, 0, or 1 depending on the sign of num.
func (bf *BuiltInFunctions) SIGN(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	num, ok := toNumber(args[0])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "SIGN requires a numeric argument")
	}
	switch {
	case num > 0:
		return 1.0, nil
	case num < 0:
		return -1.0, nil
	default:
		return 0.0, nil
	}
}

// EVEN rounds num up, away from zero, to the nearest even integer.
func (bf *BuiltInFunctions) EVEN(args ...any) (Primitive, error) {
	num, err := singleNumericArg(args, "EVEN")
	if err != nil {
		return nil, err
	}
	return roundToMultiple(num, 2), nil
}

// ODD rounds num up, away from zero, to the nearest odd integer.
func (bf *BuiltInFunctions) ODD(args ...any) (Primitive, error) {
	num, err := singleNumericArg(args, "ODD")
	if err != nil {
		return nil, err
	}
	if num >= 0 {
		rounded := math.Ceil(num)
		if math.Mod(rounded, 2) == 0 {
			rounded++
		}
		return rounded, nil
	}
	rounded := math.Floor(num)
	if math.Mod(rounded, 2) == 0 {
		rounded--
	}
	return rounded, nil
}

func roundToMultiple(num float64, multiple float64) float64 {
	if num >= 0 {
		return math.Ceil(num/multiple) * multiple
	}
	return math.Floor(num/multiple) * multiple
}

func singleNumericArg(args []any, fn string) (float64, error) {
	if err := checkForError(args[0]); err != nil {
		return 0, err
	}
	num, ok := toNumber(args[0])
	if !ok {
		return 0, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("%s requires a numeric argument", fn))
	}
	return num, nil
}

// RANDBETWEEN returns a random integer between bottom and top inclusive.
// Like RAND, it's volatile and recalculates on every Calculate() pass.
func (bf *BuiltInFunctions) RANDBETWEEN(args ...any) (Primitive, error) {
	for _, a := range args {
		if err := checkForError(a); err != nil {
			return nil, err
		}
	}
	bottomF, ok1 := toNumber(args[0])
	topF, ok2 := toNumber(args[1])
	if !ok1 || !ok2 {
		return nil, NewSpreadsheetError(ErrorCodeValue, "RANDBETWEEN requires numeric arguments")
	}
	bottom, top := math.Ceil(bottomF), math.Floor(topF)
	if bottom > top {
		return nil, NewSpreadsheetError(ErrorCodeNum, "RANDBETWEEN bottom must not exceed top")
	}
	span := top - bottom + 1
	return bottom + math.Floor(bf.rng.Float64()*span), nil
}

// EXP returns e raised to the power of num.
func (bf *BuiltInFunctions) EXP(args ...any) (Primitive, error) {
	num, err := singleNumericArg(args, "EXP")
	if err != nil {
		return nil, err
	}
	return math.Exp(num), nil
}

// LN returns the natural logarithm of num.
func (bf *BuiltInFunctions) LN(args ...any) (Primitive, error) {
	num, err := singleNumericArg(args, "LN")
	if err != nil {
		return nil, err
	}
	if num <= 0 {
		return nil, NewSpreadsheetError(ErrorCodeNum, "LN requires a positive argument")
	}
	return math.Log(num), nil
}

// LOG returns the logarithm of num in the given base (default 10).
func (bf *BuiltInFunctions) LOG(args ...any) (Primitive, error) {
	for _, a := range args {
		if err := checkForError(a); err != nil {
			return nil, err
		}
	}
	num, ok := toNumber(args[0])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "LOG requires a numeric argument")
	}
	if num <= 0 {
		return nil, NewSpreadsheetError(ErrorCodeNum, "LOG requires a positive argument")
	}
	base := 10.0
	if len(args) == 2 {
		b, ok := toNumber(args[1])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "LOG requires a numeric base")
		}
		base = b
	}
	return math.Log(num) / math.Log(base), nil
}

// LOG10 returns the base-10 logarithm of num.
func (bf *BuiltInFunctions) LOG10(args ...any) (Primitive, error) {
	num, err := singleNumericArg(args, "LOG10")
	if err != nil {
		return nil, err
	}
	if num <= 0 {
		return nil, NewSpreadsheetError(ErrorCodeNum, "LOG10 requires a positive argument")
	}
	return math.Log10(num), nil
}

// FACT returns the factorial of num, truncated to an integer.
func (bf *BuiltInFunctions) FACT(args ...any) (Primitive, error) {
	num, err := singleNumericArg(args, "FACT")
	if err != nil {
		return nil, err
	}
	if num < 0 || num > 170 {
		return nil, NewSpreadsheetError(ErrorCodeNum, "FACT requires an argument between 0 and 170")
	}
	n := int(num)
	result := 1.0
	for i := 2; i <= n; i++ {
		result *= float64(i)
	}
	return result, nil
}

// ISBLANK reports whether value is an empty cell. Unlike ISERROR/ISNA,
// ISBLANK doesn't inspect errors - an error argument still propagates
// rather than reporting false.
func (bf *BuiltInFunctions) ISBLANK(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	return args[0] == nil, nil
}

// ISERROR reports whether value is any spreadsheet error. This is one of
// the two predicates (with ISNA) that inspects an error argument instead of
// propagating it.
func (bf *BuiltInFunctions) ISERROR(args ...any) (Primitive, error) {
	return checkForError(args[0]) != nil, nil
}

// ISNA reports whether value is specifically a #N/A error. Like ISERROR,
// it inspects rather than propagates its error argument.
func (bf *BuiltInFunctions) ISNA(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return err.ErrorCode == ErrorCodeNA, nil
	}
	return false, nil
}

// ISNUMBER reports whether value is numeric. An error argument propagates
// rather than reporting false.
func (bf *BuiltInFunctions) ISNUMBER(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	switch args[0].(type) {
	case float64, int, int64:
		return true, nil
	default:
		return false, nil
	}
}

// ISTEXT reports whether value is a string. An error argument propagates
// rather than reporting false.
func (bf *BuiltInFunctions) ISTEXT(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	_, ok := args[0].(string)
	return ok, nil
}
