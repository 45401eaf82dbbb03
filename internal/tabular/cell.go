// Package tabular turns spreadsheet-like sources (xlsx workbooks, CSV files)
// into project records and renders the catalog back into those formats.
package tabular

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gochang/agri-notify/internal/project"
)

// Kind is the type of a cell as reported by its source.
type Kind int

// Cell kinds.
const (
	KindBlank Kind = iota
	KindText
	KindNumber
	KindDate
	KindBool
	KindFormula
	KindError   // spreadsheet error value such as #N/A
	KindInvalid // the source could not decode the cell
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	case KindFormula:
		return "formula"
	case KindError:
		return "error"
	default:
		return "invalid"
	}
}

// Cell is one typed spreadsheet cell.
type Cell struct {
	Kind    Kind
	Text    string    // KindText, KindError
	Number  float64   // KindNumber
	Time    time.Time // KindDate
	Bool    bool      // KindBool
	Formula string    // KindFormula
	Cached  *Cell     // KindFormula: last calculated result, nil when never calculated
	Err     error     // KindInvalid
}

// Row is an ordered sequence of cells; missing trailing cells are blank.
type Row []Cell

// Sheet is an ordered sequence of rows; row 0 is the header.
type Sheet struct {
	Name string
	Rows []Row
}

// Blank returns an empty cell.
func Blank() Cell { return Cell{Kind: KindBlank} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: KindText, Text: s} }

// Number returns a plain numeric cell.
func Number(v float64) Cell { return Cell{Kind: KindNumber, Number: v} }

// Date returns a date-formatted cell.
func Date(t time.Time) Cell { return Cell{Kind: KindDate, Time: t} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// Formula returns a formula cell with an optional cached result.
func Formula(expr string, cached *Cell) Cell {
	return Cell{Kind: KindFormula, Formula: expr, Cached: cached}
}

// ErrorValue returns a spreadsheet error cell (#DIV/0!, #N/A, ...).
func ErrorValue(code string) Cell { return Cell{Kind: KindError, Text: code} }

// Invalid returns a cell the source failed to decode.
func Invalid(err error) Cell { return Cell{Kind: KindInvalid, Err: err} }

// errNoCachedValue marks formula cells whose result cannot be used as text or number.
var errNoCachedValue = errors.New("formula has no usable cached result")

// String converts the cell to the text stored on a project field.
// Text is trimmed, numbers become integer strings, dates become yyyy.MM.dd,
// booleans become "true"/"false" and formulas use their cached result.
// Blank and error cells become "".
func (c Cell) String() (string, error) {
	switch c.Kind {
	case KindBlank, KindError:
		return "", nil
	case KindText:
		return strings.TrimSpace(c.Text), nil
	case KindNumber:
		return integerString(c.Number)
	case KindDate:
		return project.FormatDate(c.Time), nil
	case KindBool:
		return strconv.FormatBool(c.Bool), nil
	case KindFormula:
		return c.formulaString()
	case KindInvalid:
		if c.Err != nil {
			return "", c.Err
		}
		return "", errors.New("invalid cell")
	default:
		return "", fmt.Errorf("unknown cell kind %d", c.Kind)
	}
}

func (c Cell) formulaString() (string, error) {
	if c.Cached == nil {
		return "", fmt.Errorf("%w: =%s", errNoCachedValue, c.Formula)
	}
	switch c.Cached.Kind {
	case KindText:
		return strings.TrimSpace(c.Cached.Text), nil
	case KindNumber:
		return decimalString(c.Cached.Number)
	case KindDate:
		return project.FormatDate(c.Cached.Time), nil
	default:
		return "", fmt.Errorf("%w: =%s (%s)", errNoCachedValue, c.Formula, c.Cached.Kind)
	}
}

// integerString truncates toward zero.
func integerString(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("non-finite number %v", v)
	}
	return strconv.FormatFloat(math.Trunc(v), 'f', 0, 64), nil
}

// decimalString keeps one fractional digit for whole numbers ("3.0") and
// the shortest exact representation otherwise ("1.25").
func decimalString(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("non-finite number %v", v)
	}
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64), nil
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}
