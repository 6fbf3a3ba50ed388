package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/impavidox/Gestionale/internal/literal"
)

// Defaults reproduce the recovery script: keep rows whose element 1 is "EE".
const (
	DefaultMarker     = "EE"
	DefaultExpression = "len(row) > 1 && row[1] == marker"
)

var (
	// ErrInvalidExpression is returned when the predicate does not compile
	ErrInvalidExpression = errors.New("invalid row expression")
	// ErrEvaluation is returned when the predicate fails at run time
	ErrEvaluation = errors.New("row expression evaluation failed")
)

// FilterConfig configures the row predicate.
type FilterConfig struct {
	// Marker is exposed to the expression as `marker` (default "EE")
	Marker string `json:"marker,omitempty"`
	// Expression is a boolean expr-lang expression over `row` and `marker`
	Expression string `json:"expression,omitempty"`
}

// Filter decides which parsed rows are kept.
type Filter struct {
	marker     string
	expression string
	program    *vm.Program
}

// NewFilter compiles the predicate. Empty fields take the defaults.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	marker := cfg.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	expression := strings.TrimSpace(cfg.Expression)
	if expression == "" {
		expression = DefaultExpression
	}

	env := map[string]interface{}{
		"row":    []interface{}{},
		"marker": "",
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expression, err)
	}

	return &Filter{
		marker:     marker,
		expression: expression,
		program:    program,
	}, nil
}

// DefaultFilter returns the "element 1 equals EE" filter.
func DefaultFilter() *Filter {
	f, err := NewFilter(FilterConfig{})
	if err != nil {
		panic(fmt.Sprintf("default row expression does not compile: %v", err))
	}
	return f
}

// Marker returns the marker value bound into the expression.
func (f *Filter) Marker() string {
	return f.marker
}

// Expression returns the compiled expression source.
func (f *Filter) Expression() string {
	return f.expression
}

// Match reports whether v is kept. Only tuples and lists are candidates;
// sequence reports whether v was one.
func (f *Filter) Match(v literal.Value) (keep bool, sequence bool, err error) {
	items, ok := literal.Sequence(v)
	if !ok {
		return false, false, nil
	}

	row := make([]interface{}, len(items))
	for i, item := range items {
		row[i] = literal.ToNative(item)
	}

	out, err := expr.Run(f.program, map[string]interface{}{
		"row":    row,
		"marker": f.marker,
	})
	if err != nil {
		return false, true, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	keep, _ = out.(bool)
	return keep, true, nil
}
