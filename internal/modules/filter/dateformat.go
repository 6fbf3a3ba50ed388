package filter

import (
	"fmt"
	"strings"
)

// strftimeDirectives maps a strftime directive to its Go layout for parsing
// and for formatting. Parsing accepts one or two digit fields.
var strftimeDirectives = map[byte]struct {
	parse  string
	format string
}{
	'Y': {"2006", "2006"},
	'y': {"06", "06"},
	'm': {"1", "01"},
	'd': {"2", "02"},
	'H': {"15", "15"},
	'M': {"4", "04"},
	'S': {"5", "05"},
	'b': {"Jan", "Jan"},
	'B': {"January", "January"},
	'%': {"%", "%"},
}

// convertDateFormat converts a strftime pattern (%Y-%m-%d) into Go layouts.
// Literal letters and digits are rejected because Go layouts cannot escape
// them.
func convertDateFormat(pattern string) (parseLayout, formatLayout string, err error) {
	if pattern == "" {
		return "", "", fmt.Errorf("empty date pattern")
	}

	var parse, format strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '%' {
			if i+1 >= len(pattern) {
				return "", "", fmt.Errorf("date pattern %q ends with a lone %%", pattern)
			}
			i++
			d, ok := strftimeDirectives[pattern[i]]
			if !ok {
				return "", "", fmt.Errorf("unsupported directive %%%c in date pattern %q", pattern[i], pattern)
			}
			parse.WriteString(d.parse)
			format.WriteString(d.format)
			continue
		}
		if isAlphaNum(c) {
			return "", "", fmt.Errorf("literal %q is not supported in date pattern %q", c, pattern)
		}
		parse.WriteByte(c)
		format.WriteByte(c)
	}
	return parse.String(), format.String(), nil
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
