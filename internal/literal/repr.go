package literal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Repr prints v in literal notation.
//
// Strings use single quotes unless they contain a single quote and no double
// quote. One-element tuples print as (x,), integral floats keep a trailing .0
// and floats switch to exponent form outside 1e-4 <= |f| < 1e16.
func Repr(v Value) string {
	var sb strings.Builder
	writeRepr(&sb, v)
	return sb.String()
}

func writeRepr(sb *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil, None:
		sb.WriteString("None")
	case Bool:
		if x {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case Int:
		sb.WriteString(x.V.String())
	case Float:
		sb.WriteString(formatFloat(float64(x)))
	case Complex:
		sb.WriteString(formatComplex(complex128(x)))
	case Str:
		writeQuoted(sb, string(x), false)
	case Bytes:
		sb.WriteByte('b')
		writeQuoted(sb, string(x), true)
	case Tuple:
		sb.WriteByte('(')
		writeItems(sb, x)
		if len(x) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case List:
		sb.WriteByte('[')
		writeItems(sb, x)
		sb.WriteByte(']')
	case Set:
		if len(x) == 0 {
			sb.WriteString("set()")
			return
		}
		sb.WriteByte('{')
		writeItems(sb, x)
		sb.WriteByte('}')
	case Dict:
		sb.WriteByte('{')
		for i, p := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeRepr(sb, p.Key)
			sb.WriteString(": ")
			writeRepr(sb, p.Value)
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "<%T>", v)
	}
}

func writeItems(sb *strings.Builder, items []Value) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeRepr(sb, item)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	// Shortest round-trip digits decide the layout.
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// formatComplex prints 4j for a complex with a +0 real part and (re+imj)
// otherwise. Integral parts drop the trailing .0.
func formatComplex(c complex128) string {
	re, im := real(c), imag(c)
	if re == 0 && !math.Signbit(re) {
		return complexPart(im) + "j"
	}
	imText := complexPart(im)
	if !strings.HasPrefix(imText, "-") {
		imText = "+" + imText
	}
	return "(" + complexPart(re) + imText + "j)"
}

func complexPart(f float64) string {
	return strings.TrimSuffix(formatFloat(f), ".0")
}

func writeQuoted(sb *strings.Builder, s string, isBytes bool) {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}

	sb.WriteByte(quote)
	if isBytes {
		for i := 0; i < len(s); i++ {
			writeByteEscaped(sb, s[i], quote)
		}
	} else {
		for _, r := range s {
			writeRuneEscaped(sb, r, quote)
		}
	}
	sb.WriteByte(quote)
}

func writeByteEscaped(sb *strings.Builder, c, quote byte) {
	switch {
	case c == quote || c == '\\':
		sb.WriteByte('\\')
		sb.WriteByte(c)
	case c == '\t':
		sb.WriteString(`\t`)
	case c == '\n':
		sb.WriteString(`\n`)
	case c == '\r':
		sb.WriteString(`\r`)
	case c < 0x20 || c >= 0x7f:
		fmt.Fprintf(sb, `\x%02x`, c)
	default:
		sb.WriteByte(c)
	}
}

func writeRuneEscaped(sb *strings.Builder, r rune, quote byte) {
	switch {
	case r < utf8.RuneSelf:
		writeByteEscaped(sb, byte(r), quote)
	case unicode.IsPrint(r):
		sb.WriteRune(r)
	case r <= 0xff:
		fmt.Fprintf(sb, `\x%02x`, r)
	case r <= 0xffff:
		fmt.Fprintf(sb, `\u%04x`, r)
	default:
		fmt.Fprintf(sb, `\U%08x`, r)
	}
}
