package literal

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxDepth bounds container nesting.
const maxDepth = 200

// SyntaxError reports text that is not a literal.
type SyntaxError struct {
	// Offset is the byte offset in the input where the problem was found
	Offset int
	// Msg describes the problem
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid literal at offset %d: %s", e.Offset, e.Msg)
}

// Parse parses text as a single literal. A bare comma-separated list at the
// top level ("1, 2") is a tuple.
func Parse(text string) (Value, error) {
	p := &parser{src: text}
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf(p.pos, "empty literal")
	}

	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()

	if !p.eof() && p.peek() == ',' {
		items := []Value{v}
		for !p.eof() && p.peek() == ',' {
			p.pos++
			p.skipSpace()
			if p.eof() {
				break
			}
			item, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			p.skipSpace()
		}
		v = Tuple(items)
	}

	if !p.eof() {
		return nil, p.unexpected()
	}
	return v, nil
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) errorf(offset int, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected() error {
	if p.eof() {
		return p.errorf(p.pos, "unexpected end of input")
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return p.errorf(p.pos, "unexpected %q", r)
}

// skipSpace skips whitespace, backslash line continuations and # comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			p.pos++
		case c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '\n':
			p.pos += 2
		case c == '#':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf(p.pos, "nesting deeper than %d levels", maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseValue() (Value, error) {
	v, simple, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	v, _, err = p.parseComplexTail(v, simple)
	return v, err
}

// parseTerm parses one value. simple reports whether it is a number literal,
// optionally signed and parenthesized, which may start a complex sum.
func (p *parser) parseTerm() (v Value, simple bool, err error) {
	p.skipSpace()
	if p.eof() {
		return nil, false, p.errorf(p.pos, "unexpected end of input")
	}

	c := p.peek()
	switch {
	case c == '(':
		return p.parseParen()
	case c == '[':
		v, err = p.parseList()
	case c == '{':
		v, err = p.parseBrace()
	case c == '+' || c == '-':
		v, err = p.parseSigned()
		return v, err == nil, err
	case c == '\'' || c == '"':
		v, err = p.parseStrings()
	case p.atNumber():
		v, err = p.parseNumber()
		return v, err == nil, err
	case isIdentStart(c):
		if _, ok := p.stringPrefix(); ok {
			v, err = p.parseStrings()
		} else {
			v, err = p.parseName()
		}
	default:
		return nil, false, p.unexpected()
	}
	return v, false, err
}

func (p *parser) atNumber() bool {
	c := p.peek()
	if isDigit(c) {
		return true
	}
	return c == '.' && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1])
}

// =============================================================================
// Containers
// =============================================================================

// parseElements parses comma-separated values up to and including the
// closing byte. The opening bracket has already been consumed.
func (p *parser) parseElements(closing byte) (items []Value, sawComma bool, err error) {
	for {
		p.skipSpace()
		if p.eof() {
			return nil, false, p.errorf(p.pos, "unexpected end of input, expected %q", closing)
		}
		if p.peek() == closing {
			p.pos++
			return items, sawComma, nil
		}

		v, err := p.parseValue()
		if err != nil {
			return nil, false, err
		}
		items = append(items, v)

		p.skipSpace()
		if p.eof() {
			return nil, false, p.errorf(p.pos, "unexpected end of input, expected %q", closing)
		}
		switch p.peek() {
		case ',':
			p.pos++
			sawComma = true
		case closing:
			p.pos++
			return items, sawComma, nil
		default:
			return nil, false, p.errorf(p.pos, "expected ',' or %q", closing)
		}
	}
}

// parseParen parses a parenthesized value or a tuple. simple is true when the
// parentheses hold a single number literal.
func (p *parser) parseParen() (Value, bool, error) {
	if err := p.enter(); err != nil {
		return nil, false, err
	}
	defer p.leave()

	p.pos++
	p.skipSpace()
	if !p.eof() && p.peek() != ')' {
		first, simple, err := p.parseTerm()
		if err != nil {
			return nil, false, err
		}
		first, combined, err := p.parseComplexTail(first, simple)
		if err != nil {
			return nil, false, err
		}
		p.skipSpace()
		if p.eof() {
			return nil, false, p.errorf(p.pos, "unexpected end of input, expected ')'")
		}
		switch p.peek() {
		case ')':
			p.pos++
			return first, simple && !combined, nil
		case ',':
			p.pos++
		default:
			return nil, false, p.errorf(p.pos, "expected ',' or ')'")
		}
		rest, _, err := p.parseElements(')')
		if err != nil {
			return nil, false, err
		}
		return Tuple(append([]Value{first}, rest...)), false, nil
	}

	if _, _, err := p.parseElements(')'); err != nil {
		return nil, false, err
	}
	return Tuple{}, false, nil
}

func (p *parser) parseList() (Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.pos++
	items, _, err := p.parseElements(']')
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Value{}
	}
	return List(items), nil
}

func (p *parser) parseBrace() (Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.pos++
	p.skipSpace()
	if !p.eof() && p.peek() == '}' {
		p.pos++
		return Dict{}, nil
	}

	firstPos := p.pos
	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() && p.peek() == ':' {
		return p.parseDictRest(first, firstPos)
	}
	return p.parseSetRest(first, firstPos)
}

func (p *parser) parseDictRest(key Value, keyPos int) (Value, error) {
	var d Dict
	for {
		p.skipSpace()
		if p.eof() || p.peek() != ':' {
			return nil, p.errorf(p.pos, "expected ':'")
		}
		p.pos++

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if !hashable(key) {
			return nil, p.errorf(keyPos, "unhashable type: '%s'", key.Kind())
		}
		d = dictPut(d, key, val)

		p.skipSpace()
		if p.eof() {
			return nil, p.errorf(p.pos, "unexpected end of input, expected '}'")
		}
		if p.peek() == '}' {
			p.pos++
			return d, nil
		}
		if p.peek() != ',' {
			return nil, p.errorf(p.pos, "expected ',' or '}'")
		}
		p.pos++
		p.skipSpace()
		if !p.eof() && p.peek() == '}' {
			p.pos++
			return d, nil
		}

		keyPos = p.pos
		if key, err = p.parseValue(); err != nil {
			return nil, err
		}
	}
}

// dictPut stores key, replacing the value of an equal existing key in place.
func dictPut(d Dict, key, val Value) Dict {
	for i := range d {
		if Equal(d[i].Key, key) {
			d[i].Value = val
			return d
		}
	}
	return append(d, Pair{Key: key, Value: val})
}

func (p *parser) parseSetRest(first Value, firstPos int) (Value, error) {
	if !hashable(first) {
		return nil, p.errorf(firstPos, "unhashable type: '%s'", first.Kind())
	}
	s := Set{first}

	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf(p.pos, "unexpected end of input, expected '}'")
		}
		if p.peek() == '}' {
			p.pos++
			return s, nil
		}
		if p.peek() != ',' {
			return nil, p.errorf(p.pos, "expected ',' or '}'")
		}
		p.pos++
		p.skipSpace()
		if !p.eof() && p.peek() == '}' {
			p.pos++
			return s, nil
		}

		itemPos := p.pos
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if !hashable(item) {
			return nil, p.errorf(itemPos, "unhashable type: '%s'", item.Kind())
		}
		if indexOf(s, item) < 0 {
			s = append(s, item)
		}
	}
}

// =============================================================================
// Names
// =============================================================================

func (p *parser) parseName() (Value, error) {
	start := p.pos
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	name := p.src[start:p.pos]

	switch name {
	case "None":
		return None{}, nil
	case "True":
		return Bool(true), nil
	case "False":
		return Bool(false), nil
	case "set":
		// set() is the only spelling of an empty set
		save := p.pos
		p.skipSpace()
		if !p.eof() && p.peek() == '(' {
			p.pos++
			p.skipSpace()
			if !p.eof() && p.peek() == ')' {
				p.pos++
				return Set{}, nil
			}
		}
		p.pos = save
	}
	return nil, p.errorf(start, "malformed node: name %q is not a literal", name)
}

// =============================================================================
// Numbers
// =============================================================================

func (p *parser) parseSigned() (Value, error) {
	start := p.pos
	negative := p.peek() == '-'
	p.pos++
	p.skipSpace()

	v, err := p.parseWrappedNumber(fmt.Sprintf("unary %q applies only to numbers", p.src[start]), start)
	if err != nil {
		return nil, err
	}
	if !negative {
		return v, nil
	}
	switch n := v.(type) {
	case Int:
		return Int{V: new(big.Int).Neg(n.V)}, nil
	case Float:
		return -n, nil
	case Complex:
		return -n, nil
	}
	return v, nil
}

// parseWrappedNumber parses an unsigned number literal inside any number of
// parentheses: 1, (1), ((2j)).
func (p *parser) parseWrappedNumber(msg string, msgOffset int) (Value, error) {
	parens := 0
	for !p.eof() && p.peek() == '(' {
		parens++
		p.pos++
		p.skipSpace()
	}
	if p.eof() || !p.atNumber() {
		return nil, p.errorf(msgOffset, "%s", msg)
	}

	v, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	for ; parens > 0; parens-- {
		p.skipSpace()
		if p.eof() || p.peek() != ')' {
			return nil, p.errorf(p.pos, "expected ')'")
		}
		p.pos++
	}
	return v, nil
}

// parseComplexTail completes "real + imaginary" and "real - imaginary" sums
// when left is a number literal. combined reports whether a sum was read.
func (p *parser) parseComplexTail(left Value, simple bool) (v Value, combined bool, err error) {
	if !simple {
		return left, false, nil
	}
	save := p.pos
	p.skipSpace()
	if p.eof() || (p.peek() != '+' && p.peek() != '-') {
		p.pos = save
		return left, false, nil
	}

	opPos := p.pos
	negative := p.peek() == '-'
	p.pos++
	p.skipSpace()

	right, err := p.parseWrappedNumber("expected an imaginary number after the operator", opPos)
	if err != nil {
		return nil, false, err
	}
	im, ok := right.(Complex)
	if !ok {
		return nil, false, p.errorf(opPos, "only a real number plus or minus an imaginary number is allowed")
	}

	var re float64
	switch l := left.(type) {
	case Int:
		f, _ := new(big.Float).SetInt(l.V).Float64()
		if math.IsInf(f, 0) {
			return nil, false, p.errorf(opPos, "int too large to convert to float")
		}
		re = f
	case Float:
		re = float64(l)
	default:
		return nil, false, p.errorf(opPos, "only a real number plus or minus an imaginary number is allowed")
	}

	if negative {
		return Complex(complex(re, 0) - complex128(im)), true, nil
	}
	return Complex(complex(re, 0) + complex128(im)), true, nil
}

func (p *parser) parseNumber() (Value, error) {
	start := p.pos

	if p.peek() == '0' && p.pos+1 < len(p.src) {
		var base int
		var kind string
		switch p.src[p.pos+1] {
		case 'x', 'X':
			base, kind = 16, "hexadecimal"
		case 'o', 'O':
			base, kind = 8, "octal"
		case 'b', 'B':
			base, kind = 2, "binary"
		}
		if base != 0 {
			p.pos += 2
			n, err := p.scanDigits(func(c byte) bool { return isBaseDigit(c, base) }, true)
			if err != nil || n == 0 || (!p.eof() && isIdentChar(p.peek())) {
				return nil, p.errorf(start, "invalid %s literal", kind)
			}
			digits := strings.ReplaceAll(p.src[start+2:p.pos], "_", "")
			i, ok := new(big.Int).SetString(digits, base)
			if !ok {
				return nil, p.errorf(start, "invalid %s literal", kind)
			}
			return Int{V: i}, nil
		}
	}

	isFloat := false
	if _, err := p.scanDigits(isDigit, false); err != nil {
		return nil, err
	}
	if !p.eof() && p.peek() == '.' {
		isFloat = true
		p.pos++
		if _, err := p.scanDigits(isDigit, false); err != nil {
			return nil, err
		}
	}
	if !p.eof() && (p.peek() == 'e' || p.peek() == 'E') {
		p.pos++
		if !p.eof() && (p.peek() == '+' || p.peek() == '-') {
			p.pos++
		}
		n, err := p.scanDigits(isDigit, false)
		if err != nil || n == 0 {
			return nil, p.errorf(start, "invalid decimal literal")
		}
		isFloat = true
	}
	if !p.eof() && (p.peek() == 'j' || p.peek() == 'J') {
		text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
		p.pos++
		if !p.eof() && isIdentChar(p.peek()) {
			return nil, p.errorf(start, "invalid imaginary literal")
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, p.errorf(start, "invalid imaginary literal %q", text)
		}
		return Complex(complex(0, f)), nil
	}
	if !p.eof() && isIdentChar(p.peek()) {
		return nil, p.errorf(start, "invalid decimal literal")
	}

	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, p.errorf(start, "invalid float literal %q", text)
		}
		return Float(f), nil
	}

	if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0") != "" {
		return nil, p.errorf(start, "leading zeros in decimal integer literals are not permitted")
	}
	i, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, p.errorf(start, "invalid decimal literal")
	}
	return Int{V: i}, nil
}

// scanDigits consumes digits with single underscores between them and
// returns the number of digits read.
func (p *parser) scanDigits(digit func(byte) bool, leadingUnderscore bool) (int, error) {
	start := p.pos
	n := 0
	prevUnderscore := false
	for !p.eof() {
		c := p.peek()
		if c == '_' {
			if prevUnderscore || (n == 0 && !leadingUnderscore) {
				return n, p.errorf(start, "invalid underscore in numeric literal")
			}
			prevUnderscore = true
			p.pos++
			continue
		}
		if !digit(c) {
			break
		}
		n++
		prevUnderscore = false
		p.pos++
	}
	if prevUnderscore {
		return n, p.errorf(start, "invalid underscore in numeric literal")
	}
	return n, nil
}

// =============================================================================
// Strings
// =============================================================================

// stringPrefix reports whether a string literal (with an optional r, u, b or
// f prefix) starts at the current position, and the prefix length.
func (p *parser) stringPrefix() (int, bool) {
	n := 0
	for n < 3 && p.pos+n < len(p.src) {
		c := p.src[p.pos+n]
		if c == '\'' || c == '"' {
			break
		}
		if !strings.ContainsRune("rRuUbBfF", rune(c)) {
			return 0, false
		}
		n++
	}
	if p.pos+n >= len(p.src) || (p.src[p.pos+n] != '\'' && p.src[p.pos+n] != '"') {
		return 0, false
	}

	prefix := strings.ToLower(p.src[p.pos : p.pos+n])
	switch prefix {
	case "", "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return n, true
	default:
		return 0, false
	}
}

// parseStrings parses one string literal followed by any adjacent ones,
// concatenating them.
func (p *parser) parseStrings() (Value, error) {
	var sb strings.Builder
	isBytes := false

	for first := true; ; first = false {
		if !first {
			p.skipSpace()
			if p.eof() {
				break
			}
		}
		n, ok := p.stringPrefix()
		if !ok {
			break
		}

		prefix := strings.ToLower(p.src[p.pos : p.pos+n])
		if strings.Contains(prefix, "f") {
			return nil, p.errorf(p.pos, "f-strings are not literals")
		}
		b := strings.Contains(prefix, "b")
		if !first && b != isBytes {
			return nil, p.errorf(p.pos, "cannot mix bytes and nonbytes literals")
		}
		isBytes = b
		p.pos += n

		if err := p.readStringBody(&sb, strings.Contains(prefix, "r"), isBytes); err != nil {
			return nil, err
		}
	}

	if isBytes {
		return Bytes(sb.String()), nil
	}
	return Str(sb.String()), nil
}

func (p *parser) readStringBody(sb *strings.Builder, raw, isBytes bool) error {
	open := p.pos
	q := p.peek()
	delim := string(q)
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(delim, 3))
	if triple {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)

	for {
		if p.eof() {
			return p.errorf(open, "unterminated string literal")
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			p.pos += len(delim)
			return nil
		}

		c := p.peek()
		if c == '\n' && !triple {
			return p.errorf(open, "unterminated string literal")
		}
		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return p.errorf(open, "unterminated string literal")
			}
			if raw {
				// The backslash stays, and the next character cannot close the string.
				sb.WriteByte('\\')
				p.pos++
				if err := p.copyChar(sb, isBytes); err != nil {
					return err
				}
				continue
			}
			if err := p.readEscape(sb, isBytes); err != nil {
				return err
			}
			continue
		}
		if err := p.copyChar(sb, isBytes); err != nil {
			return err
		}
	}
}

func (p *parser) copyChar(sb *strings.Builder, isBytes bool) error {
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	if r == utf8.RuneError && size == 1 {
		return p.errorf(p.pos, "invalid UTF-8 in string literal")
	}
	if isBytes && r >= utf8.RuneSelf {
		return p.errorf(p.pos, "bytes can only contain ASCII literal characters")
	}
	sb.WriteString(p.src[p.pos : p.pos+size])
	p.pos += size
	return nil
}

var simpleEscapes = map[byte]byte{
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
}

// readEscape decodes the escape sequence at the current backslash.
func (p *parser) readEscape(sb *strings.Builder, isBytes bool) error {
	start := p.pos
	p.pos++
	c := p.peek()

	if c == '\n' {
		p.pos++
		return nil
	}
	if out, ok := simpleEscapes[c]; ok {
		sb.WriteByte(out)
		p.pos++
		return nil
	}

	switch {
	case c >= '0' && c <= '7':
		v := 0
		for i := 0; i < 3 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; i++ {
			v = v*8 + int(p.peek()-'0')
			p.pos++
		}
		if isBytes {
			if v > 0xff {
				return p.errorf(start, "octal escape out of range")
			}
			sb.WriteByte(byte(v))
			return nil
		}
		sb.WriteRune(rune(v))
		return nil

	case c == 'x':
		v, err := p.readHex(start, 2)
		if err != nil {
			return err
		}
		if isBytes {
			sb.WriteByte(byte(v))
		} else {
			sb.WriteRune(rune(v))
		}
		return nil

	case (c == 'u' || c == 'U') && !isBytes:
		width := 4
		if c == 'U' {
			width = 8
		}
		v, err := p.readHex(start, width)
		if err != nil {
			return err
		}
		if v > utf8.MaxRune {
			return p.errorf(start, "illegal Unicode character")
		}
		if v >= 0xd800 && v <= 0xdfff {
			return p.errorf(start, "surrogate code points are not supported")
		}
		sb.WriteRune(rune(v))
		return nil

	case c == 'N' && !isBytes:
		return p.errorf(start, "named Unicode escapes are not supported")
	}

	// Unknown escapes keep the backslash.
	sb.WriteByte('\\')
	return nil
}

func (p *parser) readHex(start, width int) (uint64, error) {
	p.pos++
	if p.pos+width > len(p.src) {
		return 0, p.errorf(start, "truncated \\%c escape", p.src[start+1])
	}
	digits := p.src[p.pos : p.pos+width]
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, p.errorf(start, "truncated \\%c escape", p.src[start+1])
	}
	p.pos += width
	return v, nil
}

// =============================================================================
// Character classes
// =============================================================================

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isBaseDigit(c byte, base int) bool {
	switch base {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
	return isDigit(c)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
