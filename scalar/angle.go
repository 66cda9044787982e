package scalar

import (
	"fmt"
	"math"
	"strings"

	"github.com/yamlcore/yamlcore/eventstream"
)

// EvalAngle is the robotics-convention expression evaluator: it parses
// plain numbers, the constants pi/tau/inf/nan, +-*/ arithmetic with
// parentheses, the deg(...)/rad(...) unit functions, and sexagesimal
// "hh:mm[:ss[.frac]]" literals, returning a value in radians.
//
// A bare numeric literal takes its unit from tag: TagDegrees multiplies
// by pi/180, TagRadians is left alone. Once any deg()/rad()/sexagesimal
// unit construct appears anywhere in the expression, tag-based conversion
// is suppressed for the whole expression; mixing a unitized construct
// with a bare term under TagDegrees is rejected as ambiguous, since it's
// unclear whether the bare term was meant in degrees or radians.
func EvalAngle(s string, tag eventstream.Tag) (float64, error) {
	p := &angleParser{s: s, tag: tag, sexagesimalIsTime: true}
	p.skipWS()
	v, usedUnit, sawPlain, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipWS()
	if !p.eof() {
		return 0, fmt.Errorf("unexpected trailing characters in angle expression: %q", s)
	}

	if !usedUnit {
		switch tag {
		case eventstream.TagDegrees:
			v *= deg2rad
		case eventstream.TagRadians:
		}
	} else if tag == eventstream.TagDegrees && sawPlain {
		return 0, fmt.Errorf("ambiguous mix of unitized values and Degrees tag: wrap bare terms with deg(...) or rad(...), or remove the tag")
	}
	return v, nil
}

const (
	deg2rad      = math.Pi / 180.0
	maxExprDepth = 256
	maxNumDigits = 1_000_000
)

type angleParser struct {
	s                 string
	i                 int
	depth             int
	tag               eventstream.Tag
	sexagesimalIsTime bool
}

func (p *angleParser) eof() bool { return p.i >= len(p.s) }
func (p *angleParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.i]
}
func (p *angleParser) peekAt(off int) byte {
	if p.i+off >= len(p.s) {
		return 0
	}
	return p.s[p.i+off]
}
func (p *angleParser) bump() byte {
	c := p.peek()
	if c != 0 {
		p.i++
	}
	return c
}
func isWS(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func (p *angleParser) skipWS() {
	for !p.eof() && isWS(p.peek()) {
		p.i++
	}
}
func (p *angleParser) err(msg string) error {
	return fmt.Errorf("%s in angle expression %q", msg, p.s)
}
func (p *angleParser) enter() error {
	if p.depth >= maxExprDepth {
		return p.err("expression too deeply nested")
	}
	p.depth++
	return nil
}
func (p *angleParser) exit() { p.depth-- }

// expr := term (('+'|'-') term)*
func (p *angleParser) expr() (v float64, usedUnit, sawPlain bool, err error) {
	v, usedUnit, sawPlain, err = p.term()
	if err != nil {
		return
	}
	for {
		p.skipWS()
		switch p.peek() {
		case '+':
			p.bump()
			rv, ru, rp, e := p.term()
			if e != nil {
				return 0, false, false, e
			}
			v += rv
			usedUnit = usedUnit || ru
			sawPlain = sawPlain || rp
		case '-':
			p.bump()
			rv, ru, rp, e := p.term()
			if e != nil {
				return 0, false, false, e
			}
			v -= rv
			usedUnit = usedUnit || ru
			sawPlain = sawPlain || rp
		default:
			return v, usedUnit, sawPlain, nil
		}
	}
}

// term := unary (('*'|'/') unary)*
func (p *angleParser) term() (v float64, usedUnit, sawPlain bool, err error) {
	v, usedUnit, sawPlain, err = p.unary()
	if err != nil {
		return
	}
	for {
		p.skipWS()
		switch p.peek() {
		case '*':
			p.bump()
			rv, ru, rp, e := p.unary()
			if e != nil {
				return 0, false, false, e
			}
			v *= rv
			usedUnit = usedUnit || ru
			sawPlain = sawPlain || rp
		case '/':
			p.bump()
			rv, ru, rp, e := p.unary()
			if e != nil {
				return 0, false, false, e
			}
			v /= rv
			usedUnit = usedUnit || ru
			sawPlain = sawPlain || rp
		default:
			return v, usedUnit, sawPlain, nil
		}
	}
}

// unary := ('+'|'-')* primary
func (p *angleParser) unary() (float64, bool, bool, error) {
	p.skipWS()
	sign := 1.0
	for {
		switch p.peek() {
		case '+':
			p.bump()
		case '-':
			p.bump()
			sign = -sign
		default:
			v, u, pl, err := p.primary()
			return sign * v, u, pl, err
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// primary := NUMBER | SEXAGESIMAL | CONST | '(' expr ')' | FUNC '(' expr ')'
func (p *angleParser) primary() (float64, bool, bool, error) {
	p.skipWS()
	if p.eof() {
		return 0, false, false, p.err("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '(':
		p.bump()
		if err := p.enter(); err != nil {
			return 0, false, false, err
		}
		v, u, pl, err := p.expr()
		p.exit()
		if err != nil {
			return 0, false, false, err
		}
		p.skipWS()
		if p.bump() != ')' {
			return 0, false, false, p.err("expected ')'")
		}
		return v, u, pl, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumberOrSpecial()
	case isIdentStart(c):
		return p.parseIdentOrSpecial()
	default:
		return 0, false, false, p.err("expected number, constant, function, or '('")
	}
}

func (p *angleParser) startsCI(kw string) bool {
	if p.i+len(kw) > len(p.s) {
		return false
	}
	return strings.EqualFold(p.s[p.i:p.i+len(kw)], kw)
}

func (p *angleParser) parseNumberOrSpecial() (float64, bool, bool, error) {
	if p.startsCI(".inf") {
		p.i += 4
		return math.Inf(1), false, true, nil
	}
	if p.startsCI(".nan") {
		p.i += 4
		return math.NaN(), false, true, nil
	}

	if res, ok, err := p.trySexagesimal(); err != nil {
		return 0, false, false, err
	} else if ok {
		return res.v, res.usedUnit, res.sawPlain, nil
	}

	start := p.i
	digitsSeen := 0
	var buf strings.Builder

	readDigitsWithUnderscore := func() error {
		for !p.eof() {
			c := p.peek()
			if c >= '0' && c <= '9' {
				digitsSeen++
				buf.WriteByte(c)
				p.i++
			} else if c == '_' {
				next := p.peekAt(1)
				prevIsDigit := p.i > start && p.s[p.i-1] >= '0' && p.s[p.i-1] <= '9'
				if !prevIsDigit || !(next >= '0' && next <= '9') {
					return p.err("invalid underscore placement in number")
				}
				p.i++
			} else {
				break
			}
			if digitsSeen > maxNumDigits {
				return p.err("too many digits in numeric literal")
			}
		}
		return nil
	}

	if err := readDigitsWithUnderscore(); err != nil {
		return 0, false, false, err
	}

	if p.peek() == '.' {
		buf.WriteByte('.')
		p.i++
		if err := readDigitsWithUnderscore(); err != nil {
			return 0, false, false, err
		}
	}

	if p.peek() == 'e' || p.peek() == 'E' {
		buf.WriteByte(p.bump())
		if p.peek() == '+' || p.peek() == '-' {
			buf.WriteByte(p.bump())
		}
		expStart := p.i
		if err := readDigitsWithUnderscore(); err != nil {
			return 0, false, false, err
		}
		if p.i == expStart {
			return 0, false, false, p.err("malformed exponent")
		}
	}

	text := buf.String()
	if text == "" {
		return 0, false, false, p.err("expected number")
	}
	v, err := ParseFloat(text, 64, eventstream.TagNone, false)
	if err != nil {
		return 0, false, false, p.err("invalid float literal")
	}
	return v, false, true, nil
}

func (p *angleParser) parseIdentOrSpecial() (float64, bool, bool, error) {
	start := p.i
	for !p.eof() && isIdentCont(p.peek()) {
		p.i++
	}
	ident := p.s[start:p.i]

	switch {
	case strings.EqualFold(ident, "pi"):
		return math.Pi, false, true, nil
	case strings.EqualFold(ident, "tau"):
		return 2 * math.Pi, false, true, nil
	case strings.EqualFold(ident, "inf"):
		return math.Inf(1), false, true, nil
	case strings.EqualFold(ident, "nan"):
		return math.NaN(), false, true, nil
	case strings.EqualFold(ident, "deg"), strings.EqualFold(ident, "rad"):
		p.skipWS()
		if p.bump() != '(' {
			return 0, false, false, p.err("expected '(' after function name")
		}
		oldMode := p.sexagesimalIsTime
		p.sexagesimalIsTime = false
		if err := p.enter(); err != nil {
			return 0, false, false, err
		}
		v, _, _, err := p.expr()
		p.exit()
		p.sexagesimalIsTime = oldMode
		if err != nil {
			return 0, false, false, err
		}
		p.skipWS()
		if p.bump() != ')' {
			return 0, false, false, p.err("expected ')' after function argument")
		}
		if strings.EqualFold(ident, "deg") {
			return v * deg2rad, true, false, nil
		}
		return v, true, false, nil
	default:
		return 0, false, false, p.err("unknown identifier " + ident)
	}
}

type sexaResult struct {
	v                 float64
	usedUnit, sawPlain bool
}

// trySexagesimal attempts to parse a "hh:mm[:ss[.frac]]" literal starting
// at the current position; ok is false (with the parser position
// unchanged) if the input doesn't start with a digit run followed by ':'.
func (p *angleParser) trySexagesimal() (sexaResult, bool, error) {
	save := p.i
	j := p.i
	sawDigit := false
	lastUnderscore := false
	for j < len(p.s) {
		c := p.s[j]
		if c >= '0' && c <= '9' {
			sawDigit = true
			lastUnderscore = false
			j++
		} else if c == '_' {
			if !sawDigit || lastUnderscore {
				break
			}
			lastUnderscore = true
			j++
		} else {
			break
		}
	}
	if !sawDigit || lastUnderscore || j >= len(p.s) || p.s[j] != ':' {
		return sexaResult{}, false, nil
	}

	degWhole, err := p.readUintUnderscoresToFloat()
	if err != nil {
		return sexaResult{}, false, err
	}
	if p.bump() != ':' {
		p.i = save
		return sexaResult{}, false, nil
	}

	minsU, err := p.readUintUnderscoresToUint()
	if err != nil {
		return sexaResult{}, false, err
	}
	if minsU > 59 {
		return sexaResult{}, false, p.err("minutes out of range in sexagesimal literal")
	}

	var secs float64
	if p.peek() == ':' {
		p.bump()
		secsU, err := p.readUintUnderscoresToUint()
		if err != nil {
			return sexaResult{}, false, err
		}
		if secsU > 59 {
			return sexaResult{}, false, p.err("seconds out of range in sexagesimal literal")
		}
		secs = float64(secsU)
		if p.peek() == '.' {
			p.bump()
			frac, err := p.readFracPart()
			if err != nil {
				return sexaResult{}, false, err
			}
			secs += frac
		}
	}

	switch {
	case p.sexagesimalIsTime && (p.tag == eventstream.TagDegrees || p.tag == eventstream.TagRadians):
		degrees := degWhole + minsU/60.0 + secs/3600.0
		return sexaResult{v: degrees * deg2rad, usedUnit: true}, true, nil
	case p.sexagesimalIsTime:
		totalSeconds := degWhole*3600.0 + minsU*60.0 + secs
		return sexaResult{v: totalSeconds, usedUnit: true}, true, nil
	case p.tag == eventstream.TagTimestamp:
		totalSeconds := degWhole*3600.0 + minsU*60.0 + secs
		return sexaResult{v: totalSeconds, usedUnit: true}, true, nil
	default:
		degrees := degWhole + minsU/60.0 + secs/3600.0
		return sexaResult{v: degrees, usedUnit: true}, true, nil
	}
}

func (p *angleParser) readUintUnderscoresToFloat() (float64, error) {
	var v float64
	start := p.i
	for !p.eof() {
		c := p.peek()
		if c >= '0' && c <= '9' {
			v = v*10 + float64(c-'0')
			p.i++
		} else if c == '_' {
			next := p.peekAt(1)
			prevIsDigit := p.i > start && p.s[p.i-1] >= '0' && p.s[p.i-1] <= '9'
			if !prevIsDigit || !(next >= '0' && next <= '9') {
				return 0, p.err("invalid underscore placement")
			}
			p.i++
		} else {
			break
		}
	}
	return v, nil
}

func (p *angleParser) readUintUnderscoresToUint() (float64, error) {
	return p.readUintUnderscoresToFloat()
}

func (p *angleParser) readFracPart() (float64, error) {
	start := p.i
	digits := 0
	var buf strings.Builder
	for !p.eof() {
		c := p.peek()
		if c >= '0' && c <= '9' {
			digits++
			buf.WriteByte(c)
			p.i++
		} else if c == '_' {
			next := p.peekAt(1)
			prevIsDigit := p.i > start && p.s[p.i-1] >= '0' && p.s[p.i-1] <= '9'
			if !prevIsDigit || !(next >= '0' && next <= '9') {
				return 0, p.err("invalid underscore placement in fraction")
			}
			p.i++
		} else {
			break
		}
	}
	if digits == 0 {
		return 0, nil
	}
	v, err := ParseFloat("0."+buf.String(), 64, eventstream.TagNone, false)
	if err != nil {
		return 0, p.err("invalid fractional seconds")
	}
	return v, nil
}
