package metadata

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

/** @brief Preprocessor definitions by name. Valueless definitions map to "". */
type Macros map[string]string

func (m Macros) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Pairs returns the sorted key_value strings of the macros.
func (m Macros) Pairs() []string {
	pairs := make([]string, 0, len(m))
	for _, key := range m.SortedKeys() {
		pairs = append(pairs, key+"_"+m[key])
	}
	return pairs
}

func (m Macros) Clone() Macros {
	c := make(Macros, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (m Macros) Equal(other Macros) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
}

// preprocess evaluates the conditional directives of code. It returns the
// lines of the active regions, without the #define and #undef lines, and the
// definitions in effect at the end of the code.
func preprocess(code string, defines Macros) ([]string, Macros) {
	defs := defines.Clone()
	if defs == nil {
		defs = Macros{}
	}
	var frames []condFrame
	active := func() bool {
		return len(frames) == 0 || frames[len(frames)-1].active
	}

	var lines []string
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active() {
				lines = append(lines, line)
			}
			continue
		}

		directive, rest := splitDirective(trimmed[1:])
		switch directive {
		case "ifdef", "ifndef":
			_, defined := defs[firstIdentifier(rest)]
			cond := defined == (directive == "ifdef")
			frames = append(frames, condFrame{parentActive: active(), active: active() && cond, taken: cond})
		case "if":
			cond := evalCondition(rest, defs)
			frames = append(frames, condFrame{parentActive: active(), active: active() && cond, taken: cond})
		case "elif":
			if len(frames) == 0 {
				continue
			}
			top := &frames[len(frames)-1]
			if top.taken {
				top.active = false
			} else {
				cond := evalCondition(rest, defs)
				top.active = top.parentActive && cond
				top.taken = cond
			}
		case "else":
			if len(frames) == 0 {
				continue
			}
			top := &frames[len(frames)-1]
			top.active = top.parentActive && !top.taken
			top.taken = true
		case "endif":
			if len(frames) > 0 {
				frames = frames[:len(frames)-1]
			}
		case "define":
			if active() {
				if name, value, ok := parseDefine(rest); ok {
					defs[name] = value
				}
			}
		case "undef":
			if active() {
				delete(defs, firstIdentifier(rest))
			}
		default:
			if active() {
				lines = append(lines, line)
			}
		}
	}
	return lines, defs
}

func splitDirective(s string) (string, string) {
	s = stripLineComment(strings.TrimSpace(s))
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func stripLineComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}

func firstIdentifier(s string) string {
	end := 0
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			break
		}
		end = i + len(string(r))
	}
	return s[:end]
}

// parseDefine splits "NAME value" and rejects function-like macros.
func parseDefine(rest string) (string, string, bool) {
	name := firstIdentifier(rest)
	if name == "" {
		return "", "", false
	}
	tail := rest[len(name):]
	if strings.HasPrefix(tail, "(") {
		return "", "", false
	}
	return name, strings.TrimSpace(tail), true
}

// evalCondition evaluates the expression of an #if or #elif directive.
// Unknown identifiers evaluate to zero.
func evalCondition(expr string, defs Macros) bool {
	p := &exprParser{tokens: tokenize(expr), defs: defs}
	return p.parseOr() != 0
}

func tokenize(expr string) []string {
	var tokens []string
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isIdentRune(r, true) || unicode.IsDigit(r):
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j], false) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		default:
			if i+1 < len(runes) {
				two := string(runes[i : i+2])
				switch two {
				case "&&", "||", "==", "!=", ">=", "<=":
					tokens = append(tokens, two)
					i += 2
					continue
				}
			}
			tokens = append(tokens, string(r))
			i++
		}
	}
	return tokens
}

type exprParser struct {
	tokens []string
	pos    int
	defs   Macros
	depth  int
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() int64 {
	v := p.parseAnd()
	for p.peek() == "||" {
		p.next()
		rhs := p.parseAnd()
		v = boolInt(v != 0 || rhs != 0)
	}
	return v
}

func (p *exprParser) parseAnd() int64 {
	v := p.parseCompare()
	for p.peek() == "&&" {
		p.next()
		rhs := p.parseCompare()
		v = boolInt(v != 0 && rhs != 0)
	}
	return v
}

func (p *exprParser) parseCompare() int64 {
	v := p.parseUnary()
	for {
		switch op := p.peek(); op {
		case "==", "!=", "<", ">", "<=", ">=":
			p.next()
			rhs := p.parseUnary()
			switch op {
			case "==":
				v = boolInt(v == rhs)
			case "!=":
				v = boolInt(v != rhs)
			case "<":
				v = boolInt(v < rhs)
			case ">":
				v = boolInt(v > rhs)
			case "<=":
				v = boolInt(v <= rhs)
			case ">=":
				v = boolInt(v >= rhs)
			}
		default:
			return v
		}
	}
}

func (p *exprParser) parseUnary() int64 {
	switch p.peek() {
	case "!":
		p.next()
		return boolInt(p.parseUnary() == 0)
	case "-":
		p.next()
		return -p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() int64 {
	t := p.next()
	switch {
	case t == "(":
		v := p.parseOr()
		if p.peek() == ")" {
			p.next()
		}
		return v
	case t == "defined":
		name := p.next()
		paren := name == "("
		if paren {
			name = p.next()
		}
		if paren && p.peek() == ")" {
			p.next()
		}
		_, ok := p.defs[name]
		return boolInt(ok)
	case t != "" && unicode.IsDigit([]rune(t)[0]):
		return parseIntLiteral(t)
	case t != "":
		return p.identifierValue(t)
	}
	return 0
}

// identifierValue expands a macro used inside an expression.
func (p *exprParser) identifierValue(name string) int64 {
	value, ok := p.defs[name]
	if !ok || p.depth > 8 {
		return 0
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	sub := &exprParser{tokens: tokenize(value), defs: p.defs, depth: p.depth + 1}
	return sub.parseOr()
}

func parseIntLiteral(t string) int64 {
	t = strings.TrimRight(t, "uUlL")
	if v, err := strconv.ParseInt(t, 0, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return int64(f)
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
