// Package glob implements shell-style wildcard patterns for table name
// matching. Patterns anchor to the whole name and support `*` (any run of
// characters, including none), `?` (exactly one character), `[seq]`
// (character class with ranges) and `[!seq]` (negated class). The dialect
// follows fnmatch rules: an unclosed `[` matches a literal bracket, a `]`
// in the first class position is a member, and matching is case-sensitive.
package glob

type opKind int

const (
	opLiteral opKind = iota
	opAny
	opOne
	opClass
)

type charRange struct {
	lo, hi rune
}

type charClass struct {
	negated bool
	ranges  []charRange
}

func (c *charClass) matches(r rune) bool {
	found := false
	for _, cr := range c.ranges {
		if cr.lo <= r && r <= cr.hi {
			found = true
			break
		}
	}
	if c.negated {
		return !found
	}
	return found
}

type op struct {
	kind  opKind
	lit   string
	class *charClass
}

// Pattern is a compiled glob pattern
type Pattern struct {
	source string
	ops    []op
}

// Compile compiles a glob pattern. Compilation never fails: malformed
// class syntax degrades to literal characters, matching fnmatch.
func Compile(pattern string) *Pattern {
	runes := []rune(pattern)
	var ops []op
	var lit []rune

	flush := func() {
		if len(lit) > 0 {
			ops = append(ops, op{kind: opLiteral, lit: string(lit)})
			lit = nil
		}
	}

	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			flush()
			// consecutive stars collapse to one
			if len(ops) == 0 || ops[len(ops)-1].kind != opAny {
				ops = append(ops, op{kind: opAny})
			}
		case '?':
			flush()
			ops = append(ops, op{kind: opOne})
		case '[':
			cls, end, ok := parseClass(runes, i)
			if !ok {
				lit = append(lit, r)
				continue
			}
			flush()
			ops = append(ops, op{kind: opClass, class: cls})
			i = end
		default:
			lit = append(lit, r)
		}
	}
	flush()

	return &Pattern{source: pattern, ops: ops}
}

// parseClass parses a character class starting at the `[` in runes[start].
// Returns the class, the index of the closing `]`, and whether the class
// was well formed.
func parseClass(runes []rune, start int) (*charClass, int, bool) {
	i := start + 1
	cls := &charClass{}

	if i < len(runes) && runes[i] == '!' {
		cls.negated = true
		i++
	}

	first := true
	for ; i < len(runes); i++ {
		r := runes[i]
		if r == ']' && !first {
			return cls, i, true
		}
		first = false

		// a-z range, unless the dash closes the class
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] != ']' {
			cls.ranges = append(cls.ranges, charRange{lo: r, hi: runes[i+2]})
			i += 2
			continue
		}
		cls.ranges = append(cls.ranges, charRange{lo: r, hi: r})
	}

	return nil, 0, false
}

// String returns the original pattern source
func (p *Pattern) String() string {
	return p.source
}

// Match reports whether the pattern matches the entire name
func (p *Pattern) Match(name string) bool {
	return matchOps(p.ops, []rune(name))
}

// matchOps runs the compiled ops against the name with single-point
// backtracking on the most recent `*`.
func matchOps(ops []op, name []rune) bool {
	var (
		opIdx, nameIdx int
		starOp         = -1
		starName       int
	)

	for nameIdx < len(name) || opIdx < len(ops) {
		if opIdx < len(ops) {
			switch o := ops[opIdx]; o.kind {
			case opAny:
				starOp = opIdx
				starName = nameIdx
				opIdx++
				continue
			case opOne:
				if nameIdx < len(name) {
					opIdx++
					nameIdx++
					continue
				}
			case opClass:
				if nameIdx < len(name) && o.class.matches(name[nameIdx]) {
					opIdx++
					nameIdx++
					continue
				}
			case opLiteral:
				lit := []rune(o.lit)
				if nameIdx+len(lit) <= len(name) && string(name[nameIdx:nameIdx+len(lit)]) == o.lit {
					opIdx++
					nameIdx += len(lit)
					continue
				}
			}
		}

		// mismatch: widen the last star by one character and retry
		if starOp >= 0 && starName < len(name) {
			starName++
			nameIdx = starName
			opIdx = starOp + 1
			continue
		}
		return false
	}

	return true
}

// Match is a convenience for one-shot matching
func Match(pattern, name string) bool {
	return Compile(pattern).Match(name)
}

// CompileAll compiles a list of patterns
func CompileAll(patterns []string) []*Pattern {
	compiled := make([]*Pattern, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, Compile(p))
	}
	return compiled
}

// MatchAny reports whether any of the compiled patterns matches the name
func MatchAny(patterns []*Pattern, name string) bool {
	for _, p := range patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}
