// Package namepattern expands name patterns used for bulk object creation.
//
// A pattern is literal text mixed with generators in square brackets:
//
//	[sequence(1,48)]     numbers from 1 to 48, descending if a > b
//	[sequence(a,f)]      single letters from a to f
//	[list(fe,ge,te)]     the given constants
//	[mirror(1,4)]        1-front, 1-back, 2-front, ... (paired ports)
//
// Several generators expand as a cartesian product, leftmost outermost:
// "slot[sequence(1,2)]-port[sequence(1,3)]" yields slot1-port1 ... slot2-port3.
// Names are distinct; a name produced twice is kept at its first position.
package namepattern

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

const (
	FrontSuffix = "-front"
	BackSuffix  = "-back"
	// MaxNames bounds the number of names a pattern may expand to.
	MaxNames = 100000
)

var generator = regexp.MustCompile(`\[(sequence|list|mirror)\(([^()\[\]]*)\)\]`)

// Pattern is a parsed name pattern.
type Pattern struct {
	source string
	parts  [][]string
	mirror bool
	names  []string
}

// Parse parses a name pattern.
func Parse(pattern string) (*Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errs.InvalidArgumentf("the name pattern must not be empty")
	}
	p := &Pattern{source: pattern}
	count := 1
	last := 0
	for _, m := range generator.FindAllStringSubmatchIndex(pattern, -1) {
		if m[0] > last {
			if err := p.literal(pattern[last:m[0]]); err != nil {
				return nil, err
			}
		}
		values, err := p.expand(pattern[m[2]:m[3]], pattern[m[4]:m[5]])
		if err != nil {
			return nil, err
		}
		p.parts = append(p.parts, values)
		count *= len(values)
		if count > MaxNames {
			return nil, errs.InvalidArgumentf("the name pattern %q expands to more than %d names", pattern, MaxNames)
		}
		last = m[1]
	}
	if last < len(pattern) {
		if err := p.literal(pattern[last:]); err != nil {
			return nil, err
		}
	}
	p.names = p.expandAll()
	return p, nil
}

func (p *Pattern) literal(text string) error {
	if strings.ContainsAny(text, "[]") {
		return errs.InvalidArgumentf("malformed generator in name pattern %q", p.source)
	}
	p.parts = append(p.parts, []string{text})
	return nil
}

func (p *Pattern) expand(fn, args string) ([]string, error) {
	var list []string
	for _, a := range strings.Split(args, ",") {
		list = append(list, strings.TrimSpace(a))
	}
	switch fn {
	case "list":
		seen := map[string]bool{}
		for _, v := range list {
			if v == "" {
				return nil, errs.InvalidArgumentf("empty value in list(%s)", args)
			}
			if seen[v] {
				return nil, errs.InvalidArgumentf("duplicate value %s in list(%s)", v, args)
			}
			seen[v] = true
		}
		return list, nil
	case "sequence":
		return sequence(list)
	default:
		if p.mirror {
			return nil, errs.InvalidArgumentf("a name pattern may contain only one mirror generator")
		}
		seq, err := sequence(list)
		if err != nil {
			return nil, err
		}
		p.mirror = true
		result := make([]string, 0, 2*len(seq))
		for _, v := range seq {
			result = append(result, v+FrontSuffix, v+BackSuffix)
		}
		return result, nil
	}
}

func sequence(args []string) ([]string, error) {
	if len(args) != 2 {
		return nil, errs.InvalidArgumentf("a sequence needs exactly two bounds")
	}
	// bounds are limited to 32 bits, so their distance can not overflow
	from, ferr := strconv.ParseInt(args[0], 10, 32)
	to, terr := strconv.ParseInt(args[1], 10, 32)
	letters := false
	if ferr != nil || terr != nil {
		if len(args[0]) != 1 || len(args[1]) != 1 || !isLetter(args[0][0]) || !isLetter(args[1][0]) {
			return nil, errs.InvalidArgumentf("invalid sequence bounds %s,%s", args[0], args[1])
		}
		from, to, letters = int64(args[0][0]), int64(args[1][0]), true
	}
	step := int64(1)
	if from > to {
		step = -1
	}
	n := (to-from)*step + 1
	if n > MaxNames {
		return nil, errs.InvalidArgumentf("sequence %s,%s is too long", args[0], args[1])
	}
	result := make([]string, 0, n)
	for v := from; ; v += step {
		if letters {
			result = append(result, string(rune(v)))
		} else {
			result = append(result, strconv.FormatInt(v, 10))
		}
		if v == to {
			break
		}
	}
	return result, nil
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// String returns the source of the pattern.
func (p *Pattern) String() string { return p.source }

// Count returns the number of distinct names the pattern expands to.
func (p *Pattern) Count() int { return len(p.names) }

// IsMirror reports whether the pattern contains a mirror generator.
func (p *Pattern) IsMirror() bool { return p.mirror }

// Names returns all distinct names in generation order.
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

func (p *Pattern) expandAll() []string {
	result := []string{""}
	for _, part := range p.parts {
		next := make([]string, 0, len(result)*len(part))
		for _, prefix := range result {
			for _, v := range part {
				next = append(next, prefix+v)
			}
		}
		result = next
	}
	seen := make(map[string]bool, len(result))
	names := result[:0]
	for _, n := range result {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}

// Generate returns the first n names. It fails with InvalidArgument if the
// pattern yields fewer names.
func (p *Pattern) Generate(n int) ([]string, error) {
	if n <= 0 {
		return nil, errs.InvalidArgumentf("the number of objects must be positive")
	}
	if len(p.names) < n {
		return nil, errs.InvalidArgumentf("the pattern %q yields %d names, but %d objects are requested", p.source, len(p.names), n)
	}
	return append([]string(nil), p.names[:n]...), nil
}

// Generate parses pattern and returns its first n names.
func Generate(pattern string, n int) ([]string, *Pattern, error) {
	p, err := Parse(pattern)
	if err != nil {
		return nil, nil, err
	}
	names, err := p.Generate(n)
	if err != nil {
		return nil, nil, err
	}
	return names, p, nil
}

// MirrorPairs returns the index pairs (front, back) of names sharing the same
// base name.
func MirrorPairs(names []string) [][2]int {
	back := map[string]int{}
	for i, n := range names {
		if strings.HasSuffix(n, BackSuffix) {
			back[strings.TrimSuffix(n, BackSuffix)] = i
		}
	}
	var pairs [][2]int
	for i, n := range names {
		if !strings.HasSuffix(n, FrontSuffix) {
			continue
		}
		if j, ok := back[strings.TrimSuffix(n, FrontSuffix)]; ok {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}
