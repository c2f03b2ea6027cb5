// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// segmentClass matches one segment's worth of characters.
	segmentClass = `[^/?#.]+`

	// splatClass matches the remainder of a path, separators included.
	splatClass = `.*`
)

// Variable describes one variable token of a template.
type Variable struct {
	Name     string
	Optional bool
	Splat    bool

	// Prefix is the separator absorbed by an optional variable ('.' or '/').
	// Zero when nothing was absorbed.
	Prefix byte
}

// token is either a literal run or a variable reference.
type token struct {
	literal string
	varIdx  int // index into Pattern.vars, -1 for literals
}

// Pattern is a compiled route template.
type Pattern struct {
	template string
	tokens   []token
	vars     []Variable
	re       *regexp.Regexp
	root     bool
}

// Compile parses template and builds its matcher.
// It returns a [*CompileError] wrapping one of the package sentinels when
// the template is malformed.
func Compile(template string) (*Pattern, error) {
	p := &Pattern{template: template}

	if err := p.parse(); err != nil {
		return nil, err
	}

	p.root = isRoot(p.tokens)
	p.re = regexp.MustCompile(p.expression())

	return p, nil
}

// MustCompile is like [Compile] but panics on error.
// Use it for templates known at build time.
func MustCompile(template string) *Pattern {
	p, err := Compile(template)
	if err != nil {
		panic(err)
	}

	return p
}

func (p *Pattern) parse() error {
	seen := make(map[string]struct{})
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			p.tokens = append(p.tokens, token{literal: lit.String(), varIdx: -1})
			lit.Reset()
		}
	}

	t := p.template
	for i := 0; i < len(t); {
		c := t[i]

		switch c {
		case ':', '*':
			start := i
			i++
			if i >= len(t) || !isIdentStart(t[i]) {
				return &CompileError{Template: t, Offset: start, Err: ErrMalformedVariable}
			}
			j := i
			for j < len(t) && isIdentPart(t[j]) {
				j++
			}
			name := t[i:j]
			i = j

			if _, dup := seen[name]; dup {
				return &CompileError{Template: t, Offset: start, Err: fmt.Errorf("%w: %s", ErrDuplicateVariable, name)}
			}
			seen[name] = struct{}{}

			v := Variable{Name: name, Splat: c == '*'}
			if i < len(t) && t[i] == '?' {
				v.Optional = true
				i++

				// Swallow the separator right before the optional variable.
				if s := lit.String(); len(s) > 0 && (s[len(s)-1] == '.' || s[len(s)-1] == '/') {
					v.Prefix = s[len(s)-1]
					lit.Reset()
					lit.WriteString(s[:len(s)-1])
				}
			}

			flush()
			p.vars = append(p.vars, v)
			p.tokens = append(p.tokens, token{varIdx: len(p.vars) - 1})

		case '?':
			return &CompileError{Template: t, Offset: i, Err: ErrDanglingOptional}

		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	return nil
}

func (p *Pattern) expression() string {
	if p.root {
		return `^/?$`
	}

	var b strings.Builder
	b.WriteByte('^')

	for i, tok := range p.tokens {
		if tok.varIdx < 0 {
			lit := tok.literal
			if i == len(p.tokens)-1 {
				lit = strings.TrimRight(lit, "/")
			}
			b.WriteString(regexp.QuoteMeta(lit))
			continue
		}

		v := p.vars[tok.varIdx]
		class := segmentClass
		if v.Splat {
			class = splatClass
		}

		if !v.Optional {
			b.WriteString("(" + class + ")")
			continue
		}

		b.WriteString("(?:")
		if v.Prefix != 0 {
			b.WriteString(regexp.QuoteMeta(string(v.Prefix)))
		}
		b.WriteString("(" + class + "))?")
	}

	b.WriteString(`/?$`)

	return b.String()
}

// Match tests path against the pattern. Any query string or fragment is
// stripped first. On success it returns one capture per variable in
// declaration order; absent optional variables capture "".
func (p *Pattern) Match(path string) ([]string, bool) {
	path = stripQuery(path)

	idx := p.re.FindStringSubmatchIndex(path)
	if idx == nil {
		return nil, false
	}

	caps := make([]string, len(p.vars))
	for i := range p.vars {
		if s := idx[2*(i+1)]; s >= 0 {
			caps[i] = path[s:idx[2*(i+1)+1]]
		}
	}

	return caps, true
}

// Params is like [Pattern.Match] but returns the bindings keyed by variable
// name. Optional variables that did not participate are left out.
func (p *Pattern) Params(path string) (map[string]string, bool) {
	path = stripQuery(path)

	idx := p.re.FindStringSubmatchIndex(path)
	if idx == nil {
		return nil, false
	}

	params := make(map[string]string, len(p.vars))
	for i, v := range p.vars {
		if s := idx[2*(i+1)]; s >= 0 {
			params[v.Name] = path[s:idx[2*(i+1)+1]]
		}
	}

	return params, true
}

// Build renders the template with values. Optional variables without a
// value are dropped together with their absorbed separator. Values are
// written verbatim; callers escape them.
func (p *Pattern) Build(values map[string]string) (string, error) {
	if p.root {
		return "/", nil
	}

	var b strings.Builder
	for _, tok := range p.tokens {
		if tok.varIdx < 0 {
			b.WriteString(tok.literal)
			continue
		}

		v := p.vars[tok.varIdx]
		val, ok := values[v.Name]
		if !ok || val == "" {
			if v.Optional {
				continue
			}
			return "", fmt.Errorf("%w: %s", ErrMissingValue, v.Name)
		}

		if v.Prefix != 0 {
			b.WriteByte(v.Prefix)
		}
		b.WriteString(val)
	}

	return b.String(), nil
}

// Names returns the variable names in declaration order.
func (p *Pattern) Names() []string {
	names := make([]string, len(p.vars))
	for i, v := range p.vars {
		names[i] = v.Name
	}

	return names
}

// Variables returns a copy of the variable descriptors in declaration order.
func (p *Pattern) Variables() []Variable {
	out := make([]Variable, len(p.vars))
	copy(out, p.vars)

	return out
}

// Required reports how many variables must be supplied to build a path.
func (p *Pattern) Required() int {
	n := 0
	for _, v := range p.vars {
		if !v.Optional {
			n++
		}
	}

	return n
}

// HasVariable reports whether name is one of the template's variables.
func (p *Pattern) HasVariable(name string) bool {
	for _, v := range p.vars {
		if v.Name == name {
			return true
		}
	}

	return false
}

// IsRoot reports whether the template is the root path.
func (p *Pattern) IsRoot() bool { return p.root }

// String returns the source template.
func (p *Pattern) String() string { return p.template }

func isRoot(tokens []token) bool {
	switch len(tokens) {
	case 0:
		return true
	case 1:
		return tokens[0].varIdx < 0 && strings.Trim(tokens[0].literal, "/") == ""
	default:
		return false
	}
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}

	return path
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
