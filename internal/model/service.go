package model

import (
	"sort"
	"strconv"
	"strings"
)

// Service identifies an abstract service. A service with Args is generic; an
// argument marked as a parameter is unbound, which makes the service open.
type Service struct {
	Name  string
	Args  []Service
	param bool
}

func NewService(name string, args ...Service) Service {
	return Service{Name: name, Args: args}
}

func Param(name string) Service {
	return Service{Name: name, param: true}
}

func (s Service) IsZero() bool {
	return s.Name == "" && len(s.Args) == 0
}

func (s Service) IsGeneric() bool {
	return len(s.Args) > 0
}

// IsOpen reports whether s contains an unbound parameter anywhere.
func (s Service) IsOpen() bool {
	if s.param {
		return true
	}
	for _, a := range s.Args {
		if a.IsOpen() {
			return true
		}
	}
	return false
}

// Definition is the key shared by every closure of a generic service:
// its name and arity.
func (s Service) Definition() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('`')
	b.WriteString(strconv.Itoa(len(s.Args)))
	return b.String()
}

// Key is the canonical map key of s. Parameters are prefixed with '?' so that
// they never collide with a service of the same name.
func (s Service) Key() string {
	var b strings.Builder
	s.write(&b, true)
	return b.String()
}

func (s Service) String() string {
	var b strings.Builder
	s.write(&b, false)
	return b.String()
}

func (s Service) write(b *strings.Builder, key bool) {
	if s.param && key {
		b.WriteByte('?')
	}
	b.WriteString(s.Name)
	if len(s.Args) == 0 {
		return
	}
	b.WriteByte('[')
	for i, a := range s.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		a.write(b, key)
	}
	b.WriteByte(']')
}

func (s Service) Equal(other Service) bool {
	return s.Key() == other.Key()
}

// Params returns the distinct parameter names of s in first-seen order.
func (s Service) Params() []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Service)
	walk = func(v Service) {
		if v.param {
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
			return
		}
		for _, a := range v.Args {
			walk(a)
		}
	}
	walk(s)
	return out
}

// Bindings maps generic parameter names to the closed services bound to them.
type Bindings map[string]Service

// Key renders the bindings deterministically; equal bindings share a key.
func (b Bindings) Key() string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, n := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(b[n].Key())
	}
	return sb.String()
}

func (b Bindings) clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Match unifies the pattern s with the closed service target. Parameters of s
// are bound to the corresponding parts of target; a parameter used twice must
// bind to the same service both times. The returned bindings extend bound.
func (s Service) Match(target Service, bound Bindings) (Bindings, bool) {
	out := bound.clone()
	if !s.match(target, out) {
		return nil, false
	}
	return out, true
}

func (s Service) match(target Service, b Bindings) bool {
	if s.param {
		if target.IsOpen() {
			return false
		}
		if prev, ok := b[s.Name]; ok {
			return prev.Equal(target)
		}
		b[s.Name] = target
		return true
	}
	if s.Name != target.Name || len(s.Args) != len(target.Args) || target.param {
		return false
	}
	for i := range s.Args {
		if !s.Args[i].match(target.Args[i], b) {
			return false
		}
	}
	return true
}

// Substitute closes s with b. Parameters without a binding stay open.
func (s Service) Substitute(b Bindings) Service {
	if s.param {
		if v, ok := b[s.Name]; ok {
			return v
		}
		return s
	}
	if len(s.Args) == 0 {
		return s
	}
	args := make([]Service, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.Substitute(b)
	}
	return Service{Name: s.Name, Args: args}
}
