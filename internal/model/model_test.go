package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/keel/internal/lifestyle"
)

var (
	str    = NewService("string")
	num    = NewService("int")
	repoT  = NewService("Repo", Param("T"))
	mapKV  = NewService("Map", Param("K"), Param("V"))
	pairTT = NewService("Pair", Param("T"), Param("T"))
)

func TestService_Identity(t *testing.T) {
	t.Parallel()

	assert.True(t, repoT.IsGeneric())
	assert.True(t, repoT.IsOpen())
	assert.False(t, str.IsGeneric())
	assert.False(t, NewService("Repo", str).IsOpen())

	assert.Equal(t, "Repo`1", repoT.Definition())
	assert.Equal(t, "string", str.Definition())
	assert.Equal(t, "Repo[?T]", repoT.Key())
	assert.Equal(t, "Repo[T]", repoT.String())
	assert.NotEqual(t, NewService("Repo", NewService("T")).Key(), repoT.Key())

	assert.Equal(t, []string{"K", "V"}, mapKV.Params())
	assert.Equal(t, []string{"T"}, pairTT.Params())
	assert.True(t, Service{}.IsZero())
}

func TestService_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern Service
		target  Service
		ok      bool
		want    Bindings
	}{
		{"single param", repoT, NewService("Repo", str), true, Bindings{"T": str}},
		{"two params", mapKV, NewService("Map", str, num), true, Bindings{"K": str, "V": num}},
		{"repeated param agrees", pairTT, NewService("Pair", num, num), true, Bindings{"T": num}},
		{"repeated param disagrees", pairTT, NewService("Pair", num, str), false, nil},
		{"name mismatch", repoT, NewService("List", str), false, nil},
		{"arity mismatch", repoT, NewService("Repo", str, num), false, nil},
		{"open target", repoT, repoT, false, nil},
		{
			"nested",
			NewService("Repo", NewService("List", Param("T"))),
			NewService("Repo", NewService("List", str)),
			true,
			Bindings{"T": str},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				got, ok := tt.pattern.Match(tt.target, nil)
				assert.Equal(t, tt.ok, ok)
				if tt.ok {
					assert.Equal(t, tt.want.Key(), got.Key())
				}
			},
		)
	}
}

func TestService_SubstituteClosesPattern(t *testing.T) {
	t.Parallel()

	b := Bindings{"K": str, "V": num}
	closed := mapKV.Substitute(b)
	assert.Equal(t, "Map[string,int]", closed.Key())
	assert.False(t, closed.IsOpen())

	partial := mapKV.Substitute(Bindings{"K": str})
	assert.True(t, partial.IsOpen())
	assert.Equal(t, "Map[string,?V]", partial.Key())

	assert.Equal(t, "K=string,V=int", b.Key())
}

func factory(context.Context, *Activation) (any, error) {
	return struct{}{}, nil
}

func validDescriptor() *Descriptor {
	return &Descriptor{
		Name:     "repo",
		Services: []Service{repoT},
		Implementation: Implementation{
			Type: NewService("SQLRepo", Param("T")),
			Constructor: []Slot{
				{Key: "db", Service: NewService("DB")},
				{Key: "codec", Service: NewService("Codec", Param("T"))},
			},
			Properties: []Slot{{Key: "log", Service: NewService("Logger"), Optional: true}},
			Factory:    factory,
		},
		Lifestyle:  lifestyle.Spec{Kind: lifestyle.Transient},
		Parameters: map[string]any{"table": "users"},
	}
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validDescriptor().Validate())

	tests := []struct {
		name   string
		mutate func(d *Descriptor)
	}{
		{"missing name", func(d *Descriptor) { d.Name = "" }},
		{"no services", func(d *Descriptor) { d.Services = nil }},
		{"empty service", func(d *Descriptor) { d.Services = []Service{{}} }},
		{"bad lifestyle", func(d *Descriptor) { d.Lifestyle = lifestyle.Spec{Kind: lifestyle.Pooled} }},
		{"no factory", func(d *Descriptor) { d.Implementation.Factory = nil }},
		{"open impl closed service", func(d *Descriptor) { d.Services = []Service{NewService("Repo", str)} }},
		{"service misses param", func(d *Descriptor) { d.Services = []Service{NewService("Repo", Param("U"))} }},
		{"closed impl open service", func(d *Descriptor) {
			d.Implementation.Type = NewService("SQLRepo")
			d.Implementation.Constructor = nil
		}},
		{"duplicate slot", func(d *Descriptor) { d.Implementation.Properties[0].Key = "db" }},
		{"empty slot key", func(d *Descriptor) { d.Implementation.Constructor[0].Key = "" }},
		{"slot without target", func(d *Descriptor) { d.Implementation.Constructor[0].Service = Service{} }},
		{"unknown slot param", func(d *Descriptor) {
			d.Implementation.Constructor[1].Service = NewService("Codec", Param("X"))
		}},
		{"external generic", func(d *Descriptor) { d.Lifestyle = lifestyle.Spec{Kind: lifestyle.External} }},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				d := validDescriptor()
				tt.mutate(d)
				assert.Error(t, d.Validate())
			},
		)
	}
}

func TestDescriptor_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	d := validDescriptor()
	c := d.Clone()
	c.Services[0] = str
	c.Parameters["table"] = "orders"
	c.Implementation.Constructor[0].Key = "other"

	assert.Equal(t, repoT.Key(), d.Services[0].Key())
	assert.Equal(t, "users", d.Parameters["table"])
	assert.Equal(t, "db", d.Implementation.Constructor[0].Key)
}

func TestDescriptor_Close(t *testing.T) {
	t.Parallel()

	d := validDescriptor()
	require.True(t, d.IsGeneric())

	closed := d.Close(Bindings{"T": str})
	assert.Equal(t, "repo[T=string]", closed.Name)
	assert.False(t, closed.IsGeneric())
	assert.True(t, closed.Exposes(NewService("Repo", str)))
	assert.Equal(t, "Codec[string]", closed.Implementation.Constructor[1].Service.Key())
	assert.Equal(t, "SQLRepo[string]", closed.Implementation.Type.Key())
	assert.Equal(t, d.Lifestyle, closed.Lifestyle)
	assert.Equal(t, "users", closed.Parameters["table"])

	assert.True(t, d.IsGeneric(), "closing leaves the open descriptor untouched")
}

func TestActivation_Arg(t *testing.T) {
	t.Parallel()

	a := &Activation{Descriptor: validDescriptor(), Args: []any{"db-conn", "codec"}}
	v, ok := a.Arg("codec")
	assert.True(t, ok)
	assert.Equal(t, "codec", v)

	_, ok = a.Arg("log")
	assert.False(t, ok, "properties are not constructor args")
}
