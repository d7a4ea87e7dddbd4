// Copyright 2026 The OpenTrusty Authors
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

package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Parameters is an insertion-order-preserving string-to-string map. Request
// and directive parameter sets are small and order rarely matters
// semantically, but preserving the order they were written in keeps
// FormatIdentifier/FormatDirective round-trip stable, which the audit log
// and tests both rely on.
type Parameters struct {
	keys   []string
	values map[string]string
}

// NewParameters builds a Parameters set from an ordered list of key/value
// pairs.
func NewParameters(pairs ...[2]string) Parameters {
	p := Parameters{values: make(map[string]string, len(pairs))}
	for _, kv := range pairs {
		p.Set(kv[0], kv[1])
	}
	return p
}

// Set adds or overwrites a key, preserving its original position on
// overwrite.
func (p *Parameters) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key and whether it was present.
func (p Parameters) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Len reports how many keys are set.
func (p Parameters) Len() int {
	return len(p.keys)
}

// Keys returns the keys in insertion order. The caller must not mutate it.
func (p Parameters) Keys() []string {
	return p.keys
}

// Range calls fn for each key/value pair in insertion order.
func (p Parameters) Range(fn func(key, value string)) {
	for _, k := range p.keys {
		fn(k, p.values[k])
	}
}

// Clone returns an independent copy.
func (p Parameters) Clone() Parameters {
	out := Parameters{
		keys:   append([]string{}, p.keys...),
		values: make(map[string]string, len(p.values)),
	}
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

// ParsedIdentifier is the result of parsing an identifier string:
// `path(;key=value)*`.
type ParsedIdentifier struct {
	Path       string
	Segments   []string
	Parameters Parameters
}

// ParseIdentifier parses raw against the identifier grammar without
// consulting a catalog: `path;k=v;k=v`. It rejects the extended bracket
// segment (`path:[k=v;...]`) described as an open question in the spec —
// that form is not implemented.
func ParseIdentifier(raw string) (ParsedIdentifier, error) {
	if raw == "" {
		return ParsedIdentifier{}, fmt.Errorf("%w: empty identifier", ErrMalformedIdentifier)
	}
	if strings.Contains(raw, "[") || strings.Contains(raw, "]") {
		return ParsedIdentifier{}, fmt.Errorf("%w: bracketed parameter segments are not supported", ErrMalformedIdentifier)
	}

	parts := strings.Split(raw, ";")
	path := parts[0]
	if path == "" {
		return ParsedIdentifier{}, fmt.Errorf("%w: empty path", ErrMalformedIdentifier)
	}

	segments := splitPath(path)
	for _, seg := range segments {
		if seg == "" {
			return ParsedIdentifier{}, fmt.Errorf("%w: empty path segment in %q", ErrMalformedIdentifier, raw)
		}
	}

	params := Parameters{}
	for _, kv := range parts[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return ParsedIdentifier{}, fmt.Errorf("%w: malformed parameter %q", ErrMalformedIdentifier, kv)
		}
		if _, exists := params.Get(key); exists {
			return ParsedIdentifier{}, fmt.Errorf("%w: %q in %q", ErrDuplicateParameter, key, raw)
		}
		params.Set(key, value)
	}

	return ParsedIdentifier{Path: path, Segments: segments, Parameters: params}, nil
}

// TryParseIdentifier is ParseIdentifier but reports ok=false instead of an
// error, for call sites that only want to know whether raw is well-formed.
func TryParseIdentifier(raw string) (ParsedIdentifier, bool) {
	id, err := ParseIdentifier(raw)
	return id, err == nil
}

// FormatIdentifier renders id to its wire form, in insertion order. Callers
// that need the canonicalized form for comparison or display should call
// CanonicalIdentifier instead.
func FormatIdentifier(id ParsedIdentifier) string {
	var b strings.Builder
	b.WriteString(id.Path)
	id.Parameters.Range(func(k, v string) {
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	})
	return b.String()
}

// CanonicalIdentifier renders id with its parameters sorted by key — the
// "identifier" rendering of §3.2 (as opposed to "canonical", which is the
// path alone). Two identifiers parsed from differently-ordered parameter
// lists produce the same CanonicalIdentifier.
func CanonicalIdentifier(id ParsedIdentifier) string {
	keys := append([]string{}, id.Parameters.Keys()...)
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(id.Path)
	for _, k := range keys {
		v, _ := id.Parameters.Get(k)
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// Resolve looks the identifier's path up in cat and validates that every
// parameter key is reachable from the resolved node. It returns
// ErrUnknownPath if the path has no catalog entry, or an
// *InvalidParameterError for the first parameter that is not reachable.
//
// A root-level "_read"/"_write" path is a special case (§4.2): it is never
// registered in any Catalog, and it accepts any parameters whatsoever, since
// it is an unrestricted global wildcard rather than a node scoped to a
// declared parameter hierarchy.
func (id ParsedIdentifier) Resolve(cat *Catalog) (*Node, error) {
	if n, ok := rootWildcardNode(id.Path); ok {
		return n, nil
	}
	n, ok := cat.Lookup(id.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPath, id.Path)
	}
	for _, key := range id.Parameters.Keys() {
		if !n.HasReachableParameter(key) {
			return nil, &InvalidParameterError{Name: key}
		}
	}
	return n, nil
}
