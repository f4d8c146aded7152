package models

import (
	"fmt"
	"strings"
)

// Parameter namespaces. Payload extractions live under body.*, enrichment
// projections under extensions.*; the two sets are disjoint by construction
// and Put refuses to overwrite either way.
const (
	NamespaceBody       = "body."
	NamespaceExtensions = "extensions."
)

func BodyParam(name string) string      { return NamespaceBody + name }
func ExtensionParam(name string) string { return NamespaceExtensions + name }
func IsExtensionParam(key string) bool  { return strings.HasPrefix(key, NamespaceExtensions) }
func IsBodyParam(key string) bool       { return strings.HasPrefix(key, NamespaceBody) }

// ParameterSet is the flat key/value map handed to the dispatch stages.
type ParameterSet map[string]string

func NewParameterSet() ParameterSet {
	return make(ParameterSet)
}

// Put stores a parameter, refusing to overwrite an existing key. The guard
// is what keeps payload fields from ever clobbering enrichment fields.
func (p ParameterSet) Put(key, value string) error {
	if _, exists := p[key]; exists {
		return fmt.Errorf("parameter %q already bound", key)
	}
	p[key] = value
	return nil
}

func (p ParameterSet) Get(key string) string {
	return p[key]
}

// Clone returns a shallow copy so later stages can hold the set without
// aliasing the binder's map.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
