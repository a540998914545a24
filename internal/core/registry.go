package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]*Schema)
	registryMu sync.RWMutex
)

// RegisterSchema adds a compiled schema to the registry.
// Panics if a schema with the same key is already registered.
func RegisterSchema(s *Schema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.info.Key]; exists {
		panic(fmt.Sprintf("schema already registered: %s", s.info.Key))
	}
	registry[s.info.Key] = s
}

// ReplaceSchema registers a schema, replacing any schema with the same key.
// Rule files loaded at startup use this to override compiled-in schemas.
func ReplaceSchema(s *Schema) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.info.Key] = s
}

// LookupSchema returns a schema by key.
// Returns false if not found.
func LookupSchema(key string) (*Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[key]
	return s, ok
}

// SchemaForKey returns the schema whose Prefix is the longest prefix of an
// object key. Returns false if no prefix matches.
func SchemaForKey(objectKey string) (*Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var best *Schema
	for _, s := range registry {
		p := s.info.Prefix
		if p == "" || !strings.HasPrefix(objectKey, p) {
			continue
		}
		if best == nil || len(p) > len(best.info.Prefix) ||
			(len(p) == len(best.info.Prefix) && s.info.Key < best.info.Key) {
			best = s
		}
	}
	return best, best != nil
}

// Schemas returns all registered schemas sorted by key.
func Schemas() []*Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]*Schema, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].info.Key < result[j].info.Key
	})
	return result
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// ClearSchemas removes all registered schemas.
// Primarily useful for testing.
func ClearSchemas() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Schema)
}
