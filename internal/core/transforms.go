package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Transform rewrites a cleaned text value during normalization.
type Transform func(string) string

var (
	transforms = map[string]Transform{
		"upper":           strings.ToUpper,
		"lower":           strings.ToLower,
		"title":           titleCase,
		"collapse_spaces": func(s string) string { return strings.Join(strings.Fields(s), " ") },
	}
	transformsMu sync.RWMutex
)

func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// RegisterTransform adds a named text transform.
// Panics if a transform with the same name is already registered.
func RegisterTransform(name string, fn Transform) {
	transformsMu.Lock()
	defer transformsMu.Unlock()

	if _, exists := transforms[name]; exists {
		panic(fmt.Sprintf("transform already registered: %s", name))
	}
	transforms[name] = fn
}

// Transforms returns the registered transform names, sorted.
func Transforms() []string {
	transformsMu.RLock()
	defer transformsMu.RUnlock()

	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupTransform(name string) (Transform, bool) {
	transformsMu.RLock()
	defer transformsMu.RUnlock()
	fn, ok := transforms[name]
	return fn, ok
}
