// Package schemas registers the compiled-in schemas with the core registry.
// Import it for side effects; rule files can override any of them by key.
package schemas

import "github.com/JonMunkholm/csvload/internal/core"

// The transforms must exist before any schema referencing them compiles.
func init() {
	core.RegisterTransform("us_state", NormalizeUsState)

	core.RegisterSchema(Contacts())
	core.RegisterSchema(Customers())
	core.RegisterSchema(Transactions())
}
