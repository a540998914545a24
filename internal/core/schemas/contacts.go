package schemas

import "github.com/JonMunkholm/csvload/internal/core"

// Contacts is the minimal person list.
func Contacts() *core.Schema {
	return core.MustCompileSchema(
		core.SchemaInfo{
			Key:    "contacts",
			Label:  "Contacts",
			Table:  "contacts",
			Prefix: "incoming/contacts/",
		},
		[]core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true, Transforms: []string{"collapse_spaces"}},
			{Name: "age", Type: core.FieldInteger},
			{Name: "email", Type: core.FieldText, Pattern: "email", Transforms: []string{"lower"}},
		},
		nil,
	)
}
