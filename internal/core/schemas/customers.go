package schemas

import "github.com/JonMunkholm/csvload/internal/core"

// Customers is a CRM account export.
func Customers() *core.Schema {
	return core.MustCompileSchema(
		core.SchemaInfo{
			Key:    "customers",
			Label:  "Customers",
			Table:  "customers",
			Prefix: "incoming/customers/",
		},
		[]core.FieldSpec{
			{Name: "Customer ID", Type: core.FieldText, Required: true, Pattern: `[A-Za-z0-9]{6,18}`},
			{Name: "Customer name", Type: core.FieldText, Required: true, Transforms: []string{"collapse_spaces"}},
			{Name: "Type", Type: core.FieldEnum, AllowedValues: []string{"Prospect", "Customer", "Partner", "Churned"}, Default: "Prospect"},
			{Name: "Email", Type: core.FieldText, Pattern: "email", Transforms: []string{"lower"}},
			{Name: "Phone", Type: core.FieldText},
			{Name: "State", Type: core.FieldText, Transforms: []string{"us_state"}},
			{Name: "Credit limit", Type: core.FieldDecimal},
			{Name: "Active", Type: core.FieldBool, Default: "yes"},
			{Name: "Created", Type: core.FieldDate, Required: true},
			{Name: "Last activity", Type: core.FieldDate},
		},
		[]core.CrossFieldRule{
			{Name: "contactable", Kind: core.CrossAnyOf, Fields: []string{"Email", "Phone"}},
			{Name: "activity_after_created", Kind: core.CrossNotBefore, Fields: []string{"Last activity", "Created"}},
		},
	)
}
