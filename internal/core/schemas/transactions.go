package schemas

import "github.com/JonMunkholm/csvload/internal/core"

// Transactions is a sales tax transaction export.
func Transactions() *core.Schema {
	return core.MustCompileSchema(
		core.SchemaInfo{
			Key:    "transactions",
			Label:  "Transactions",
			Table:  "transactions",
			Prefix: "incoming/transactions/",
		},
		[]core.FieldSpec{
			{Name: "Transaction ID", Type: core.FieldText, Required: true},
			{Name: "Customer ID", Type: core.FieldText, Required: true},
			{Name: "Invoice date", Type: core.FieldDate, Required: true},
			{Name: "Tax date", Type: core.FieldDate},
			{Name: "Transaction currency", Type: core.FieldText, Pattern: `[A-Za-z]{3}`, Transforms: []string{"upper"}, Default: "USD"},
			{Name: "Sales amount", Type: core.FieldDecimal, Required: true},
			{Name: "Tax amount", Type: core.FieldDecimal, Default: "0"},
			{Name: "Invoice amount", Type: core.FieldDecimal},
			{Name: "Void", Type: core.FieldBool, Default: "false"},
			{Name: "Customer address region", Type: core.FieldText, Transforms: []string{"us_state"}},
			{Name: "Customer country code", Type: core.FieldText, Pattern: `[A-Za-z]{2}`, Transforms: []string{"upper"}},
		},
		[]core.CrossFieldRule{
			{Name: "tax_date_after_invoice", Kind: core.CrossNotBefore, Fields: []string{"Tax date", "Invoice date"}},
			{Name: "invoice_amount_needs_sales", Kind: core.CrossRequires, Fields: []string{"Invoice amount", "Sales amount"}},
		},
	)
}
