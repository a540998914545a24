package core

import (
	"testing"
)

func testSchema(t *testing.T, key, prefix string) *Schema {
	t.Helper()
	s, err := CompileSchema(SchemaInfo{Key: key, Prefix: prefix}, []FieldSpec{{Name: "id"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRegistry(t *testing.T) {
	saved := Schemas()
	t.Cleanup(func() {
		ClearSchemas()
		for _, s := range saved {
			RegisterSchema(s)
		}
	})
	ClearSchemas()

	RegisterSchema(testSchema(t, "orders", "incoming/orders/"))
	RegisterSchema(testSchema(t, "eu_orders", "incoming/orders/eu/"))
	RegisterSchema(testSchema(t, "misc", ""))

	if got := SchemaCount(); got != 3 {
		t.Fatalf("SchemaCount = %d, want 3", got)
	}

	if _, ok := LookupSchema("orders"); !ok {
		t.Error("LookupSchema(orders) not found")
	}
	if _, ok := LookupSchema("missing"); ok {
		t.Error("LookupSchema(missing) should not be found")
	}

	tests := []struct {
		key     string
		want    string
		wantHit bool
	}{
		{"incoming/orders/2024-01.csv", "orders", true},
		{"incoming/orders/eu/2024-01.csv", "eu_orders", true},
		{"incoming/other/file.csv", "", false},
		{"orders.csv", "", false},
	}
	for _, tt := range tests {
		s, ok := SchemaForKey(tt.key)
		if ok != tt.wantHit {
			t.Errorf("SchemaForKey(%q) hit = %v, want %v", tt.key, ok, tt.wantHit)
			continue
		}
		if ok && s.Info().Key != tt.want {
			t.Errorf("SchemaForKey(%q) = %s, want %s", tt.key, s.Info().Key, tt.want)
		}
	}

	all := Schemas()
	if all[0].Info().Key != "eu_orders" || all[2].Info().Key != "orders" {
		t.Errorf("Schemas not sorted: %s, %s, %s", all[0].Info().Key, all[1].Info().Key, all[2].Info().Key)
	}

	replacement := testSchema(t, "orders", "incoming/orders-v2/")
	ReplaceSchema(replacement)
	if s, _ := LookupSchema("orders"); s != replacement {
		t.Error("ReplaceSchema did not replace")
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate RegisterSchema should panic")
		}
	}()
	RegisterSchema(testSchema(t, "misc", ""))
}

func TestTransforms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"upper", "abc", "ABC"},
		{"lower", "AbC", "abc"},
		{"title", "mARY  ann", "Mary  Ann"},
		{"collapse_spaces", " a \t b  c ", "a b c"},
	}

	for _, tt := range tests {
		fn, ok := lookupTransform(tt.name)
		if !ok {
			t.Errorf("transform %q not registered", tt.name)
			continue
		}
		if got := fn(tt.input); got != tt.want {
			t.Errorf("%s(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
		}
	}

	if _, ok := lookupTransform("test_identity"); !ok {
		RegisterTransform("test_identity", func(s string) string { return s })
	}
	defer func() {
		if recover() == nil {
			t.Error("duplicate RegisterTransform should panic")
		}
	}()
	RegisterTransform("test_identity", func(s string) string { return s })
}
