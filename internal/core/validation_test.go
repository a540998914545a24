package core

import (
	"slices"
	"strings"
	"testing"
)

func contactsSchema(t testing.TB) *Schema {
	t.Helper()
	s, err := CompileSchema(
		SchemaInfo{Key: "contacts"},
		[]FieldSpec{
			{Name: "name", Required: true},
			{Name: "age", Type: FieldInteger},
			{Name: "email", Pattern: "email"},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	return s
}

// record builds a RawRecord from a header line and one data line.
func record(t testing.TB, header, row string) RawRecord {
	t.Helper()
	_, seq, err := Parser{}.Parse(header + "\n" + row + "\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for r, err := range seq {
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		return r
	}
	t.Fatalf("no record parsed from %q", row)
	return RawRecord{}
}

func TestValidate_Scenarios(t *testing.T) {
	s := contactsSchema(t)
	const header = "name,age,email"

	tests := []struct {
		name string
		row  string
		want ValidationResult
	}{
		{
			name: "all fields valid",
			row:  "Alice,30,alice@example.com",
			want: nil,
		},
		{
			name: "missing name and non-numeric age",
			row:  ",thirty,bob@example.com",
			want: ValidationResult{
				"field 'name' is required but missing",
				"field 'age' does not match numeric pattern",
			},
		},
		{
			name: "short row padded then validated",
			row:  "Carol",
			want: nil,
		},
		{
			name: "whitespace counts as missing",
			row:  "   ,12,",
			want: ValidationResult{"field 'name' is required but missing"},
		},
		{
			name: "bad email",
			row:  "Dan,40,not-an-email",
			want: ValidationResult{"field 'email' does not match email pattern"},
		},
		{
			name: "overflowing row",
			row:  "Eve,22,eve@example.com,extra",
			want: ValidationResult{"row has 4 fields but header declares 3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record(t, header, tt.row)
			got := s.Validate(r)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Validate(%q)\n got  %q\n want %q", tt.row, got, tt.want)
			}
			if got.Valid() != (len(tt.want) == 0) {
				t.Errorf("Valid() = %v", got.Valid())
			}
		})
	}
}

func TestValidate_PaddedMissingRequired(t *testing.T) {
	s, err := CompileSchema(SchemaInfo{Key: "k"}, []FieldSpec{
		{Name: "a"},
		{Name: "b", Required: true},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, "a,b", "x")
	if r.Padded != 1 {
		t.Fatalf("Padded = %d, want 1", r.Padded)
	}
	want := ValidationResult{"field 'b' is required but missing"}
	if got := s.Validate(r); !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidate_MissingColumn(t *testing.T) {
	s := contactsSchema(t)

	r := record(t, "email", "a@example.com")
	want := ValidationResult{"field 'name' is required but missing"}
	if got := s.Validate(r); !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	required, optional := s.MissingColumns(r.Header())
	if !slices.Equal(required, []string{"name"}) || !slices.Equal(optional, []string{"age"}) {
		t.Errorf("MissingColumns = %v, %v", required, optional)
	}
}

func TestValidate_AllowedValues(t *testing.T) {
	s, err := CompileSchema(SchemaInfo{Key: "k"}, []FieldSpec{
		{Name: "tier", Type: FieldEnum, AllowedValues: []string{"Gold", "Silver"}},
		{Name: "code", Pattern: `[A-Z]{2}`, AllowedValues: []string{"US", "CA"}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		row  string
		want ValidationResult
	}{
		{"gold,US", nil},
		{"GOLD,ca", ValidationResult{`field 'code' does not match "[A-Z]{2}" pattern`}},
		{"Bronze,MX", ValidationResult{`field 'tier' value "Bronze" is not one of [Gold, Silver]`, `field 'code' value "MX" is not one of [US, CA]`}},
		{",", nil},
	}

	for _, tt := range tests {
		t.Run(tt.row, func(t *testing.T) {
			got := s.Validate(record(t, "tier,code", tt.row))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_RegexOnTypedField(t *testing.T) {
	s, err := CompileSchema(SchemaInfo{Key: "k"}, []FieldSpec{
		{Name: "d", Type: FieldDate, Pattern: `[0-9]{4}-[0-9]{2}-[0-9]{2}`},
		{Name: "n", Type: FieldInteger, Pattern: `[0-9]+`},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		row  string
		want ValidationResult
	}{
		{"2024-01-01,5", nil},
		{"2024-02-30,1", ValidationResult{`field 'd' does not match date pattern`}},
		{"2024-01-01,99999999999999999999", ValidationResult{`field 'n' does not match numeric pattern`}},
		{"01/02/2024,-5", ValidationResult{
			`field 'd' does not match "[0-9]{4}-[0-9]{2}-[0-9]{2}" pattern`,
			`field 'n' does not match "[0-9]+" pattern`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.row, func(t *testing.T) {
			got := s.Validate(record(t, "d,n", tt.row))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	// Values the coercion cannot handle are rejected, not fatal for the file.
	_, seq, err := Parser{}.Parse("d,n\n2024-02-30,1\n2024-01-01,99999999999999999999\n2024-01-01,5\n")
	if err != nil {
		t.Fatal(err)
	}
	out, err := Accumulate(s, seq)
	if err != nil {
		t.Fatalf("Accumulate: %v", err)
	}
	if out.AcceptedCount() != 1 || out.RejectedCount() != 2 {
		t.Errorf("counts = %+v, want 1 accepted, 2 rejected", out.Counts())
	}
}

func TestValidate_RegexMatchesWholeValue(t *testing.T) {
	s, err := CompileSchema(SchemaInfo{Key: "k"}, []FieldSpec{
		{Name: "a", Pattern: `^ab`},
		{Name: "b", Pattern: `cd$`},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Validate(record(t, "a,b", "ab,cd")); !got.Valid() {
		t.Errorf("exact values rejected: %q", got)
	}
	want := ValidationResult{
		`field 'a' does not match "^ab" pattern`,
		`field 'b' does not match "cd$" pattern`,
	}
	if got := s.Validate(record(t, "a,b", "abc,xcd")); !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidate_CrossFieldRules(t *testing.T) {
	s, err := CompileSchema(SchemaInfo{Key: "k"}, []FieldSpec{
		{Name: "start_date", Type: FieldDate},
		{Name: "end_date", Type: FieldDate},
		{Name: "email"},
		{Name: "phone"},
		{Name: "amount", Type: FieldDecimal},
		{Name: "currency"},
	}, []CrossFieldRule{
		{Name: "ordered", Kind: CrossNotBefore, Fields: []string{"end_date", "start_date"}},
		{Name: "contact", Kind: CrossAnyOf, Fields: []string{"email", "phone"}},
		{Name: "priced", Kind: CrossRequires, Fields: []string{"amount", "currency"}, Message: "amount needs a currency"},
	})
	if err != nil {
		t.Fatal(err)
	}
	const header = "start_date,end_date,email,phone,amount,currency"

	tests := []struct {
		name string
		row  string
		want ValidationResult
	}{
		{
			name: "all satisfied",
			row:  "2024-01-01,2024-02-01,a@b.co,,10,USD",
			want: nil,
		},
		{
			name: "same day allowed",
			row:  "2024-01-01,01/01/2024,a@b.co,,,",
			want: nil,
		},
		{
			name: "end before start",
			row:  "2024-02-01,2024-01-01,a@b.co,,,",
			want: ValidationResult{"rule 'ordered' violated: field 'end_date' must not be before field 'start_date'"},
		},
		{
			name: "no contact",
			row:  ",,,,,",
			want: ValidationResult{"rule 'contact' violated: at least one of fields 'email', 'phone' must be present"},
		},
		{
			name: "custom message",
			row:  ",,,555-0100,9.99,",
			want: ValidationResult{"rule 'priced' violated: amount needs a currency"},
		},
		{
			name: "rule skipped when a referenced field is invalid",
			row:  "not-a-date,2024-01-01,,555-0100,,",
			want: ValidationResult{"field 'start_date' does not match date pattern"},
		},
		{
			name: "comparison skipped when a field is absent",
			row:  ",2024-01-01,x@y.io,,,",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Validate(record(t, header, tt.row))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_CompareKinds(t *testing.T) {
	specs := []FieldSpec{{Name: "a", Type: FieldInteger}, {Name: "b", Type: FieldInteger}}

	tests := []struct {
		kind  CrossFieldKind
		row   string
		valid bool
	}{
		{CrossNotAfter, "1,2", true},
		{CrossNotAfter, "3,2", false},
		{CrossEqual, "2,2", true},
		{CrossEqual, "2,3", false},
		{CrossNotBefore, "1,2", false},
		{CrossNotBefore, "1,1", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.row, func(t *testing.T) {
			s, err := CompileSchema(SchemaInfo{Key: "k"}, specs, []CrossFieldRule{{Name: "r", Kind: tt.kind, Fields: []string{"a", "b"}}})
			if err != nil {
				t.Fatal(err)
			}
			got := s.Validate(record(t, "a,b", tt.row))
			if got.Valid() != tt.valid {
				t.Errorf("Valid = %v (%q), want %v", got.Valid(), got, tt.valid)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	s := contactsSchema(t)
	r := record(t, "name,age,email", ",x,y")
	before := r.Values()

	first := s.Validate(r)
	second := s.Validate(r)

	if !slices.Equal(first, second) {
		t.Errorf("Validate not idempotent: %q vs %q", first, second)
	}
	if !slices.Equal(before, r.Values()) {
		t.Errorf("Validate mutated the record: %q -> %q", before, r.Values())
	}
}

func TestCompileSchema_Errors(t *testing.T) {
	tests := []struct {
		name    string
		specs   []FieldSpec
		rules   []CrossFieldRule
		wantErr string
	}{
		{
			name:    "no fields",
			wantErr: "declares no fields",
		},
		{
			name:    "duplicate field",
			specs:   []FieldSpec{{Name: "a"}, {Name: "A"}},
			wantErr: "declared twice",
		},
		{
			name:    "incompatible built-in pattern",
			specs:   []FieldSpec{{Name: "n", Type: FieldInteger, Pattern: "decimal"}},
			wantErr: "cannot produce a valid integer",
		},
		{
			name:    "email pattern on date",
			specs:   []FieldSpec{{Name: "d", Type: FieldDate, Pattern: "email"}},
			wantErr: "cannot produce a valid date",
		},
		{
			name:    "bad regex",
			specs:   []FieldSpec{{Name: "x", Pattern: "("}},
			wantErr: "invalid pattern",
		},
		{
			name:    "enum without values",
			specs:   []FieldSpec{{Name: "e", Type: FieldEnum}},
			wantErr: "enum requires allowed values",
		},
		{
			name:    "default does not coerce",
			specs:   []FieldSpec{{Name: "n", Type: FieldInteger, Default: "many"}},
			wantErr: "default",
		},
		{
			name:    "default not allowed",
			specs:   []FieldSpec{{Name: "e", Type: FieldEnum, AllowedValues: []string{"a"}, Default: "b"}},
			wantErr: "default",
		},
		{
			name:    "required with default",
			specs:   []FieldSpec{{Name: "n", Required: true, Default: "x"}},
			wantErr: "cannot have a default",
		},
		{
			name:    "transform on typed field",
			specs:   []FieldSpec{{Name: "n", Type: FieldInteger, Transforms: []string{"upper"}}},
			wantErr: "text fields only",
		},
		{
			name:    "unknown transform",
			specs:   []FieldSpec{{Name: "n", Transforms: []string{"reverse"}}},
			wantErr: "unknown transform",
		},
		{
			name:    "rule on unknown field",
			specs:   []FieldSpec{{Name: "a"}},
			rules:   []CrossFieldRule{{Name: "r", Kind: CrossAnyOf, Fields: []string{"b"}}},
			wantErr: "unknown field",
		},
		{
			name:    "comparison across types",
			specs:   []FieldSpec{{Name: "a", Type: FieldDate}, {Name: "b", Type: FieldInteger}},
			rules:   []CrossFieldRule{{Name: "r", Kind: CrossNotBefore, Fields: []string{"a", "b"}}},
			wantErr: "cannot compare",
		},
		{
			name:    "unknown rule kind",
			specs:   []FieldSpec{{Name: "a"}},
			rules:   []CrossFieldRule{{Name: "r", Kind: "between", Fields: []string{"a"}}},
			wantErr: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchema(SchemaInfo{Key: "k"}, tt.specs, tt.rules)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompileSchema_ReportsAllProblems(t *testing.T) {
	_, err := CompileSchema(SchemaInfo{Key: "k"}, []FieldSpec{
		{Name: "a", Type: FieldEnum},
		{Name: "b", Pattern: "["},
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{`"a"`, `"b"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention field %s", err, want)
		}
	}
}

func TestCompileSchema_DefaultTable(t *testing.T) {
	s, err := CompileSchema(SchemaInfo{Key: "Sales Orders"}, []FieldSpec{{Name: "Order ID"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Info().Table; got != "sales_orders" {
		t.Errorf("Table = %q, want sales_orders", got)
	}
	if got := s.Columns(); !slices.Equal(got, []string{"order_id"}) {
		t.Errorf("Columns = %v", got)
	}
}
