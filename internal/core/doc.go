// Package core validates, normalizes, and partitions the records of one
// delimited file.
//
// The package has no I/O dependencies and never logs. Triggers, object
// storage, and database sinks live in other packages and call in here.
//
// # Pipeline
//
// A file flows through four stages:
//
//  1. [Parser] turns the file text into a header plus a lazy, restartable
//     sequence of [RawRecord] values.
//  2. [Schema.Validate] checks each record against declarative field and
//     cross-field rules and returns a [ValidationResult].
//  3. [Schema.Normalize] turns an accepted record into a [CanonicalRecord]
//     with trimmed, typed, default-filled values.
//  4. [Accumulate] drives the previous two stages and partitions the input
//     into a [BatchOutcome] of accepted and rejected records.
//
// # Schemas
//
// Rule sets are compiled once with [CompileSchema] and registered by key:
//
//	core.RegisterSchema(core.MustCompileSchema(
//	    core.SchemaInfo{Key: "contacts", Table: "contacts", Prefix: "incoming/contacts/"},
//	    []core.FieldSpec{
//	        {Name: "name", Required: true},
//	        {Name: "age", Type: core.FieldInteger},
//	        {Name: "email", Pattern: "email"},
//	    },
//	    nil,
//	))
//
// Non-text fields always check a built-in pattern that accepts exactly what
// their coercion accepts, so a record that passes validation always
// normalizes. A regular expression on such a field is checked after the
// built-in pattern and can only narrow it. Compilation fails if an explicit
// built-in pattern or a default could break that. Regular expressions match
// the whole value; leading ^ and trailing $ are optional.
//
// # Errors
//
// Bad data in a record is not an error: it lands in the rejected partition
// with its reasons. Two conditions abort a whole file:
//
//   - [MalformedInputError]: the text cannot be split into rows.
//   - [NormalizationInvariantError]: a validated value failed to coerce.
package core
