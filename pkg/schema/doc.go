// Package schema validates loosely typed data: tool arguments coming from a
// model and session metadata required by a flow.
//
// It defines a small type system whose names follow JSON Schema (string,
// integer, number, boolean, object, array) plus typed arrays such as
// "[string]". Schemas map field names to types:
//
//	s := schema.Schema{
//	    "city":  schema.String(),
//	    "days":  schema.Integer(),
//	    "tags":  schema.Array(schema.String()),
//	}
//	if err := schema.Validate(s, data); err != nil {
//	    // every field is required
//	}
//
// Tool arguments are validated against a domain.ToolSpec with ValidateArgs,
// which also rejects unknown arguments and honours the Required flag.
package schema
