package course

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// LoadError reports one schema violation in a course file.
type LoadError struct {
	Field   string
	Message string
}

func (e *LoadError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Load decodes and validates a course structure document.
//
// Decoding is strict: unknown YAML fields are rejected so typos like
// "preconditionRules" fail loudly instead of silently dropping rules.
// The decoded document is then unified with the embedded CUE schema;
// every violation is returned, not just the first.
func Load(data []byte) (*Course, []error) {
	var c Course
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, []error{&LoadError{Field: "yaml", Message: err.Error()}}
	}

	if errs := validateSchema(&c); len(errs) > 0 {
		return nil, errs
	}
	return &c, nil
}

// LoadFile reads and loads a course structure file.
func LoadFile(path string) (*Course, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Field: "file", Message: err.Error()}}
	}
	return Load(data)
}

// validateSchema unifies the decoded course with #Course from the
// embedded schema and collects all violations.
func validateSchema(c *Course) []error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return []error{fmt.Errorf("compile embedded schema: %w", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Course"))
	if !def.Exists() {
		return []error{fmt.Errorf("embedded schema has no #Course definition")}
	}

	doc := ctx.Encode(c)
	if err := doc.Err(); err != nil {
		return []error{fmt.Errorf("encode course document: %w", err)}
	}

	unified := def.Unify(doc)
	if err := unified.Validate(); err != nil {
		var out []error
		for _, e := range cueerrors.Errors(err) {
			out = append(out, &LoadError{
				Field:   strings.Join(e.Path(), "."),
				Message: e.Error(),
			})
		}
		return out
	}
	return nil
}
