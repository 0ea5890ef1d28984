// Package schema validates documents at the ledger boundary against
// embedded CUE schemas. Malformed identities, lineage records, events, and
// checksum strings are rejected here before they reach the core packages.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError represents one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator checks boundary documents against the embedded schemas.
type Validator struct {
	ctx      *cue.Context
	identity cue.Value
	lineage  cue.Value
	event    cue.Value
	checksum cue.Value
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	lookup := func(name string) (cue.Value, error) {
		v := root.LookupPath(cue.ParsePath(name))
		if err := v.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("lookup %s: %w", name, err)
		}
		return v, nil
	}

	val := &Validator{ctx: ctx}
	var err error
	if val.identity, err = lookup("#Identity"); err != nil {
		return nil, err
	}
	if val.lineage, err = lookup("#LineageRecord"); err != nil {
		return nil, err
	}
	if val.event, err = lookup("#Event"); err != nil {
		return nil, err
	}
	if val.checksum, err = lookup("#Checksum"); err != nil {
		return nil, err
	}
	return val, nil
}

// ValidateIdentity checks a JSON identity document.
// Returns all violations found (does not fail-fast).
func (v *Validator) ValidateIdentity(data []byte) []ValidationError {
	return v.check(v.identity, data)
}

// ValidateLineageRecord checks a JSON lineage record.
func (v *Validator) ValidateLineageRecord(data []byte) []ValidationError {
	return v.check(v.lineage, data)
}

// ValidateEvent checks a JSON timeline event record.
func (v *Validator) ValidateEvent(data []byte) []ValidationError {
	return v.check(v.event, data)
}

// ValidateChecksum checks the textual checksum form: exactly 64 lowercase
// hex characters.
func (v *Validator) ValidateChecksum(s string) []ValidationError {
	unified := v.checksum.Unify(v.ctx.Encode(s))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return []ValidationError{{
			Field:   "checksum",
			Message: fmt.Sprintf("%q is not a well-formed checksum", s),
		}}
	}
	return nil
}

// check unifies a JSON document with a schema and collects every violation.
func (v *Validator) check(schema cue.Value, data []byte) []ValidationError {
	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return []ValidationError{{Field: "document", Message: err.Error()}}
	}

	doc := v.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return []ValidationError{{Field: "document", Message: err.Error()}}
	}

	unified := schema.Unify(doc)
	err = unified.Validate(cue.Concrete(true), cue.Final())
	if err == nil {
		return nil
	}

	var errs []ValidationError
	for _, e := range cueerrors.Errors(err) {
		errs = append(errs, ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: e.Error(),
		})
	}
	return errs
}
