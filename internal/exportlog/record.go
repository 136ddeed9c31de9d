package exportlog

import (
	"github.com/wippyai/wasm-nucleus/errors"
)

// RecordType discriminates export records.
type RecordType string

const (
	TypeStruct    RecordType = "struct"
	TypeEnum      RecordType = "enum"
	TypeFn        RecordType = "fn"
	TypeTypeAlias RecordType = "type_alias"
)

// FieldRecord is a named, typed member: a struct field, a variant field or
// a function input. Type is a Go type expression as written in source.
type FieldRecord struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type VariantRecord struct {
	Name   string        `json:"name"`
	Fields []FieldRecord `json:"fields"`
}

// Record describes one exported declaration. Which fields are set depends
// on Type.
type Record struct {
	Type     RecordType      `json:"type"`
	Name     string          `json:"name"`
	Generics []string        `json:"generics,omitempty"`
	Fields   []FieldRecord   `json:"fields,omitempty"`
	Variants []VariantRecord `json:"variants,omitempty"`
	Method   string          `json:"method,omitempty"`
	Inputs   []FieldRecord   `json:"inputs,omitempty"`
	Output   string          `json:"output,omitempty"`
	Target   string          `json:"target,omitempty"`
}

func StructRecord(name string, generics []string, fields []FieldRecord) Record {
	return Record{Type: TypeStruct, Name: name, Generics: generics, Fields: fields}
}

func EnumRecord(name string, generics []string, variants []VariantRecord) Record {
	return Record{Type: TypeEnum, Name: name, Generics: generics, Variants: variants}
}

func FnRecord(name, method string, inputs []FieldRecord, output string) Record {
	return Record{Type: TypeFn, Name: name, Method: method, Inputs: inputs, Output: output}
}

func TypeAliasRecord(name string, generics []string, target string) Record {
	return Record{Type: TypeTypeAlias, Name: name, Generics: generics, Target: target}
}

// Validate checks that the fields required by the record type are set.
func (r Record) Validate() error {
	if r.Name == "" {
		return errors.InvalidInput(errors.PhaseExport, "record has no name")
	}
	switch r.Type {
	case TypeStruct, TypeEnum:
	case TypeFn:
		if r.Method == "" {
			return errors.InvalidInput(errors.PhaseExport, "fn record "+r.Name+" has no method")
		}
	case TypeTypeAlias:
		if r.Target == "" {
			return errors.InvalidInput(errors.PhaseExport, "type_alias record "+r.Name+" has no target")
		}
	default:
		return errors.InvalidInput(errors.PhaseExport, "record "+r.Name+" has unknown type "+string(r.Type))
	}
	return nil
}
