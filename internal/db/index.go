package db

import (
	"errors"
	"fmt"
)

// FieldKind is the FT schema type of a hash attribute.
type FieldKind string

const (
	// KindTag is an exact-match attribute, stored case-sensitive.
	KindTag FieldKind = "TAG"
	// KindText is a full-text attribute.
	KindText FieldKind = "TEXT"
)

// Field is one scalar attribute of an index schema.
type Field struct {
	Name string
	Kind FieldKind
}

// VectorField is the FLOAT32 HNSW attribute of a collection index.
// Distance is always COSINE; a zero M or EFConstruction keeps the server default.
type VectorField struct {
	Name           string
	Alias          string
	Dim            int
	M              int
	EFConstruction int
}

// IndexDefinition describes an FT index over the hashes under Prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []Field
	Vector VectorField
}

// Validate checks that the definition can be sent to FT.CREATE.
func (idx *IndexDefinition) Validate() error {
	switch {
	case idx.Name == "":
		return errors.New("index name is required")
	case !IsValidIdentifier(idx.Name):
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	case idx.Prefix == "":
		return errors.New("key prefix is required")
	case idx.Vector.Name == "":
		return errors.New("vector field is required")
	case idx.Vector.Dim <= 0:
		return fmt.Errorf("vector dimension must be positive, got %d", idx.Vector.Dim)
	}

	seen := map[string]bool{idx.Vector.Name: true}
	if idx.Vector.Alias != "" {
		seen[idx.Vector.Alias] = true
	}
	for _, f := range idx.Fields {
		if f.Name == "" {
			return errors.New("field name is required")
		}
		if f.Kind != KindTag && f.Kind != KindText {
			return fmt.Errorf("field %s: unsupported kind %q", f.Name, f.Kind)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
