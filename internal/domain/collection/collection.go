// Package collection models dimension-bound partitions of the vector index.
package collection

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var baseRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DefaultBase is the collection family used for column entries.
const DefaultBase = "columns"

// Collection is a named partition bound to one vector dimension (immutable value object).
type Collection struct {
	name      string
	vectorDim int
	createdAt int64
}

// ValidateBase checks a collection family name.
func ValidateBase(base string) error {
	if base == "" {
		return fmt.Errorf("collection base is required")
	}
	if len(base) > 48 {
		return fmt.Errorf("collection base too long (max 48)")
	}
	if !baseRegex.MatchString(base) {
		return fmt.Errorf("collection base must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// Name returns the versioned collection name <base>_<dim>.
func Name(base string, dim int) string {
	return base + "_" + strconv.Itoa(dim)
}

// DimensionOf extracts the dimension suffix of a versioned name in the base family.
func DimensionOf(base, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, base+"_")
	if !ok || rest == "" {
		return 0, false
	}
	dim, err := strconv.Atoi(rest)
	if err != nil || dim <= 0 {
		return 0, false
	}
	return dim, true
}

// New validates and creates a Collection for base and dim.
func New(base string, dim int) (Collection, error) {
	if err := ValidateBase(base); err != nil {
		return Collection{}, err
	}
	if dim <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive")
	}
	return Collection{
		name:      Name(base, dim),
		vectorDim: dim,
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, vectorDim int, createdAt int64) Collection {
	return Collection{name: name, vectorDim: vectorDim, createdAt: createdAt}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// VectorDim returns the vector dimension.
func (c Collection) VectorDim() int { return c.vectorDim }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }
