package column

import "fmt"

// Type is the inferred logical type of a column.
type Type string

const (
	// TypeInt is a whole-number column.
	TypeInt Type = "int"
	// TypeFloat is a real-number column.
	TypeFloat Type = "float"
	// TypeDate is a date or timestamp column.
	TypeDate Type = "date"
	// TypeBool is a boolean column.
	TypeBool Type = "bool"
	// TypeString is a text column.
	TypeString Type = "string"
)

// IsValid checks if the type is supported.
func (t Type) IsValid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeDate, TypeBool, TypeString:
		return true
	default:
		return false
	}
}

// IsNumeric reports int or float.
func (t Type) IsNumeric() bool { return t == TypeInt || t == TypeFloat }

// ParseType converts a stored string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown column type %q", s)
	}
	return t, nil
}

// MaxSamples is the number of representative values kept per column.
const MaxSamples = 5

// Stats is the per-column statistics record. Optional fields are nil when
// they do not apply to the column type.
type Stats struct {
	NullCount   int `json:"null_count"`
	UniqueCount int `json:"unique_count"`
	TotalCount  int `json:"total_count"`

	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Median *float64 `json:"median,omitempty"`

	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	AvgLength *float64 `json:"avg_length,omitempty"`

	MinDate *string `json:"min_date,omitempty"`
	MaxDate *string `json:"max_date,omitempty"`
}

// Column is one inferred column of a dataset.
type Column struct {
	Name    string   `json:"name"`
	Label   string   `json:"label,omitempty"`
	Index   int      `json:"index"`
	Type    Type     `json:"type"`
	Stats   Stats    `json:"stats"`
	Samples []string `json:"samples"`
}

// Names returns the column names in order.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
