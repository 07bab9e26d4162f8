package describe

import (
	"testing"

	"github.com/kailas-cloud/tablens/internal/domain/column"
)

func ptr[T any](v T) *T { return &v }

func TestColumn_Numeric(t *testing.T) {
	c := column.Column{
		Name: "sales_amount",
		Type: column.TypeFloat,
		Stats: column.Stats{
			TotalCount:  10,
			UniqueCount: 7,
			Min:         ptr(100.0),
			Max:         ptr(50000.5),
		},
		Samples: []string{"1250.5", "3400.2"},
	}

	got := Column(c)
	want := "name: sales_amount, type: float, stats: min100 max50000.5 unique7, samples: [1250.5, 3400.2]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestColumn_LabelAppended(t *testing.T) {
	c := column.Column{Name: "u9500u552e", Label: "销售", Type: column.TypeString}

	got := Column(c)
	want := "name: u9500u552e (label: 销售), type: string"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestColumn_LabelSameAsName(t *testing.T) {
	c := column.Column{Name: "city", Label: "city", Type: column.TypeString}

	if got := Column(c); got != "name: city, type: string" {
		t.Errorf("unexpected description: %q", got)
	}
}

func TestColumn_SamplesCapped(t *testing.T) {
	c := column.Column{
		Name:    "n",
		Type:    column.TypeInt,
		Samples: []string{"1", "2", "3", "4", "5", "6", "7"},
	}

	want := "name: n, type: int, samples: [1, 2, 3, 4, 5]"
	if got := Column(c); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestColumns_Order(t *testing.T) {
	got := Columns([]column.Column{{Name: "a"}, {Name: "b"}})
	if len(got) != 2 || got[0] != "name: a" || got[1] != "name: b" {
		t.Errorf("unexpected descriptions: %v", got)
	}
}
