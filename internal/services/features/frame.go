package features

import (
	"fmt"
	"math"
)

// Kind is the declared type of a feature column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is one named feature column. Exactly one of Num or Cat is set.
// Missing numeric cells are NaN; missing categorical cells are "".
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Cat  []string
}

// Frame is an ordered set of equally long feature columns.
type Frame struct {
	cols  []Column
	index map[string]int
	rows  int
}

// NewFrame returns an empty frame with the given row count.
func NewFrame(rows int) *Frame {
	return &Frame{index: make(map[string]int), rows: rows}
}

func (f *Frame) add(c Column, n int) error {
	if _, dup := f.index[c.Name]; dup {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if n != f.rows {
		return fmt.Errorf("column %q has %d rows, frame has %d", c.Name, n, f.rows)
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// AddNumeric appends a numeric column.
func (f *Frame) AddNumeric(name string, values []float64) error {
	return f.add(Column{Name: name, Kind: Numeric, Num: values}, len(values))
}

// AddCategorical appends a categorical column.
func (f *Frame) AddCategorical(name string, values []string) error {
	return f.add(Column{Name: name, Kind: Categorical, Cat: values}, len(values))
}

// Rows returns the row count.
func (f *Frame) Rows() int { return f.rows }

// Width returns the column count.
func (f *Frame) Width() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return &f.cols[i], true
}

// At returns the i-th column.
func (f *Frame) At(i int) *Column { return &f.cols[i] }

// Take returns a new frame with the given rows, in the given order.
func (f *Frame) Take(rows []int) *Frame {
	out := NewFrame(len(rows))
	for _, c := range f.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			nc.Num = make([]float64, len(rows))
			for j, r := range rows {
				nc.Num[j] = c.Num[r]
			}
		} else {
			nc.Cat = make([]string, len(rows))
			for j, r := range rows {
				nc.Cat[j] = c.Cat[r]
			}
		}
		out.index[nc.Name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}
	return out
}

// CountMissing returns the number of missing cells per column.
func (f *Frame) CountMissing() map[string]int {
	out := make(map[string]int, len(f.cols))
	for _, c := range f.cols {
		n := 0
		if c.Kind == Numeric {
			for _, v := range c.Num {
				if math.IsNaN(v) {
					n++
				}
			}
		} else {
			for _, v := range c.Cat {
				if v == "" {
					n++
				}
			}
		}
		out[c.Name] = n
	}
	return out
}
