package fcs

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Keyword is one TEXT segment entry.
type Keyword struct {
	Name  string
	Value string
}

// Keywords is an ordered, read-only keyword table. Lookups by name are
// case-insensitive, as FCS keyword names are.
type Keywords struct {
	list  []Keyword
	index map[string]int
}

// NewKeywords builds a table from entries in TEXT order. When a name repeats,
// Get returns the last value.
func NewKeywords(entries ...Keyword) *Keywords {
	k := &Keywords{
		list:  entries,
		index: make(map[string]int, len(entries)),
	}
	for i, kw := range entries {
		k.index[strings.ToUpper(kw.Name)] = i
	}
	return k
}

// Len returns the number of entries.
func (k *Keywords) Len() int {
	if k == nil {
		return 0
	}
	return len(k.list)
}

// At returns the i-th entry in TEXT order.
func (k *Keywords) At(i int) Keyword {
	return k.list[i]
}

// Get returns the value for name.
func (k *Keywords) Get(name string) (string, bool) {
	if k == nil {
		return "", false
	}
	i, ok := k.index[strings.ToUpper(name)]
	if !ok {
		return "", false
	}
	return k.list[i].Value, true
}

// All yields name/value pairs in TEXT order.
func (k *Keywords) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if k == nil {
			return
		}
		for _, kw := range k.list {
			if !yield(kw.Name, kw.Value) {
				return
			}
		}
	}
}

// Without returns a copy of the table lacking the named keywords.
func (k *Keywords) Without(names ...string) *Keywords {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[strings.ToUpper(n)] = true
	}
	var kept []Keyword
	for i := 0; i < k.Len(); i++ {
		if !drop[strings.ToUpper(k.list[i].Name)] {
			kept = append(kept, k.list[i])
		}
	}
	return NewKeywords(kept...)
}

// Int returns the value of name parsed as a base-10 integer. Surrounding
// blanks are ignored.
func (k *Keywords) Int(name string) (int64, error) {
	v, ok := k.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrKeywordMissing, name)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrMalformed, name, v)
	}
	return n, nil
}

// String formats the table as name=value pairs.
func (k *Keywords) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < k.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k.list[i].Name)
		sb.WriteByte('=')
		sb.WriteString(k.list[i].Value)
	}
	sb.WriteByte(']')
	return sb.String()
}
