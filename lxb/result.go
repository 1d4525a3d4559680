package lxb

import (
	"fmt"
	"slices"

	"github.com/l1ktools/l1kio/fcs"
)

// Result holds the events of one LXB file. values[i] and analytes[i]
// describe the same event. Slices returned by accessors are shared and must
// not be modified.
type Result struct {
	values   []float32
	analytes []int32

	scanner    string
	hasScanner bool
	well       string
	hasWell    bool

	channel  string
	keywords *fcs.Keywords
	source   string
}

// Len returns the number of events.
func (r *Result) Len() int { return len(r.values) }

// Values returns the channel reading of every event.
func (r *Result) Values() []float32 { return r.values }

// Analytes returns the analyte (bead region) of every event.
func (r *Result) Analytes() []int32 { return r.analytes }

// Scanner returns $CYTSN, if present.
func (r *Result) Scanner() (string, bool) { return r.scanner, r.hasScanner }

// Well returns $SMNO, if present.
func (r *Result) Well() (string, bool) { return r.well, r.hasWell }

// Channel returns the parameter name the values were read from, as spelled
// in the file.
func (r *Result) Channel() string { return r.channel }

// Keywords returns the dataset's keyword table.
func (r *Result) Keywords() *fcs.Keywords { return r.keywords }

// Source returns the locator the result was loaded from, if any.
func (r *Result) Source() string { return r.source }

func (r *Result) String() string {
	return fmt.Sprintf("LXBData [scanner=%s, well=%s]", optional(r.scanner, r.hasScanner), optional(r.well, r.hasWell))
}

func optional(v string, ok bool) string {
	if !ok {
		return "null"
	}
	return v
}

// ByAnalyte groups values by analyte, keeping event order within a group.
func (r *Result) ByAnalyte() map[int32][]float32 {
	groups := make(map[int32][]float32)
	for i, a := range r.analytes {
		groups[a] = append(groups[a], r.values[i])
	}
	return groups
}

// MedianByAnalyte returns the median value of every analyte. An even count
// averages the two middle values.
func (r *Result) MedianByAnalyte() map[int32]float32 {
	groups := r.ByAnalyte()
	medians := make(map[int32]float32, len(groups))
	for a, vals := range groups {
		slices.Sort(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			medians[a] = vals[mid]
		} else {
			medians[a] = (vals[mid-1] + vals[mid]) / 2
		}
	}
	return medians
}
