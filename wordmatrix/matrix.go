package wordmatrix

import (
	"io"

	"github.com/chararch/twig/util"
	"github.com/pkg/errors"
)

type row struct {
	total      int64
	successors map[string]int64
}

//WordMatrix frequency of a predecessor word being followed by a successor word.
//The empty word "" marks the start and the end of a sentence
type WordMatrix struct {
	rows  map[string]*row
	pairs int
}

func New() *WordMatrix {
	return &WordMatrix{rows: map[string]*row{}}
}

//AlterFrequency adds count occurrences of predecessor being followed by successor
func (m *WordMatrix) AlterFrequency(predecessor, successor string, count int64) {
	r, ok := m.rows[predecessor]
	if !ok {
		r = &row{successors: map[string]int64{}}
		m.rows[predecessor] = r
	}
	if _, ok := r.successors[successor]; !ok {
		m.pairs++
	}
	r.total += count
	r.successors[successor] += count
}

//PutAll adds one occurrence per pair
func (m *WordMatrix) PutAll(pairs []Pair) {
	for _, p := range pairs {
		m.AlterFrequency(p.Predecessor, p.Successor, 1)
	}
}

//Merge adds the counts of other
func (m *WordMatrix) Merge(other *WordMatrix) {
	for pred, r := range other.rows {
		for succ, n := range r.successors {
			m.AlterFrequency(pred, succ, n)
		}
	}
}

//Size number of distinct (predecessor, successor) pairs
func (m *WordMatrix) Size() int {
	return m.pairs
}

//Chance probability that predecessor is followed by successor
func (m *WordMatrix) Chance(predecessor, successor string) (float64, error) {
	r, ok := m.rows[predecessor]
	if !ok {
		return 0, errors.Errorf("no mapping found for %q", predecessor)
	}
	return float64(r.successors[successor]) / float64(r.total), nil
}

//Predecessors sorted
func (m *WordMatrix) Predecessors() []string {
	return util.SortedKeys(m.rows)
}

//Mappings every successor of predecessor mapped to its chance
func (m *WordMatrix) Mappings(predecessor string) (map[string]float64, error) {
	r, ok := m.rows[predecessor]
	if !ok {
		return nil, errors.Errorf("no mapping found for %q", predecessor)
	}
	result := make(map[string]float64, len(r.successors))
	for succ, n := range r.successors {
		result[succ] = float64(n) / float64(r.total)
	}
	return result, nil
}

type line struct {
	Predecessor string           `json:"predecessor"`
	Total       int64            `json:"total"`
	Successors  map[string]int64 `json:"successors"`
}

//Encode writes one JSON object per predecessor, in predecessor order
func (m *WordMatrix) Encode(w io.Writer) error {
	preds := m.Predecessors()
	lines := make([]line, 0, len(preds))
	for _, pred := range preds {
		r := m.rows[pred]
		lines = append(lines, line{Predecessor: pred, Total: r.total, Successors: r.successors})
	}
	return util.WriteJsonLines(w, lines)
}

//Decode reads what Encode wrote and merges it into m
func (m *WordMatrix) Decode(r io.Reader) error {
	err := util.ReadJsonLines(r, func(l line) error {
		for _, succ := range util.SortedKeys(l.Successors) {
			m.AlterFrequency(l.Predecessor, succ, l.Successors[succ])
		}
		return nil
	})
	return errors.Wrap(err, "decode word matrix")
}
