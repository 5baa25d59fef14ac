package merge

import (
	"sort"
	"time"

	"github.com/ruslano69/tradesync/pkg/dataset"
	"github.com/ruslano69/tradesync/pkg/fingerprint"
	"github.com/ruslano69/tradesync/pkg/normalize"
)

// Stats describes what a merge did.
type Stats struct {
	MasterRowsIn    int // rows carried over from the master
	FreshRowsIn     int // rows offered by the fresh export
	Added           int // fresh rows accepted as new
	Duplicates      int // fresh rows rejected as already present
	UnparsableDates int // rows in the result whose date column did not parse
}

// Result is the outcome of a merge: the combined dataset plus counters.
// Added is the headline number callers use for short-circuit decisions.
type Result struct {
	Dataset *dataset.Dataset
	Added   int
	Stats   Stats
}

// Engine merges a fresh transaction export into a master ledger. Master
// rows are authoritative and always survive (normalized); fresh rows are
// accepted only when their content fingerprint is unseen. The result is
// stable-sorted by transaction date, newest first.
type Engine struct {
	norm *normalize.Normalizer
}

// NewEngine creates a merge engine around a shared normalizer. Both
// inputs of every merge pass through this normalizer, which is what makes
// their fingerprints comparable.
func NewEngine(norm *normalize.Normalizer) *Engine {
	return &Engine{norm: norm}
}

// Merge combines fresh into master. A nil or empty master means the fresh
// export seeds the ledger (still self-deduplicated and sorted). Neither
// input dataset is modified.
//
// Rows keep their relative input order for equal dates: master rows
// first, then accepted fresh rows in file order.
func (e *Engine) Merge(master, fresh *dataset.Dataset) *Result {
	if master == nil {
		master = dataset.New(nil)
	}
	if fresh == nil {
		fresh = dataset.New(nil)
	}

	header := dataset.UnionHeader(master.Header, fresh.Header)
	normMaster := e.norm.Dataset(master.Reindex(header))
	normFresh := e.norm.Dataset(fresh.Reindex(header))

	result := &Result{
		Dataset: dataset.New(header),
		Stats: Stats{
			MasterRowsIn: normMaster.Len(),
			FreshRowsIn:  normFresh.Len(),
		},
	}

	dateCol := result.Dataset.ColumnIndex(e.norm.DateField())

	seen := fingerprint.NewSet(normMaster.Len() + normFresh.Len())
	for _, row := range normMaster.Rows {
		seen.Add(e.fingerprintRow(row, dateCol))
		result.Dataset.Append(row)
	}

	for _, row := range normFresh.Rows {
		if !seen.Add(e.fingerprintRow(row, dateCol)) {
			result.Stats.Duplicates++
			continue
		}
		result.Dataset.Append(row)
		result.Stats.Added++
	}
	result.Added = result.Stats.Added

	e.sortByDateDesc(result)
	return result
}

// fingerprintRow hashes a normalized row with the date column reduced to
// its parsed instant. The same transaction re-encoded with a different
// date layout ("2024-01-15" vs "2024-01-15 00:00:00") must fingerprint
// equal, or every re-run against the canonically rendered master would
// re-add the whole export. Unparseable date text stays part of the
// identity verbatim.
func (e *Engine) fingerprintRow(row []string, dateCol int) fingerprint.Fingerprint {
	if dateCol < 0 || dateCol >= len(row) {
		return fingerprint.Row(row)
	}
	t, ok := e.norm.Date(row[dateCol])
	if !ok {
		return fingerprint.Row(row)
	}
	key := make([]string, len(row))
	copy(key, row)
	key[dateCol] = t.Format("2006-01-02 15:04:05")
	return fingerprint.Row(key)
}

// sortByDateDesc orders rows newest first. Rows whose date column does
// not parse sort to the end; ties keep input order.
func (e *Engine) sortByDateDesc(r *Result) {
	ds := r.Dataset
	col := ds.ColumnIndex(e.norm.DateField())
	if col < 0 {
		return
	}

	dates := make([]time.Time, len(ds.Rows))
	for i, row := range ds.Rows {
		t, ok := e.norm.Date(ds.Value(row, col))
		if !ok {
			r.Stats.UnparsableDates++
		}
		dates[i] = t // zero time for unparseable, sorts last
	}

	order := make([]int, len(ds.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dates[order[a]].After(dates[order[b]])
	})

	sorted := make([][]string, len(ds.Rows))
	for i, idx := range order {
		sorted[i] = ds.Rows[idx]
	}
	ds.Rows = sorted
}
