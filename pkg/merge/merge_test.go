package merge

import (
	"reflect"
	"testing"

	"github.com/ruslano69/tradesync/pkg/dataset"
	"github.com/ruslano69/tradesync/pkg/normalize"
)

func testEngine() *Engine {
	return NewEngine(normalize.New(normalize.Config{
		NumericFields: []string{"Valore"},
		DateField:     "Data",
	}))
}

func newDataset(header []string, rows ...[]string) *dataset.Dataset {
	ds := dataset.New(header)
	for _, r := range rows {
		ds.Append(r)
	}
	return ds
}

func TestMergeAddsOnlyUnseenRows(t *testing.T) {
	e := testEngine()

	master := newDataset([]string{"Data", "Tipo", "Valore"},
		[]string{"2024-01-01", "Buy", "10.00"},
	)
	fresh := newDataset([]string{"Data", "Tipo", "Valore"},
		[]string{"2024-01-01", "Buy", "10,00"}, // same transaction, locale formatted
		[]string{"2024-02-01", "Sell", "20,00"},
	)

	r := e.Merge(master, fresh)

	if r.Added != 1 {
		t.Errorf("expected 1 added, got %d", r.Added)
	}
	if r.Stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", r.Stats.Duplicates)
	}
	if r.Dataset.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", r.Dataset.Len())
	}
	// Newest first.
	if r.Dataset.Rows[0][0] != "2024-02-01" || r.Dataset.Rows[1][0] != "2024-01-01" {
		t.Errorf("rows not sorted newest first: %v", r.Dataset.Rows)
	}
}

func TestMergeIdempotent(t *testing.T) {
	e := testEngine()

	master := newDataset([]string{"Data", "Valore"},
		[]string{"2024-01-01", "10,00"},
		[]string{"2024-02-01", "20,00"},
	)
	fresh := newDataset([]string{"Data", "Valore"},
		[]string{"2024-03-01", "30,00"},
	)

	first := e.Merge(master, fresh)
	second := e.Merge(first.Dataset, fresh)

	if second.Added != 0 {
		t.Errorf("re-merging the same export must add nothing, got %d", second.Added)
	}
	if !reflect.DeepEqual(first.Dataset.Rows, second.Dataset.Rows) {
		t.Error("re-merge changed the dataset")
	}
}

func TestMergeHeaderUnion(t *testing.T) {
	e := testEngine()

	master := newDataset([]string{"A", "B"}, []string{"1", "2"})
	fresh := newDataset([]string{"B", "C"}, []string{"2", "3"})

	r := e.Merge(master, fresh)

	if !reflect.DeepEqual(r.Dataset.Header, []string{"A", "B", "C"}) {
		t.Fatalf("expected union header [A B C], got %v", r.Dataset.Header)
	}
	if r.Dataset.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", r.Dataset.Len())
	}
	// Master row padded on C, fresh row padded on A.
	for _, row := range r.Dataset.Rows {
		if len(row) != 3 {
			t.Errorf("row not aligned to union header: %v", row)
		}
	}
}

func TestMergeDeduplicatesWithinFresh(t *testing.T) {
	e := testEngine()

	fresh := newDataset([]string{"Data", "Valore"},
		[]string{"2024-01-01", "10,00"},
		[]string{"2024-01-01", "10.00"}, // same row, different locale
		[]string{"2024-01-02", "20,00"},
	)

	r := e.Merge(nil, fresh)

	if r.Added != 2 {
		t.Errorf("expected 2 added, got %d", r.Added)
	}
	if r.Stats.Duplicates != 1 {
		t.Errorf("expected 1 intra-batch duplicate, got %d", r.Stats.Duplicates)
	}
}

func TestMergeSortStability(t *testing.T) {
	e := testEngine()

	master := newDataset([]string{"Data", "Note"},
		[]string{"2024-01-01", "first"},
		[]string{"2024-01-01", "second"},
	)
	fresh := newDataset([]string{"Data", "Note"},
		[]string{"2024-01-01", "third"},
	)

	r := e.Merge(master, fresh)

	got := []string{r.Dataset.Rows[0][1], r.Dataset.Rows[1][1], r.Dataset.Rows[2][1]}
	if !reflect.DeepEqual(got, []string{"first", "second", "third"}) {
		t.Errorf("equal dates must keep input order, got %v", got)
	}
}

func TestMergeUnparsableDatesSortLast(t *testing.T) {
	e := testEngine()

	fresh := newDataset([]string{"Data", "Note"},
		[]string{"no date", "junk"},
		[]string{"2020-01-01", "old"},
		[]string{"2024-01-01", "new"},
	)

	r := e.Merge(nil, fresh)

	got := []string{r.Dataset.Rows[0][1], r.Dataset.Rows[1][1], r.Dataset.Rows[2][1]}
	if !reflect.DeepEqual(got, []string{"new", "old", "junk"}) {
		t.Errorf("unexpected order: %v", got)
	}
	if r.Stats.UnparsableDates != 1 {
		t.Errorf("expected 1 unparsable date, got %d", r.Stats.UnparsableDates)
	}
	// The original text survives.
	if r.Dataset.Rows[2][0] != "no date" {
		t.Errorf("unparseable date text must be preserved, got %q", r.Dataset.Rows[2][0])
	}
}

func TestMergeInputsNotMutated(t *testing.T) {
	e := testEngine()

	master := newDataset([]string{"Data", "Valore"}, []string{"2024-01-01", "1.000,50"})
	fresh := newDataset([]string{"Data", "Valore"}, []string{"2024-02-01", "2.000,50"})

	e.Merge(master, fresh)

	if master.Rows[0][1] != "1.000,50" {
		t.Errorf("master input mutated: %q", master.Rows[0][1])
	}
	if fresh.Rows[0][1] != "2.000,50" {
		t.Errorf("fresh input mutated: %q", fresh.Rows[0][1])
	}
}

func TestMergeDateFormatsCompareEqual(t *testing.T) {
	e := testEngine()

	// The same transaction re-exported with a different date layout is
	// still the same transaction; the master keeps its own rendering.
	master := newDataset([]string{"Data", "Valore"}, []string{"2024-01-15 00:00:00", "10.00"})
	fresh := newDataset([]string{"Data", "Valore"},
		[]string{"2024-01-15", "10,00"},
		[]string{"15.01.2024", "10,00"},
	)

	r := e.Merge(master, fresh)

	if r.Added != 0 {
		t.Errorf("equivalent dates must fingerprint equal, got added=%d", r.Added)
	}
	if r.Stats.Duplicates != 2 {
		t.Errorf("expected 2 duplicates, got %d", r.Stats.Duplicates)
	}
	if r.Dataset.Rows[0][0] != "2024-01-15 00:00:00" {
		t.Errorf("master rendering must survive, got %q", r.Dataset.Rows[0][0])
	}
}

func TestMergeUnparseableDateTextIsIdentity(t *testing.T) {
	e := testEngine()

	master := newDataset([]string{"Data", "Valore"}, []string{"pending", "10.00"})
	fresh := newDataset([]string{"Data", "Valore"}, []string{"PENDING", "10,00"})

	r := e.Merge(master, fresh)

	// Unparseable date text only dedups on exact (trimmed) match.
	if r.Added != 1 {
		t.Errorf("differing unparseable date text must stay distinct, got added=%d", r.Added)
	}
}
