package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// humanizeBytes renders a byte count the way status/list/conflicts tables
// do, e.g. "128 MB".
func humanizeBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}

// printJSON encodes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a go-pretty table writer with this CLI's shared
// rendering conventions (box style respects --no-color).
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if noColor {
		t.SetStyle(table.StyleDefault)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

// sortedModIDs returns the keys of a mod-id-keyed map in ascending order,
// for deterministic table/JSON rendering.
func sortedModIDs[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
