// Package diff compares two snapshot versions of a data source at record
// and field granularity. Compare is a pure function: it never mutates its
// inputs and is safe to run concurrently and repeatedly.
package diff

import (
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

// ErrMalformedSnapshot indicates duplicate record keys within one
// snapshot; the diff cannot proceed.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// topFieldsLimit caps the top-changed-fields ranking.
const topFieldsLimit = 10

// Compare diffs two versions of a data source's record set, matching
// records by keyField. Ordering of the result is deterministic: record
// changes sort by key, field changes by field name, and the field ranking
// breaks count ties by name.
func Compare(from, to VersionedSet, keyField string) (*Comparison, error) {
	if keyField == "" {
		return nil, fmt.Errorf("key field is required")
	}

	fromByKey, err := indexByKey(from.Records, keyField, from.Version)
	if err != nil {
		return nil, err
	}
	toByKey, err := indexByKey(to.Records, keyField, to.Version)
	if err != nil {
		return nil, err
	}

	fromKeys := mapset.NewThreadUnsafeSet[string]()
	for k := range fromByKey {
		fromKeys.Add(k)
	}
	toKeys := mapset.NewThreadUnsafeSet[string]()
	for k := range toByKey {
		toKeys.Add(k)
	}

	cmp := &Comparison{
		FromVersion: from.Version,
		ToVersion:   to.Version,
		Summary: Summary{
			TotalRecordsFrom: len(from.Records),
			TotalRecordsTo:   len(to.Records),
		},
	}

	fieldCounts := make(map[string]int)
	allKeys := fromKeys.Union(toKeys).ToSlice()
	sort.Strings(allKeys)

	for _, key := range allKeys {
		before, inFrom := fromByKey[key]
		after, inTo := toByKey[key]

		switch {
		case !inFrom:
			cmp.Summary.Added++
			cmp.Changes = append(cmp.Changes, RecordChange{
				Key:        key,
				ChangeType: ChangeAdded,
				After:      after,
			})
		case !inTo:
			cmp.Summary.Removed++
			cmp.Changes = append(cmp.Changes, RecordChange{
				Key:        key,
				ChangeType: ChangeRemoved,
				Before:     before,
			})
		default:
			fieldChanges := compareFields(before, after)
			if len(fieldChanges) == 0 {
				cmp.Summary.Unchanged++
				cmp.Changes = append(cmp.Changes, RecordChange{
					Key:        key,
					ChangeType: ChangeUnchanged,
					Before:     before,
					After:      after,
				})
				continue
			}
			cmp.Summary.Modified++
			cmp.Statistics.TotalFieldChanges += len(fieldChanges)
			for _, fc := range fieldChanges {
				fieldCounts[fc.Field]++
			}
			cmp.Changes = append(cmp.Changes, RecordChange{
				Key:          key,
				ChangeType:   ChangeModified,
				Before:       before,
				After:        after,
				FieldChanges: fieldChanges,
			})
		}
	}

	changed := cmp.Summary.Added + cmp.Summary.Removed + cmp.Summary.Modified
	if max := maxInt(cmp.Summary.TotalRecordsFrom, cmp.Summary.TotalRecordsTo); max > 0 {
		cmp.Summary.ChangePercentage = float64(changed) / float64(max) * 100
	}
	if cmp.Summary.Modified > 0 {
		cmp.Statistics.AverageFieldChangesPerRecord =
			float64(cmp.Statistics.TotalFieldChanges) / float64(cmp.Summary.Modified)
	}
	cmp.Statistics.TopChangedFields = rankFields(fieldCounts)

	return cmp, nil
}

// indexByKey builds the key -> record mapping for one snapshot. Keys must
// be unique within a snapshot.
func indexByKey(records []record.Record, keyField string, version int) (map[string]record.Record, error) {
	byKey := make(map[string]record.Record, len(records))
	for _, r := range records {
		key := r.Key(keyField)
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate key %q for field %q in v%d: %w",
				key, keyField, version, ErrMalformedSnapshot)
		}
		byKey[key] = r
	}
	return byKey, nil
}

// compareFields diffs every field present in either record. A field absent
// on one side compares as the empty sentinel, so absent-vs-null and
// absent-vs-"" are not changes.
func compareFields(before, after record.Record) []FieldChange {
	fields := mapset.NewThreadUnsafeSet[string]()
	fields.Append(before.Fields()...)
	fields.Append(after.Fields()...)

	names := fields.ToSlice()
	sort.Strings(names)

	var changes []FieldChange
	for _, name := range names {
		oldV, inBefore := before[name]
		if !inBefore {
			oldV = record.Null()
		}
		newV, inAfter := after[name]
		if !inAfter {
			newV = record.Null()
		}
		if record.Equal(oldV, newV) {
			continue
		}

		changeType := ChangeModified
		valueType := newV.Kind()
		switch {
		case !inBefore:
			changeType = ChangeAdded
		case !inAfter:
			changeType = ChangeRemoved
			valueType = oldV.Kind()
		}

		changes = append(changes, FieldChange{
			Field:           name,
			OldValue:        oldV,
			NewValue:        newV,
			ChangeType:      changeType,
			ValueType:       valueType,
			DisplayOldValue: oldV.Display(),
			DisplayNewValue: newV.Display(),
		})
	}
	return changes
}

// rankFields orders field names by change count descending, ties broken by
// name ascending, capped at topFieldsLimit.
func rankFields(counts map[string]int) []FieldCount {
	ranked := make([]FieldCount, 0, len(counts))
	for f, c := range counts {
		ranked = append(ranked, FieldCount{Field: f, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Field < ranked[j].Field
	})
	if len(ranked) > topFieldsLimit {
		ranked = ranked[:topFieldsLimit]
	}
	return ranked
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
