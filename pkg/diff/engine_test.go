package diff

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

func customer(id string, email string, extra map[string]record.Value) record.Record {
	rec := record.Record{
		"id":    record.String(id),
		"email": record.String(email),
	}
	for k, v := range extra {
		rec[k] = v
	}
	return rec
}

func TestCompare_SelfComparisonIsUnchanged(t *testing.T) {
	records := []record.Record{
		customer("c-1", "a@example.com", nil),
		customer("c-2", "b@example.com", map[string]record.Value{"age": record.Number(30)}),
		customer("c-3", "c@example.com", nil),
	}
	set := VersionedSet{Version: 2, Records: records}

	cmp, err := Compare(set, set, "id")
	require.NoError(t, err)

	assert.Equal(t, 0, cmp.Summary.Added)
	assert.Equal(t, 0, cmp.Summary.Removed)
	assert.Equal(t, 0, cmp.Summary.Modified)
	assert.Equal(t, 3, cmp.Summary.Unchanged)
	assert.Equal(t, 0.0, cmp.Summary.ChangePercentage)
	assert.Equal(t, 0, cmp.Statistics.TotalFieldChanges)
	assert.Equal(t, 0.0, cmp.Statistics.AverageFieldChangesPerRecord)
}

func TestCompare_EmptyBothSides(t *testing.T) {
	cmp, err := Compare(VersionedSet{Version: 1}, VersionedSet{Version: 2}, "id")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmp.Summary.ChangePercentage)
	assert.Empty(t, cmp.Changes)
}

func TestCompare_ClassifiesRecords(t *testing.T) {
	from := VersionedSet{Version: 1, Records: []record.Record{
		customer("c-1", "a@example.com", nil),
		customer("c-2", "b@example.com", nil),
		customer("c-3", "c@example.com", nil),
	}}
	to := VersionedSet{Version: 2, Records: []record.Record{
		customer("c-1", "a@example.com", nil),           // unchanged
		customer("c-2", "b2@example.com", nil),          // modified
		customer("c-4", "d@example.com", nil),           // added
	}}

	cmp, err := Compare(from, to, "id")
	require.NoError(t, err)

	assert.Equal(t, 1, cmp.Summary.Added)
	assert.Equal(t, 1, cmp.Summary.Removed)
	assert.Equal(t, 1, cmp.Summary.Modified)
	assert.Equal(t, 1, cmp.Summary.Unchanged)

	// added + removed + modified + unchanged covers each distinct key once.
	assert.Len(t, cmp.Changes, 4)

	// Changes are sorted by key.
	byKey := map[string]RecordChange{}
	var keys []string
	for _, c := range cmp.Changes {
		byKey[c.Key] = c
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"c-1", "c-2", "c-3", "c-4"}, keys)

	assert.Equal(t, ChangeUnchanged, byKey["c-1"].ChangeType)
	assert.Equal(t, ChangeModified, byKey["c-2"].ChangeType)
	assert.Equal(t, ChangeRemoved, byKey["c-3"].ChangeType)
	assert.Equal(t, ChangeAdded, byKey["c-4"].ChangeType)

	require.Len(t, byKey["c-2"].FieldChanges, 1)
	fc := byKey["c-2"].FieldChanges[0]
	assert.Equal(t, "email", fc.Field)
	assert.Equal(t, ChangeModified, fc.ChangeType)
	assert.Equal(t, record.KindString, fc.ValueType)
	assert.Equal(t, "b@example.com", fc.DisplayOldValue)
	assert.Equal(t, "b2@example.com", fc.DisplayNewValue)
}

func TestCompare_FieldAddedAndRemoved(t *testing.T) {
	from := VersionedSet{Version: 1, Records: []record.Record{
		{"id": record.String("r-1"), "legacy": record.String("old")},
	}}
	to := VersionedSet{Version: 2, Records: []record.Record{
		{"id": record.String("r-1"), "score": record.Number(9.5)},
	}}

	cmp, err := Compare(from, to, "id")
	require.NoError(t, err)
	require.Equal(t, 1, cmp.Summary.Modified)

	changes := cmp.Changes[0].FieldChanges
	require.Len(t, changes, 2)

	// Sorted by field name: legacy before score.
	assert.Equal(t, "legacy", changes[0].Field)
	assert.Equal(t, ChangeRemoved, changes[0].ChangeType)
	assert.Equal(t, record.KindString, changes[0].ValueType)
	assert.Equal(t, "old", changes[0].DisplayOldValue)
	assert.Equal(t, "(empty)", changes[0].DisplayNewValue)

	assert.Equal(t, "score", changes[1].Field)
	assert.Equal(t, ChangeAdded, changes[1].ChangeType)
	assert.Equal(t, record.KindNumber, changes[1].ValueType)
	assert.Equal(t, "(empty)", changes[1].DisplayOldValue)
	assert.Equal(t, "9.5", changes[1].DisplayNewValue)
}

func TestCompare_EmptySentinelsAreNotChanges(t *testing.T) {
	from := VersionedSet{Version: 1, Records: []record.Record{
		{"id": record.String("r-1"), "note": record.Null(), "alt": record.String("")},
	}}
	to := VersionedSet{Version: 2, Records: []record.Record{
		{"id": record.String("r-1"), "alt": record.Null()},
	}}

	cmp, err := Compare(from, to, "id")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp.Summary.Unchanged, "null, empty string, and absent are the same empty sentinel")
	assert.Equal(t, 0, cmp.Summary.Modified)
}

func TestCompare_SwappingArgumentsSwapsDirections(t *testing.T) {
	a := VersionedSet{Version: 1, Records: []record.Record{
		customer("c-1", "a@example.com", nil),
		customer("c-2", "b@example.com", nil),
	}}
	b := VersionedSet{Version: 2, Records: []record.Record{
		customer("c-2", "b2@example.com", nil),
		customer("c-3", "c@example.com", nil),
	}}

	ab, err := Compare(a, b, "id")
	require.NoError(t, err)
	ba, err := Compare(b, a, "id")
	require.NoError(t, err)

	assert.Equal(t, ab.Summary.Added, ba.Summary.Removed)
	assert.Equal(t, ab.Summary.Removed, ba.Summary.Added)
	assert.Equal(t, ab.Summary.Modified, ba.Summary.Modified)
	assert.Equal(t, ab.Summary.Unchanged, ba.Summary.Unchanged)
	assert.Equal(t, ab.Summary.ChangePercentage, ba.Summary.ChangePercentage)

	// Field-level displays swap too.
	var abFC, baFC *FieldChange
	for _, c := range ab.Changes {
		if c.ChangeType == ChangeModified {
			abFC = &c.FieldChanges[0]
		}
	}
	for _, c := range ba.Changes {
		if c.ChangeType == ChangeModified {
			baFC = &c.FieldChanges[0]
		}
	}
	require.NotNil(t, abFC)
	require.NotNil(t, baFC)
	assert.Equal(t, abFC.DisplayOldValue, baFC.DisplayNewValue)
	assert.Equal(t, abFC.DisplayNewValue, baFC.DisplayOldValue)
}

// The canonical pipeline-run scenario: v1 has 100 customers, v2 has 105.
// 5 new IDs, 3 changed emails, 2 removed IDs, 95 untouched.
func TestCompare_PipelineRunScenario(t *testing.T) {
	var fromRecords, toRecords []record.Record

	// 95 records untouched in both versions.
	for i := 0; i < 95; i++ {
		id := fmt.Sprintf("cust-%03d", i)
		fromRecords = append(fromRecords, customer(id, id+"@example.com", nil))
		toRecords = append(toRecords, customer(id, id+"@example.com", nil))
	}
	// 3 records with changed email.
	for i := 95; i < 98; i++ {
		id := fmt.Sprintf("cust-%03d", i)
		fromRecords = append(fromRecords, customer(id, id+"@example.com", nil))
		toRecords = append(toRecords, customer(id, id+"@new.example.com", nil))
	}
	// 2 records removed in v2.
	for i := 98; i < 100; i++ {
		id := fmt.Sprintf("cust-%03d", i)
		fromRecords = append(fromRecords, customer(id, id+"@example.com", nil))
	}
	// 5 new records in v2.
	for i := 100; i < 105; i++ {
		id := fmt.Sprintf("cust-%03d", i)
		toRecords = append(toRecords, customer(id, id+"@example.com", nil))
	}

	cmp, err := Compare(
		VersionedSet{Version: 1, Records: fromRecords},
		VersionedSet{Version: 2, Records: toRecords},
		"id",
	)
	require.NoError(t, err)

	assert.Equal(t, 100, cmp.Summary.TotalRecordsFrom)
	assert.Equal(t, 105, cmp.Summary.TotalRecordsTo)
	assert.Equal(t, 5, cmp.Summary.Added)
	assert.Equal(t, 2, cmp.Summary.Removed)
	assert.Equal(t, 3, cmp.Summary.Modified)
	assert.Equal(t, 95, cmp.Summary.Unchanged)
	assert.InDelta(t, 9.52, cmp.Summary.ChangePercentage, 0.01)

	assert.Equal(t, 3, cmp.Statistics.TotalFieldChanges)
	assert.Equal(t, 1.0, cmp.Statistics.AverageFieldChangesPerRecord)
	require.NotEmpty(t, cmp.Statistics.TopChangedFields)
	assert.Equal(t, "email", cmp.Statistics.TopChangedFields[0].Field)
	assert.Equal(t, 3, cmp.Statistics.TopChangedFields[0].Count)
}

func TestCompare_TopChangedFieldsOrdering(t *testing.T) {
	from := VersionedSet{Version: 1, Records: []record.Record{
		{"id": record.String("1"), "aa": record.String("x"), "bb": record.String("x"), "cc": record.String("x")},
		{"id": record.String("2"), "aa": record.String("x"), "bb": record.String("x")},
	}}
	to := VersionedSet{Version: 2, Records: []record.Record{
		{"id": record.String("1"), "aa": record.String("y"), "bb": record.String("y"), "cc": record.String("y")},
		{"id": record.String("2"), "aa": record.String("y"), "bb": record.String("y")},
	}}

	cmp, err := Compare(from, to, "id")
	require.NoError(t, err)

	// aa and bb changed twice, cc once; count ties break by name.
	require.Len(t, cmp.Statistics.TopChangedFields, 3)
	assert.Equal(t, FieldCount{Field: "aa", Count: 2}, cmp.Statistics.TopChangedFields[0])
	assert.Equal(t, FieldCount{Field: "bb", Count: 2}, cmp.Statistics.TopChangedFields[1])
	assert.Equal(t, FieldCount{Field: "cc", Count: 1}, cmp.Statistics.TopChangedFields[2])
}

func TestCompare_DuplicateKeysAreMalformed(t *testing.T) {
	dup := VersionedSet{Version: 3, Records: []record.Record{
		customer("c-1", "a@example.com", nil),
		customer("c-1", "b@example.com", nil),
	}}
	ok := VersionedSet{Version: 4, Records: []record.Record{
		customer("c-1", "a@example.com", nil),
	}}

	_, err := Compare(dup, ok, "id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)

	_, err = Compare(ok, dup, "id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestCompare_RequiresKeyField(t *testing.T) {
	_, err := Compare(VersionedSet{Version: 1}, VersionedSet{Version: 2}, "")
	require.Error(t, err)
}

func TestCompare_NumericEqualityAcrossTypes(t *testing.T) {
	from := VersionedSet{Version: 1, Records: []record.Record{
		{"id": record.String("r-1"), "qty": record.String("5")},
	}}
	to := VersionedSet{Version: 2, Records: []record.Record{
		{"id": record.String("r-1"), "qty": record.Number(5)},
	}}

	cmp, err := Compare(from, to, "id")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp.Summary.Unchanged, `"5" and 5 are numerically equal`)
}
