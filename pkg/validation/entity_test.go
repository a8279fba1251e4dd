package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	kind, key, ok := KindOf("m1", "c1")
	assert.True(t, ok)
	assert.Equal(t, ByID, kind)
	assert.Equal(t, "m1", key)

	kind, key, ok = KindOf("", "c1")
	assert.True(t, ok)
	assert.Equal(t, ByClientReferenceID, kind)
	assert.Equal(t, "c1", key)

	_, _, ok = KindOf("", "")
	assert.False(t, ok)
}

func TestGroupByTenant(t *testing.T) {
	batch := NewBatch(RequestContext{}, []record{{TenantID: "b"}, {TenantID: "a"}, {TenantID: "b"}})
	groups := GroupByTenant(batch.All())

	assert.Equal(t, []string{"a", "b"}, SortedKeys(groups))
	assert.Len(t, groups["b"], 2)
	assert.Equal(t, 2, groups["b"][1].Index)
}
