package fastimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkSpaceFreshIsMonotonic(t *testing.T) {
	ms := NewMarkSpace()
	a := ms.Fresh()
	b := ms.Fresh()
	c := ms.Fresh()
	assert.Equal(t, Mark(1), a)
	assert.Equal(t, Mark(2), b)
	assert.Equal(t, Mark(3), c)
}

func TestMarkSpaceTranslateIdentityWhenUnrenamed(t *testing.T) {
	ms := NewMarkSpace()
	assert.Equal(t, Mark(7), ms.Translate(7))
}

func TestMarkSpaceRecordRenameSingleHop(t *testing.T) {
	ms := NewMarkSpace()
	ms.RecordRename(1, 2, false)
	assert.Equal(t, Mark(2), ms.Translate(1))
	assert.Equal(t, Mark(2), ms.Translate(2))
}

func TestMarkSpaceRecordRenameCollapsesChain(t *testing.T) {
	ms := NewMarkSpace()
	// 1 -> 2, then 2 -> 3 with transitive collapsing: any earlier
	// reference to 1 must resolve straight to 3, not dangle at 2.
	ms.RecordRename(1, 2, true)
	ms.RecordRename(2, 3, true)
	assert.Equal(t, Mark(3), ms.Translate(1))
	assert.Equal(t, Mark(3), ms.Translate(2))
}

func TestMarkSpaceRecordRenameToSkipped(t *testing.T) {
	ms := NewMarkSpace()
	ms.RecordRename(5, Skipped, false)
	assert.Equal(t, Skipped, ms.Translate(5))
}

func TestMarkSpaceRaiseFloor(t *testing.T) {
	ms := NewMarkSpace()
	ms.RaiseFloor(100)
	assert.Equal(t, Mark(101), ms.Fresh())
	ms.RaiseFloor(50) // lower floor is a no-op
	assert.Equal(t, Mark(102), ms.Fresh())
}

func TestMarkSpaceCount(t *testing.T) {
	ms := NewMarkSpace()
	ms.Fresh()
	ms.Fresh()
	assert.Equal(t, Mark(2), ms.Count())
}
