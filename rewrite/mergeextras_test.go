package rewrite

import (
	"strings"
	"testing"

	"github.com/rcowham/gitfastrewrite/fastimport"
	"github.com/stretchr/testify/assert"
)

// buildCommit parses one minimal commit against ms (so it gets a real,
// unique mark) tagged with streamNumber, then overwrites its parents so
// tests can shape arbitrary merge topologies without hand-rolling a
// full fast-export stream per case.
func buildCommit(ms *fastimport.MarkSpace, streamNumber int, parents []fastimport.Mark) *fastimport.Commit {
	const text = "commit refs/heads/main\n" +
		"committer A U Thor <a@example.com> 1 +0000\n" +
		"data 1\n" +
		"x\n" +
		"\n"
	p := fastimport.NewParser(strings.NewReader(text), ms)
	p.SetStreamNumber(streamNumber)
	el, err := p.ReadElement()
	if err != nil {
		panic(err)
	}
	c := el.(*fastimport.Commit)
	c.Parents = parents
	return c
}

func TestApplyMergeExtrasSameStreamInheritsFirstParentChain(t *testing.T) {
	f := NewFilter(testLogger(), Options{DryRun: true}, Callbacks{})
	f.shared.streamNumber = 1

	a := buildCommit(f.shared.ms, 1, nil)
	f.shared.extras[a.ID()] = []fastimport.FileChange{{Op: fastimport.Delete, Path: []byte("old.txt")}}

	b := buildCommit(f.shared.ms, 1, []fastimport.Mark{a.ID()})
	f.applyMergeExtras(b)

	assert.Equal(t, []fastimport.FileChange{{Op: fastimport.Delete, Path: []byte("old.txt")}}, f.shared.extras[b.ID()])
	// b's own file-changes are untouched: only merge commits fold extras in.
	assert.Empty(t, b.FileChanges)
}

func TestApplyMergeExtrasMergeFoldsInMergeParentExtras(t *testing.T) {
	f := NewFilter(testLogger(), Options{DryRun: true}, Callbacks{})
	f.shared.streamNumber = 1

	other := buildCommit(f.shared.ms, 1, nil)
	f.shared.extras[other.ID()] = []fastimport.FileChange{{Op: fastimport.Modify, Path: []byte("carried.txt"), Mode: []byte("100644"), Blob: 1}}

	base := buildCommit(f.shared.ms, 1, nil)
	merge := buildCommit(f.shared.ms, 1, []fastimport.Mark{base.ID(), other.ID()})

	f.applyMergeExtras(merge)

	assert.Len(t, merge.FileChanges, 1)
	assert.Equal(t, "carried.txt", string(merge.FileChanges[0].Path))
}

func TestApplyMergeExtrasCrossStreamSnapshotsOwnChangesPreFold(t *testing.T) {
	f := NewFilter(testLogger(), Options{DryRun: true}, Callbacks{})
	f.shared.streamNumber = 2 // current run is stream 2

	held := buildCommit(f.shared.ms, 1, nil) // parsed during stream 1, emitted now
	held.FileChanges = []fastimport.FileChange{{Op: fastimport.Modify, Path: []byte("native.txt"), Mode: []byte("100644"), Blob: 1}}

	f.applyMergeExtras(held)

	assert.Equal(t, held.FileChanges, f.shared.extras[held.ID()])
}

func TestApplyMergeExtrasSkipsSkippedCommit(t *testing.T) {
	f := NewFilter(testLogger(), Options{DryRun: true}, Callbacks{})
	f.shared.streamNumber = 1
	c := buildCommit(f.shared.ms, 1, nil)
	c.Skip(0)

	f.applyMergeExtras(c)

	_, ok := f.shared.extras[c.ID()]
	assert.False(t, ok)
}

func TestFilterChainSharesMarkSpaceViaSetOutput(t *testing.T) {
	out := NewFilter(testLogger(), Options{DryRun: true}, Callbacks{})
	assert.NoError(t, out.ImporterOnly())

	in := NewFilter(testLogger(), Options{}, Callbacks{})
	in.SetOutput(out)

	assert.Same(t, out.shared, in.shared)
}
