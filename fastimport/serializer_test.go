package fastimport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parseAll(t *testing.T, ms *MarkSpace, stream string) []Element {
	t.Helper()
	p := NewParser(strings.NewReader(stream), ms)
	var out []Element
	for {
		el, err := p.ReadElement()
		if err != nil {
			break
		}
		out = append(out, el)
	}
	return out
}

func TestSerializerRoundTripsBlobAndCommit(t *testing.T) {
	ms := NewMarkSpace()
	elements := parseAll(t, ms, sampleStream)
	assert.Len(t, elements, 6)

	var buf bytes.Buffer
	s := NewSerializer(&buf, ms)
	for _, el := range elements {
		assert.NoError(t, s.WriteElement(el))
	}
	assert.NoError(t, s.Flush())

	out := buf.String()
	assert.Contains(t, out, "blob\nmark :1\ndata 6\nhello\n")
	assert.Contains(t, out, "commit refs/heads/main\nmark :2\n")
	assert.Contains(t, out, "M 100644 :1 file.txt\n")
	assert.Contains(t, out, "tag v1.0\nfrom :2\n")
}

func TestSerializerOmitsModifyOfSkippedBlob(t *testing.T) {
	ms := NewMarkSpace()
	blob := newBlob(ms, []byte("x"))
	blob.oldID = blob.id
	blob.Skip()

	commit := newCommit(ms)
	commit.Branch = []byte("refs/heads/main")
	commit.Committer = Person{Name: []byte("A"), Email: []byte("a@x.com"), Date: NewDate(1, "+0000")}
	commit.Author = commit.Committer
	commit.Message = []byte("msg\n")
	commit.FileChanges = []FileChange{
		{Op: Modify, Path: []byte("dropped.bin"), Mode: []byte("100644"), Blob: blob.ID()},
		{Op: Delete, Path: []byte("other.txt")},
	}

	var buf bytes.Buffer
	s := NewSerializer(&buf, ms)
	assert.NoError(t, s.WriteCommit(commit))
	assert.NoError(t, s.Flush())

	out := buf.String()
	assert.NotContains(t, out, "dropped.bin")
	assert.Contains(t, out, "D other.txt\n")
}

func TestSerializerQuotesUnsafePaths(t *testing.T) {
	ms := NewMarkSpace()
	commit := newCommit(ms)
	commit.Branch = []byte("refs/heads/main")
	commit.Committer = Person{Name: []byte("A"), Email: []byte("a@x.com"), Date: NewDate(1, "+0000")}
	commit.Author = commit.Committer
	commit.Message = []byte("msg\n")
	commit.FileChanges = []FileChange{
		{Op: Delete, Path: []byte(`a b"c`)},
	}

	var buf bytes.Buffer
	s := NewSerializer(&buf, ms)
	assert.NoError(t, s.WriteCommit(commit))
	assert.NoError(t, s.Flush())

	out := buf.String()
	assert.Contains(t, out, `D "a b\"c"`+"\n")
}

func TestSerializerOmitsFromLineForSkippedParent(t *testing.T) {
	ms := NewMarkSpace()
	root := newCommit(ms)
	root.oldID = root.id
	root.Skip(0) // no designated successor: references collapse to Skipped

	child := newCommit(ms)
	child.Branch = []byte("refs/heads/main")
	child.Committer = Person{Name: []byte("A"), Email: []byte("a@x.com"), Date: NewDate(1, "+0000")}
	child.Author = child.Committer
	child.Message = []byte("msg\n")
	child.Parents = []Mark{root.ID()}

	var buf bytes.Buffer
	s := NewSerializer(&buf, ms)
	assert.NoError(t, s.WriteCommit(child))
	assert.NoError(t, s.Flush())

	assert.NotContains(t, buf.String(), "from")
}

func TestWriteElementSkipsAlreadyEmittedOrSkipped(t *testing.T) {
	ms := NewMarkSpace()
	blob := newBlob(ms, []byte("x"))
	var buf bytes.Buffer
	s := NewSerializer(&buf, ms)
	assert.NoError(t, s.WriteElement(blob))
	firstLen := buf.Len()
	assert.NoError(t, s.WriteElement(blob)) // already Emitted, no-op
	assert.Equal(t, firstLen, buf.Len())

	blob2 := newBlob(ms, []byte("y"))
	blob2.Skip()
	assert.NoError(t, s.WriteElement(blob2)) // Skipped, no-op
	assert.Equal(t, firstLen, buf.Len())
}
