package fastimport

import (
	"bufio"
	"fmt"
	"io"
)

// Serializer writes elements back out in fast-import grammar (spec.md
// §4.6). Every emitted mark is the element's freshly-allocated ID;
// every emitted reference is translated through the shared MarkSpace
// at the moment of writing, so a reference is always correct even if
// the element it names was renamed after it was first parsed.
type Serializer struct {
	w  *bufio.Writer
	ms *MarkSpace
}

// NewSerializer returns a Serializer writing fast-import elements to w.
func NewSerializer(w io.Writer, ms *MarkSpace) *Serializer {
	return &Serializer{w: bufio.NewWriterSize(w, 64*1024), ms: ms}
}

// Flush flushes any buffered output to the underlying writer.
func (s *Serializer) Flush() error { return s.w.Flush() }

// WriteBlob writes b and marks it Emitted.
func (s *Serializer) WriteBlob(b *Blob) error {
	if _, err := fmt.Fprintf(s.w, "blob\nmark :%d\ndata %d\n", b.id, len(b.Data)); err != nil {
		return err
	}
	if _, err := s.w.Write(b.Data); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	b.state = Emitted
	return nil
}

// WriteReset writes r and marks it Emitted.
func (s *Serializer) WriteReset(r *Reset) error {
	if _, err := fmt.Fprintf(s.w, "reset %s\n", r.Ref); err != nil {
		return err
	}
	if r.FromRef != 0 {
		target := s.ms.Translate(r.FromRef)
		if target != Skipped {
			if _, err := fmt.Fprintf(s.w, "from :%d\n", target); err != nil {
				return err
			}
		}
	}
	r.state = Emitted
	return nil
}

// WriteCommit writes c, including its (possibly merge-extras-augmented)
// file-changes, and marks it Emitted.
func (s *Serializer) WriteCommit(c *Commit) error {
	if _, err := fmt.Fprintf(s.w, "commit %s\nmark :%d\n", c.Branch, c.id); err != nil {
		return err
	}
	if err := s.writePerson("author", c.Author); err != nil {
		return err
	}
	if err := s.writePerson("committer", c.Committer); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data %d\n", len(c.Message)); err != nil {
		return err
	}
	if _, err := s.w.Write(c.Message); err != nil {
		return err
	}
	if !hasTrailingNewline(c.Message) {
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}

	if from := c.FirstParent(); from != 0 {
		target := s.ms.Translate(from)
		if target != Skipped {
			if _, err := fmt.Fprintf(s.w, "from :%d\n", target); err != nil {
				return err
			}
		}
	}
	for _, p := range c.MergeParents() {
		target := s.ms.Translate(p)
		if target != Skipped {
			if _, err := fmt.Fprintf(s.w, "merge :%d\n", target); err != nil {
				return err
			}
		}
	}
	for i := range c.FileChanges {
		if err := s.writeFileChange(&c.FileChanges[i]); err != nil {
			return err
		}
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	c.state = Emitted
	return nil
}

func hasTrailingNewline(b []byte) bool {
	return len(b) > 0 && b[len(b)-1] == '\n'
}

func (s *Serializer) writePerson(tag string, p Person) error {
	_, err := fmt.Fprintf(s.w, "%s %s <%s> %s\n", tag, p.Name, p.Email, p.Date.Raw)
	return err
}

// writeFileChange writes one FileChange. A Modify whose blob reference
// now translates to the skipped sentinel is omitted entirely (spec.md
// §4.6 rule 3 — the blob was already dropped at parse time).
func (s *Serializer) writeFileChange(fc *FileChange) error {
	switch fc.Op {
	case Modify:
		target := s.ms.Translate(fc.Blob)
		if target == Skipped {
			return nil
		}
		_, err := fmt.Fprintf(s.w, "M %s :%d %s\n", fc.Mode, target, encodePath(fc.Path))
		return err
	case Delete:
		_, err := fmt.Fprintf(s.w, "D %s\n", encodePath(fc.Path))
		return err
	case DeleteAll:
		_, err := s.w.WriteString("deleteall\n")
		return err
	default:
		return fmt.Errorf("fastimport: unhandled file-change op %v", fc.Op)
	}
}

func encodePath(path []byte) []byte {
	if needsQuoting(path) {
		return quotePath(path)
	}
	return path
}

// WriteTag writes t and marks it Emitted.
func (s *Serializer) WriteTag(t *Tag) error {
	if _, err := fmt.Fprintf(s.w, "tag %s\n", t.Ref); err != nil {
		return err
	}
	target := s.ms.Translate(t.FromRef)
	if _, err := fmt.Fprintf(s.w, "from :%d\n", target); err != nil {
		return err
	}
	if err := s.writePerson("tagger", t.Tagger); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data %d\n", len(t.Message)); err != nil {
		return err
	}
	if _, err := s.w.Write(t.Message); err != nil {
		return err
	}
	if !hasTrailingNewline(t.Message) {
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	t.state = Emitted
	return nil
}

// WriteProgress writes p and marks it Emitted.
func (s *Serializer) WriteProgress(p *Progress) error {
	if _, err := fmt.Fprintf(s.w, "progress %s\n", p.Message); err != nil {
		return err
	}
	p.state = Emitted
	return nil
}

// WriteCheckpoint writes c and marks it Emitted.
func (s *Serializer) WriteCheckpoint(c *Checkpoint) error {
	if _, err := s.w.WriteString("checkpoint\n"); err != nil {
		return err
	}
	c.state = Emitted
	return nil
}

// WriteElement dispatches to the type-specific Write* method. Elements
// already Emitted or SkippedState are not written again.
func (s *Serializer) WriteElement(e Element) error {
	switch v := e.(type) {
	case *Blob:
		if v.state != Pending {
			return nil
		}
		return s.WriteBlob(v)
	case *Commit:
		if v.state != Pending {
			return nil
		}
		return s.WriteCommit(v)
	case *Tag:
		if v.state != Pending {
			return nil
		}
		return s.WriteTag(v)
	case *Reset:
		if v.state != Pending {
			return nil
		}
		return s.WriteReset(v)
	case *Progress:
		if v.state != Pending {
			return nil
		}
		return s.WriteProgress(v)
	case *Checkpoint:
		if v.state != Pending {
			return nil
		}
		return s.WriteCheckpoint(v)
	default:
		return fmt.Errorf("fastimport: unknown element type %T", e)
	}
}
