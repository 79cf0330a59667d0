package fastimport

import (
	"bytes"
	"io"
	"strconv"
)

// Parser recognizes element headers, parses fields, and reads
// exact-length data payloads from one fast-export stream (spec.md
// §4.4). It translates every inbound mark reference through the shared
// MarkSpace, applying the parser's stream offset first.
//
// One Parser instance covers one input stream; the multi-stream driver
// (package rewrite) creates a fresh Parser per stream over the same
// MarkSpace and calls SetOffset/SetStreamNumber before reading from it.
type Parser struct {
	br           *byteReader
	ms           *MarkSpace
	offset       Mark
	streamNumber int

	line    []byte
	started bool
}

// NewParser returns a Parser reading fast-export elements from r,
// resolving and recording mark references against ms.
func NewParser(r io.Reader, ms *MarkSpace) *Parser {
	return &Parser{br: newByteReader(r), ms: ms}
}

// SetOffset sets the value added to every raw `:N` reference read from
// this stream before it is looked up in the shared MarkSpace, so marks
// from distinct spliced streams cannot collide (spec.md §4.7).
func (p *Parser) SetOffset(offset Mark) { p.offset = offset }

// SetStreamNumber tags every Commit this Parser produces with n, used
// by the driver's merge-extras workaround to tell "this stream"
// commits from earlier ones.
func (p *Parser) SetStreamNumber(n int) { p.streamNumber = n }

func (p *Parser) advance() error {
	line, err := p.br.readLine()
	if err != nil {
		if err == io.EOF {
			p.line = nil
			return nil
		}
		return err
	}
	p.line = line
	return nil
}

func (p *Parser) atBlankLine() bool {
	return len(p.line) == 1 && p.line[0] == '\n'
}

func (p *Parser) skipBlankLine() error {
	if p.atBlankLine() {
		return p.advance()
	}
	return nil
}

// ReadElement reads and returns the next element from the stream. It
// returns io.EOF when the stream is exhausted.
func (p *Parser) ReadElement() (Element, error) {
	if !p.started {
		p.started = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(p.line) == 0 {
		return nil, io.EOF
	}

	firstLine := p.line
	if nl := bytes.IndexByte(firstLine, '\n'); nl >= 0 {
		firstLine = firstLine[:nl]
	}
	token := firstLine
	if sp := bytes.IndexByte(firstLine, ' '); sp >= 0 {
		token = firstLine[:sp]
	}

	switch string(token) {
	case "blob":
		return p.parseBlob()
	case "reset":
		return p.parseReset()
	case "commit":
		return p.parseCommit()
	case "tag":
		return p.parseTag()
	case "progress":
		return p.parseProgress()
	case "checkpoint":
		return p.parseCheckpoint()
	default:
		return nil, newError(UnknownElement, "", string(firstLine))
	}
}

func (p *Parser) parseBlob() (*Blob, error) {
	if err := p.advance(); err != nil { // consume "blob\n"
		return nil, err
	}
	rawID, hasMark, err := p.parseOptionalMark()
	if err != nil {
		return nil, err
	}
	data, err := p.parseData("blob")
	if err != nil {
		return nil, err
	}
	blob := newBlob(p.ms, data)
	if hasMark {
		blob.oldID = rawID
		p.ms.RecordRename(rawID, blob.id, false)
	}
	return blob, nil
}

func (p *Parser) parseReset() (*Reset, error) {
	ref, err := p.parseRefLine("reset")
	if err != nil {
		return nil, err
	}
	fromRef, _, err := p.parseOptionalBaseRef("from :")
	if err != nil {
		return nil, err
	}
	if err := p.skipBlankLine(); err != nil {
		return nil, err
	}
	return &Reset{Ref: ref, FromRef: fromRef}, nil
}

func (p *Parser) parseCommit() (*Commit, error) {
	branch, err := p.parseRefLine("commit")
	if err != nil {
		return nil, err
	}
	rawID, hasMark, err := p.parseOptionalMark()
	if err != nil {
		return nil, err
	}

	var author Person
	haveAuthor := false
	if bytes.HasPrefix(p.line, []byte("author ")) {
		author, err = p.parseUser("author")
		if err != nil {
			return nil, err
		}
		haveAuthor = true
	}
	committer, err := p.parseUser("committer")
	if err != nil {
		return nil, err
	}
	if !haveAuthor {
		author = committer
	}

	msg, err := p.parseData("commit")
	if err != nil {
		return nil, err
	}

	var parents []Mark
	fromRef, hasFrom, err := p.parseOptionalBaseRef("from :")
	if err != nil {
		return nil, err
	}
	if hasFrom {
		parents = append(parents, fromRef)
	}
	for {
		mergeRef, hasMerge, err := p.parseOptionalBaseRef("merge :")
		if err != nil {
			return nil, err
		}
		if !hasMerge {
			break
		}
		parents = append(parents, mergeRef)
	}

	var fileChanges []FileChange
	hadAny := false
	for {
		fc, matched, err := p.parseOptionalFileChange()
		if err != nil {
			return nil, err
		}
		if !matched {
			break
		}
		hadAny = true
		if fc != nil {
			fileChanges = append(fileChanges, *fc)
		}
	}
	if err := p.skipBlankLine(); err != nil {
		return nil, err
	}

	commit := newCommit(p.ms)
	commit.Branch = branch
	commit.Author = author
	commit.Committer = committer
	commit.Message = msg
	commit.FileChanges = fileChanges
	commit.Parents = parents
	commit.StreamNumber = p.streamNumber
	commit.hadFileChanges = hadAny
	if hasMark {
		commit.oldID = rawID
		p.ms.RecordRename(rawID, commit.id, false)
	}
	return commit, nil
}

func (p *Parser) parseTag() (*Tag, error) {
	ref, err := p.parseRefLine("tag")
	if err != nil {
		return nil, err
	}
	fromRef, hasFrom, err := p.parseOptionalBaseRef("from :")
	if err != nil {
		return nil, err
	}
	if !hasFrom {
		return nil, newError(MalformedStream, "tag", "missing from line")
	}
	tagger, err := p.parseUser("tagger")
	if err != nil {
		return nil, err
	}
	msg, err := p.parseData("tag")
	if err != nil {
		return nil, err
	}
	return &Tag{Ref: ref, FromRef: fromRef, Tagger: tagger, Message: msg}, nil
}

func (p *Parser) parseProgress() (*Progress, error) {
	rest := bytes.TrimPrefix(p.line, []byte("progress"))
	rest = bytes.TrimPrefix(rest, []byte(" "))
	msg := bytes.TrimSuffix(rest, []byte("\n"))
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.skipBlankLine(); err != nil {
		return nil, err
	}
	return &Progress{Message: msg}, nil
}

func (p *Parser) parseCheckpoint() (*Checkpoint, error) {
	if err := p.advance(); err != nil { // consume "checkpoint\n"
		return nil, err
	}
	if err := p.skipBlankLine(); err != nil {
		return nil, err
	}
	return &Checkpoint{}, nil
}

// parseRefLine parses `name SP <ref> LF` and returns ref, consuming the
// line. name is the bare keyword, e.g. "commit", "reset", "tag".
func (p *Parser) parseRefLine(name string) ([]byte, error) {
	prefix := append([]byte(name), ' ')
	if !bytes.HasPrefix(p.line, prefix) {
		return nil, newError(MalformedStream, name, string(p.line))
	}
	ref := bytes.TrimSuffix(p.line[len(prefix):], []byte("\n"))
	if err := p.advance(); err != nil {
		return nil, err
	}
	return ref, nil
}

// parseUser parses `tag SP name SP "<" email ">" SP date LF`.
func (p *Parser) parseUser(tag string) (Person, error) {
	prefix := append([]byte(tag), ' ')
	if !bytes.HasPrefix(p.line, prefix) {
		return Person{}, newError(MalformedStream, tag, string(p.line))
	}
	rest := bytes.TrimSuffix(p.line[len(prefix):], []byte("\n"))
	lt := bytes.IndexByte(rest, '<')
	gt := bytes.LastIndexByte(rest, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Person{}, newError(MalformedStream, tag, string(p.line))
	}
	name := bytes.TrimRight(rest[:lt], " ")
	email := rest[lt+1 : gt]
	dateStart := gt + 1
	for dateStart < len(rest) && rest[dateStart] == ' ' {
		dateStart++
	}
	date := rest[dateStart:]
	if err := p.advance(); err != nil {
		return Person{}, err
	}
	return Person{Name: name, Email: email, Date: Date{Raw: date}}, nil
}

// parseData parses `"data" SP DECIMAL LF <DECIMAL bytes> LF?`.
func (p *Parser) parseData(element string) ([]byte, error) {
	if !bytes.HasPrefix(p.line, []byte("data ")) {
		return nil, newError(MalformedStream, element, string(p.line))
	}
	rest := bytes.TrimSuffix(p.line[len("data "):], []byte("\n"))
	n, err := strconv.Atoi(string(rest))
	if err != nil {
		return nil, wrapError(MalformedStream, element, err)
	}
	payload, err := p.br.readExact(n)
	if err != nil {
		return nil, &Error{Kind: SizeMismatch, Element: element, Detail: "short data payload", Err: err}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.skipBlankLine(); err != nil {
		return nil, err
	}
	return payload, nil
}

// parseOptionalMark parses an optional `mark :N LF` line.
func (p *Parser) parseOptionalMark() (Mark, bool, error) {
	if !bytes.HasPrefix(p.line, []byte("mark :")) {
		return 0, false, nil
	}
	rest := bytes.TrimSuffix(p.line[len("mark :"):], []byte("\n"))
	n, err := strconv.Atoi(string(rest))
	if err != nil {
		return 0, false, wrapError(BadMark, "mark", err)
	}
	if err := p.advance(); err != nil {
		return 0, false, err
	}
	return Mark(n) + p.offset, true, nil
}

// parseOptionalBaseRef parses an optional `prefix N LF` line (prefix is
// e.g. "from :" or "merge :") and returns the translated mark.
func (p *Parser) parseOptionalBaseRef(prefix string) (Mark, bool, error) {
	if !bytes.HasPrefix(p.line, []byte(prefix)) {
		return 0, false, nil
	}
	rest := bytes.TrimSuffix(p.line[len(prefix):], []byte("\n"))
	n, err := strconv.Atoi(string(rest))
	if err != nil {
		return 0, false, wrapError(BadMark, "ref", err)
	}
	if err := p.advance(); err != nil {
		return 0, false, err
	}
	raw := Mark(n) + p.offset
	return p.ms.Translate(raw), true, nil
}

// parseOptionalFileChange parses one `M`/`D`/`deleteall` line. matched
// reports whether a file-change line was present at all (even if fc is
// nil because its blob was dropped); callers must loop on matched, not
// on fc being non-nil, to correctly count "had file-changes" for the
// empty-commit policy (spec.md §4.4 rule 4, §4.5).
func (p *Parser) parseOptionalFileChange() (fc *FileChange, matched bool, err error) {
	switch {
	case bytes.HasPrefix(p.line, []byte("M ")):
		rest := bytes.TrimSuffix(p.line[len("M "):], []byte("\n"))
		parts := bytes.SplitN(rest, []byte(" "), 3)
		if len(parts) != 3 || len(parts[1]) == 0 || parts[1][0] != ':' {
			return nil, true, newError(MalformedStream, "filechange", string(p.line))
		}
		mode := parts[0]
		n, err := strconv.Atoi(string(parts[1][1:]))
		if err != nil {
			return nil, true, wrapError(BadMark, "filechange", err)
		}
		raw := Mark(n) + p.offset
		blobID := p.ms.Translate(raw)
		path, err := maybeDequote(parts[2])
		if err != nil {
			return nil, true, wrapError(MalformedStream, "filechange", err)
		}
		if err := p.advance(); err != nil {
			return nil, true, err
		}
		if blobID == Skipped {
			return nil, true, nil
		}
		return &FileChange{Op: Modify, Path: path, Mode: mode, Blob: blobID}, true, nil

	case bytes.HasPrefix(p.line, []byte("D ")):
		rawPath := bytes.TrimSuffix(p.line[len("D "):], []byte("\n"))
		path, err := maybeDequote(rawPath)
		if err != nil {
			return nil, true, wrapError(MalformedStream, "filechange", err)
		}
		if err := p.advance(); err != nil {
			return nil, true, err
		}
		return &FileChange{Op: Delete, Path: path}, true, nil

	case bytes.Equal(bytes.TrimSuffix(p.line, []byte("\n")), []byte("deleteall")):
		if err := p.advance(); err != nil {
			return nil, true, err
		}
		return &FileChange{Op: DeleteAll}, true, nil

	default:
		return nil, false, nil
	}
}

func maybeDequote(path []byte) ([]byte, error) {
	if len(path) > 0 && path[0] == '"' {
		return dequotePath(path)
	}
	return path, nil
}
