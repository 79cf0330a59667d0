package rewrite

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rcowham/gitfastrewrite/fastimport"
	"github.com/sirupsen/logrus"
)

// sharedState is the state a multi-stream driver holds across every
// Filter that participates in one logical rewrite: the mark namespace
// and the merge-extras table (spec.md §4.7). Two Filters chained with
// SetOutput share one sharedState; a standalone Filter gets its own.
type sharedState struct {
	ms           *fastimport.MarkSpace
	extras       map[fastimport.Mark][]fastimport.FileChange
	streamNumber int
}

func newSharedState() *sharedState {
	return &sharedState{
		ms:     fastimport.NewMarkSpace(),
		extras: make(map[fastimport.Mark][]fastimport.FileChange),
	}
}

type queuedInsert struct {
	el     fastimport.Element
	direct bool
}

// Filter is the host-facing handle spec.md §4.8 describes: one Options
// plus one Callbacks set, run over one upstream stream, writing into
// one downstream stream (its own, or another Filter's via SetOutput).
type Filter struct {
	logger *logrus.Logger
	opts   Options
	cb     Callbacks
	diag   DiagnosticFunc
	shared *sharedState

	ser          *fastimport.Serializer
	importerCmd  *exec.Cmd
	exporterCmd  *exec.Cmd
	closeTarget  io.Closer
	outputFilter *Filter // if set, emit() delegates to this filter's serializer

	insertQueue []queuedInsert
	finished    bool

	Stats Stats
}

// Stats counts what a Run processed, for progress reporting.
type Stats struct {
	Blobs       int
	Commits     int
	Tags        int
	Resets      int
	Skipped     int
	Checkpoints int
}

// NewFilter returns a Filter with its own private mark namespace and
// merge-extras table. Use SetOutput to chain filters sharing one.
func NewFilter(logger *logrus.Logger, opts Options, cb Callbacks) *Filter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Filter{logger: logger, opts: opts, cb: cb, shared: newSharedState()}
}

// SetDiagnostic installs an advisory sink for non-fatal observations
// (spec.md's ambient diagnostics, e.g. blob content sniffing).
func (f *Filter) SetDiagnostic(d DiagnosticFunc) { f.diag = d }

// SetOutput makes f write into out's downstream pipe instead of
// opening one of its own, and makes f use out's mark namespace and
// merge-extras table in place of its own (whatever f had recorded
// before is not carried over) — the multi-stream driver pattern
// (spec.md §4.7), grounded on splice_repos.py's `i1.set_output(out)`.
// Call out.ImporterOnly() first.
func (f *Filter) SetOutput(out *Filter) {
	f.outputFilter = out
	f.shared = out.shared
}

// ImporterOnly opens only the downstream importer, without spawning an
// exporter. Other filters can then SetOutput(f) to write into the same
// pipe. It returns no handle for writing to the importer directly, and
// elements queued with f.Insert are written only while a Run of f
// dispatches elements; Finish does not write them.
func (f *Filter) ImporterOnly() error {
	return f.openTarget(context.Background())
}

func (f *Filter) openTarget(ctx context.Context) error {
	if f.ser != nil {
		return nil
	}
	switch {
	case f.opts.DryRun:
		f.ser = fastimport.NewSerializer(io.Discard, f.shared.ms)
	case f.opts.TargetWriter != nil:
		f.ser = fastimport.NewSerializer(f.opts.TargetWriter, f.shared.ms)
		if c, ok := f.opts.TargetWriter.(io.Closer); ok {
			f.closeTarget = c
		}
	case f.opts.Target != "":
		stdin, cmd, err := spawnImporter(ctx, f.logger, &f.opts)
		if err != nil {
			return err
		}
		f.importerCmd = cmd
		f.ser = fastimport.NewSerializer(stdin, f.shared.ms)
		f.closeTarget = stdin
	default:
		f.ser = fastimport.NewSerializer(os.Stdout, f.shared.ms)
	}
	return nil
}

// Insert queues e to be serialized at the next safe boundary: right
// before the element whose callback called Insert. With direct=false e
// is itself dispatched through the callback pipeline first (it may
// skip or insert further elements of its own); with direct=true e
// bypasses callbacks entirely and is written as-is, for hosts that
// construct output elements themselves (spec.md §4.8).
func (f *Filter) Insert(e fastimport.Element, direct bool) {
	f.insertQueue = append(f.insertQueue, queuedInsert{el: e, direct: direct})
}

// Run reads one upstream stream to completion, dispatching every
// element through the callback pipeline and the empty-commit /
// merge-extras policies before emitting it.
func (f *Filter) Run(ctx context.Context) error {
	var src io.Reader
	switch {
	case f.opts.SourceReader != nil:
		src = f.opts.SourceReader
	case f.opts.Stdin:
		src = os.Stdin
	case f.opts.Source != "":
		stdout, cmd, err := spawnExporter(ctx, f.logger, &f.opts)
		if err != nil {
			return err
		}
		f.exporterCmd = cmd
		src = stdout
	default:
		return fmt.Errorf("rewrite: options specify no source")
	}

	if f.outputFilter == nil {
		if err := f.openTarget(ctx); err != nil {
			return err
		}
	}

	f.shared.streamNumber++
	offset := f.shared.ms.Count()
	parser := fastimport.NewParser(src, f.shared.ms)
	parser.SetOffset(offset)
	parser.SetStreamNumber(f.shared.streamNumber)

	for {
		el, err := parser.ReadElement()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := f.processElement(el); err != nil {
			return err
		}
	}

	if f.exporterCmd != nil {
		if err := f.exporterCmd.Wait(); err != nil {
			return &fastimport.Error{Kind: fastimport.UpstreamClosed, Detail: err.Error(), Err: err}
		}
	}
	return nil
}

// processElement runs el's callbacks (unless it was inserted with
// direct=true, which callers never route here), applies the
// commit-specific policies, drains any elements its callbacks queued,
// and finally emits el.
func (f *Filter) processElement(el fastimport.Element) error {
	if err := f.invokeCallbacks(el); err != nil {
		return err
	}
	return f.drainAndEmit(el)
}

func (f *Filter) invokeCallbacks(el fastimport.Element) error {
	var err error
	switch v := el.(type) {
	case *fastimport.Blob:
		classifyBlob(f.logger, f.diag, v)
		if f.cb.Blob != nil {
			err = f.cb.Blob(v)
		}
	case *fastimport.Commit:
		if f.cb.Commit != nil {
			err = f.cb.Commit(v)
		}
	case *fastimport.Tag:
		if f.cb.Tag != nil {
			err = f.cb.Tag(v)
		}
	case *fastimport.Reset:
		if f.cb.Reset != nil {
			err = f.cb.Reset(v)
		}
	case *fastimport.Progress:
		if f.cb.Progress != nil {
			err = f.cb.Progress(v)
		}
	case *fastimport.Checkpoint:
		if f.cb.Checkpoint != nil {
			err = f.cb.Checkpoint(v)
		}
	}
	if err != nil {
		return &fastimport.Error{Kind: fastimport.CallbackError, Element: elementKind(el), Err: err, Detail: err.Error()}
	}
	if f.cb.Everything != nil {
		if err := f.cb.Everything(elementKind(el), el); err != nil {
			return &fastimport.Error{Kind: fastimport.CallbackError, Element: elementKind(el), Err: err, Detail: err.Error()}
		}
	}
	if c, ok := el.(*fastimport.Commit); ok {
		f.applyEmptyCommitPolicy(c)
	}
	return nil
}

// applyEmptyCommitPolicy drops a non-merge commit that arrived with
// file-changes but ended up with none after callbacks ran, rewiring
// every reference to it onto its first parent (spec.md §4.5).
func (f *Filter) applyEmptyCommitPolicy(c *fastimport.Commit) {
	if c.State() == fastimport.SkippedState {
		return
	}
	if !c.IsMerge() && c.HadFileChanges() && len(c.FileChanges) == 0 {
		c.Skip(c.FirstParent())
		f.Stats.Skipped++
	}
}

// drainAndEmit first serializes any elements queued by el's own
// callbacks (each recursively dispatched the same way, so its own
// inserts precede it in turn), then el itself.
func (f *Filter) drainAndEmit(el fastimport.Element) error {
	for len(f.insertQueue) > 0 {
		item := f.insertQueue[0]
		f.insertQueue = f.insertQueue[1:]
		if item.direct {
			if err := f.emit(item.el); err != nil {
				return err
			}
			continue
		}
		if err := f.processElement(item.el); err != nil {
			return err
		}
	}
	return f.emit(el)
}

func (f *Filter) emit(el fastimport.Element) error {
	if c, ok := el.(*fastimport.Commit); ok {
		f.applyMergeExtras(c)
	}
	f.countStat(el)
	if f.outputFilter != nil {
		return f.outputFilter.ser.WriteElement(el)
	}
	return f.ser.WriteElement(el)
}

func (f *Filter) countStat(el fastimport.Element) {
	switch v := el.(type) {
	case *fastimport.Blob:
		f.Stats.Blobs++
	case *fastimport.Commit:
		if v.State() != fastimport.SkippedState {
			f.Stats.Commits++
		}
	case *fastimport.Tag:
		f.Stats.Tags++
	case *fastimport.Reset:
		f.Stats.Resets++
	case *fastimport.Checkpoint:
		f.Stats.Checkpoints++
	}
}

// applyMergeExtras implements spec.md §4.7's workaround: a commit's
// merge-parents' tracked extras are folded into its own file-changes,
// and its own contribution to the table is recorded for its
// descendants — its first-parent chain's extras if it was dumped
// within the stream it was parsed in, or its own full file-changes
// (captured before the fold-in above) if it is being emitted now
// across a stream boundary (e.g. a commit a host held via Insert and
// is only now writing out through a later Run).
func (f *Filter) applyMergeExtras(c *fastimport.Commit) {
	if c.State() == fastimport.SkippedState {
		return
	}
	crossStream := c.StreamNumber != f.shared.streamNumber
	if crossStream {
		f.shared.extras[c.ID()] = append([]fastimport.FileChange(nil), c.FileChanges...)
	}

	var mergeExtra []fastimport.FileChange
	for _, mp := range c.MergeParents() {
		if extra, ok := f.shared.extras[mp]; ok {
			mergeExtra = append(mergeExtra, extra...)
		}
	}
	if len(mergeExtra) > 0 {
		c.FileChanges = append(c.FileChanges, mergeExtra...)
	}

	if !crossStream {
		var parentExtra []fastimport.FileChange
		if from := c.FirstParent(); from != 0 {
			if extra, ok := f.shared.extras[from]; ok {
				parentExtra = append(parentExtra, extra...)
			}
		}
		parentExtra = append(parentExtra, mergeExtra...)
		f.shared.extras[c.ID()] = parentExtra
	}
}

// Finish flushes and closes the downstream pipe this Filter owns (a
// no-op if it delegates to another Filter via SetOutput) and waits for
// a spawned importer subprocess to exit.
func (f *Filter) Finish() error {
	if f.finished || f.outputFilter != nil {
		return nil
	}
	f.finished = true
	if f.ser != nil {
		if err := f.ser.Flush(); err != nil {
			return err
		}
	}
	if f.closeTarget != nil {
		if err := f.closeTarget.Close(); err != nil {
			return err
		}
	}
	if f.importerCmd != nil {
		if err := f.importerCmd.Wait(); err != nil {
			return &fastimport.Error{Kind: fastimport.DownstreamClosed, Detail: err.Error(), Err: err}
		}
	}
	return nil
}
