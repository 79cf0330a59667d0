package rewrite

import "github.com/rcowham/gitfastrewrite/fastimport"

// Callbacks is the host-facing hook set (spec.md §4.8). Every field is
// optional; a nil hook means "pass the element through unchanged."
// Everything fires after the type-specific hook, for every element,
// regardless of whether a type-specific hook was set — matching the
// firing order documented for git_fast_filter.py's "everything"
// callback in the original implementation.
type Callbacks struct {
	Blob       func(*fastimport.Blob) error
	Commit     func(*fastimport.Commit) error
	Tag        func(*fastimport.Tag) error
	Reset      func(*fastimport.Reset) error
	Progress   func(*fastimport.Progress) error
	Checkpoint func(*fastimport.Checkpoint) error

	// Everything fires for every element after its type-specific hook.
	// kind is one of "blob", "commit", "tag", "reset", "progress",
	// "checkpoint".
	Everything func(kind string, e fastimport.Element) error
}

func elementKind(e fastimport.Element) string {
	switch e.(type) {
	case *fastimport.Blob:
		return "blob"
	case *fastimport.Commit:
		return "commit"
	case *fastimport.Tag:
		return "tag"
	case *fastimport.Reset:
		return "reset"
	case *fastimport.Progress:
		return "progress"
	case *fastimport.Checkpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}
