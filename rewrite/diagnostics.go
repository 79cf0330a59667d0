package rewrite

import (
	"github.com/h2non/filetype"
	"github.com/rcowham/gitfastrewrite/fastimport"
	"github.com/sirupsen/logrus"
)

// DiagnosticFunc receives an advisory message about a blob the driver
// noticed but did not act on. It never blocks or alters the rewrite.
type DiagnosticFunc func(mark fastimport.Mark, message string)

// classifyBlob sniffs b's content and reports via diag when the bytes
// look like a binary format disguised behind a text-ish path, the way
// a host might want to be warned about before rewriting large repos.
// This never modifies b; it is purely advisory (spec.md's ambient
// diagnostics are additive, never behavior-changing).
func classifyBlob(logger *logrus.Logger, diag DiagnosticFunc, b *fastimport.Blob) {
	if diag == nil || len(b.Data) == 0 {
		return
	}
	kind, err := filetype.Match(b.Data)
	if err != nil || kind == filetype.Unknown {
		return
	}
	if kind.MIME.Type == "text" {
		return
	}
	msg := "blob content sniffed as " + kind.MIME.Value
	logger.Debugf("mark :%d: %s", b.ID(), msg)
	diag(b.ID(), msg)
}
