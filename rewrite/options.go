// Package rewrite is the host-facing driver for the fastimport stream
// engine: the dispatcher, the empty-commit policy, the multi-stream
// merge-extras workaround, and the Options/Filter/callback API a host
// program links against (spec.md §4.5, §4.7, §4.8).
package rewrite

import (
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Options configures one Filter the way spec.md §6 describes. Exactly
// one of Source/SourceReader (and Target/TargetWriter) should be set;
// if neither Source nor SourceReader is set and Stdin is true, the
// filter reads os.Stdin.
type Options struct {
	// Source is a path to an upstream repository to spawn
	// `git fast-export` against. Ignored if SourceReader is set.
	Source string `yaml:"source"`
	// SourceReader is a pre-opened byte reader carrying an already
	// running export (e.g. a file of canned test input, or another
	// process's stdout). Takes precedence over Source.
	SourceReader io.Reader `yaml:"-"`

	// Target is a path to a downstream repository to spawn
	// `git fast-import` against. Ignored if TargetWriter is set.
	Target string `yaml:"target"`
	// TargetWriter is a pre-opened byte writer. Takes precedence over
	// Target. Closed by Finish if it implements io.Closer.
	TargetWriter io.Writer `yaml:"-"`

	// Refs restricts the upstream export to the listed refs; implies
	// partial-rewrite semantics (commits outside the selected history
	// are never seen by the parser at all).
	Refs []string `yaml:"refs"`

	// Force proceeds even if Target is a non-empty repository.
	Force bool `yaml:"force"`
	// Quiet suppresses progress reporting from the spawned exporter.
	Quiet bool `yaml:"quiet"`

	// ImportMarks/ExportMarks name files used to persist marks across
	// invocations (spec.md §6's mark-file persistence).
	ImportMarks string `yaml:"import_marks"`
	ExportMarks string `yaml:"export_marks"`

	// Stdin reads the export stream from os.Stdin instead of spawning
	// an exporter.
	Stdin bool `yaml:"stdin"`

	// DryRun parses and dispatches every element but never writes to
	// Target.
	DryRun bool `yaml:"dry_run"`
}

// LoadOptionsFile loads an Options value from a YAML file, the way
// config.LoadConfigFile did for the teacher's Perforce-specific config.
func LoadOptionsFile(path string) (*Options, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", path, err)
	}
	return LoadOptionsString(content)
}

// LoadOptionsString parses an Options value from YAML bytes.
func LoadOptionsString(content []byte) (*Options, error) {
	opts := &Options{}
	if err := yaml.Unmarshal(content, opts); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters", err)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) validate() error {
	if o.Source != "" && o.SourceReader != nil {
		return fmt.Errorf("options: source and source reader are mutually exclusive")
	}
	if o.Target != "" && o.TargetWriter != nil {
		return fmt.Errorf("options: target and target writer are mutually exclusive")
	}
	if o.Stdin && (o.Source != "" || o.SourceReader != nil) {
		return fmt.Errorf("options: stdin and source are mutually exclusive")
	}
	return nil
}
