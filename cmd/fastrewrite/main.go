// Command fastrewrite is a demo host program built on package rewrite:
// it filters a git fast-export/fast-import stream, stripping CVS
// keywords out of text blobs and dropping tracked .doc files, and
// reports progress as it goes.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rcowham/gitfastrewrite/fastimport"
	"github.com/rcowham/gitfastrewrite/internal/version"
	"github.com/rcowham/gitfastrewrite/pathtree"
	"github.com/rcowham/gitfastrewrite/rewrite"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

// Humanize renders a byte count the way the teacher's reporting does.
func Humanize(b int) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMGTPE"[exp])
}

// cvsKeyword matches $Id$, $Revision$, $Date$ style CVS/RCS keyword
// expansions, the kind a host program commonly wants stripped back to
// their bare form when migrating an old repository.
var cvsKeyword = regexp.MustCompile(`\$(Id|Header|Revision|Date|Author|Source|RCSfile|Log):[^$]*\$`)

func stripKeywords(b *fastimport.Blob) error {
	if !bytes.Contains(b.Data, []byte("$")) {
		return nil
	}
	b.Data = cvsKeyword.ReplaceAllFunc(b.Data, func(m []byte) []byte {
		end := bytes.IndexByte(m, ':')
		if end < 0 {
			return m
		}
		return append(append([]byte{}, m[:end]...), '$')
	})
	return nil
}

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"YAML options file for fastrewrite.",
		).Short('c').String()
		source = kingpin.Arg(
			"source",
			"Source repository to read with git fast-export (overrides config).",
		).String()
		target = kingpin.Flag(
			"target",
			"Target repository to write with git fast-import (overrides config).",
		).Short('t').String()
		refs = kingpin.Flag(
			"ref",
			"Ref to export (repeatable); default is --all.",
		).Strings()
		dropDocs = kingpin.Flag(
			"drop-docs",
			"Drop tracked .doc files from history.",
		).Bool()
		dryrun = kingpin.Flag(
			"dryrun",
			"Parse and dispatch but never write to the target.",
		).Bool()
		quiet = kingpin.Flag(
			"quiet",
			"Suppress exporter/importer progress output.",
		).Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.String("fastrewrite")).Author("gitfastrewrite")
	kingpin.CommandLine.Help = "Rewrites a git fast-export/fast-import stream through host-supplied callbacks\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	opts := rewrite.Options{}
	if *configFile != "" {
		loaded, err := rewrite.LoadOptionsFile(*configFile)
		if err != nil {
			logger.Errorf("error loading config file: %v", err)
			os.Exit(1)
		}
		opts = *loaded
	}
	if *source != "" {
		opts.Source = *source
	}
	if *target != "" {
		opts.Target = *target
	}
	if len(*refs) > 0 {
		opts.Refs = *refs
	}
	opts.Quiet = *quiet || opts.Quiet
	opts.DryRun = *dryrun || opts.DryRun

	startTime := time.Now()
	logger.Infof("%v", version.String("fastrewrite"))
	logger.Infof("Starting %s, source: %v, target: %v", startTime, opts.Source, opts.Target)

	trees := map[string]*pathtree.Node{}
	treeFor := func(branch string) *pathtree.Node {
		t, ok := trees[branch]
		if !ok {
			t = pathtree.New(false)
			trees[branch] = t
		}
		return t
	}

	var stats struct {
		blobBytes int
		dropped   int
	}

	cb := rewrite.Callbacks{
		Blob: func(b *fastimport.Blob) error {
			stats.blobBytes += len(b.Data)
			return stripKeywords(b)
		},
		Commit: func(c *fastimport.Commit) error {
			if *dropDocs {
				kept := c.FileChanges[:0]
				for _, fc := range c.FileChanges {
					if fc.Op == fastimport.Modify && bytes.HasSuffix(fc.Path, []byte(".doc")) {
						stats.dropped++
						continue
					}
					kept = append(kept, fc)
				}
				c.FileChanges = kept
			}
			treeFor(string(c.Branch)).Apply(c)
			return nil
		},
		Progress: func(p *fastimport.Progress) error {
			logger.Infof("progress: %s", p.Message)
			return nil
		},
	}

	f := rewrite.NewFilter(logger, opts, cb)
	if err := f.Run(context.Background()); err != nil {
		logger.Errorf("rewrite failed: %v", err)
		if ferr := f.Finish(); ferr != nil {
			logger.Errorf("finish failed: %v", ferr)
		}
		os.Exit(1)
	}
	if err := f.Finish(); err != nil {
		logger.Errorf("finish failed: %v", err)
		os.Exit(1)
	}

	logger.Infof("Done in %v: %d commits, %d blobs (%s), %d tags, %d skipped, %d .doc files dropped",
		time.Since(startTime), f.Stats.Commits, f.Stats.Blobs, Humanize(stats.blobBytes), f.Stats.Tags, f.Stats.Skipped, stats.dropped)
}
