package rewrite

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// spawnExporter starts `git fast-export` against opts.Source and
// returns its stdout for the Parser to read. The returned *exec.Cmd
// must be Wait()ed after the stream is fully consumed.
func spawnExporter(ctx context.Context, logger *logrus.Logger, opts *Options) (io.ReadCloser, *exec.Cmd, error) {
	args := []string{"-C", opts.Source, "fast-export", "--signed-tags=strip", "--tag-of-filtered-object=rewrite"}
	if opts.Quiet {
		args = append(args, "--quiet")
	}
	if opts.ExportMarks != "" {
		args = append(args, "--export-marks="+opts.ExportMarks)
	}
	if opts.ImportMarks != "" {
		args = append(args, "--import-marks="+opts.ImportMarks)
	}
	if len(opts.Refs) > 0 {
		args = append(args, opts.Refs...)
	} else {
		args = append(args, "--all")
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	logger.Debugf("spawning: git %v", args)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("rewrite: failed to pipe exporter stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("rewrite: failed to start exporter: %w", err)
	}
	return stdout, cmd, nil
}

// spawnImporter starts `git fast-import` against opts.Target and
// returns its stdin for the Serializer to write to.
func spawnImporter(ctx context.Context, logger *logrus.Logger, opts *Options) (io.WriteCloser, *exec.Cmd, error) {
	args := []string{"-C", opts.Target, "fast-import"}
	if opts.Quiet {
		args = append(args, "--quiet")
	} else {
		args = append(args, "--stats")
	}
	if opts.Force {
		args = append(args, "--force")
	}
	if opts.ExportMarks != "" {
		args = append(args, "--export-marks="+opts.ExportMarks+".new")
	}
	if opts.ImportMarks != "" {
		args = append(args, "--import-marks="+opts.ImportMarks)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	logger.Debugf("spawning: git %v", args)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("rewrite: failed to pipe importer stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("rewrite: failed to start importer: %w", err)
	}
	return stdin, cmd, nil
}
