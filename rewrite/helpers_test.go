package rewrite

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepoWithCommits builds a throwaway git repo with n commits on
// main, the same way main_test.go drives a real git binary to build
// fixtures rather than faking repo state.
func initRepoWithCommits(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(cmd.Env,
			"GIT_AUTHOR_NAME=A U Thor", "GIT_AUTHOR_EMAIL=a@example.com",
			"GIT_COMMITTER_NAME=A U Thor", "GIT_COMMITTER_EMAIL=a@example.com",
			"HOME="+dir)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init", "-q", "-b", "main")
	for i := 0; i < n; i++ {
		run("commit", "--allow-empty", "-q", "-m", "c")
	}
	return dir
}

func TestCountCommits(t *testing.T) {
	dir := initRepoWithCommits(t, 3)
	n, err := CountCommits(context.Background(), dir)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountCommitsWithRef(t *testing.T) {
	dir := initRepoWithCommits(t, 2)
	n, err := CountCommits(context.Background(), dir, "main")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCountObjects(t *testing.T) {
	dir := initRepoWithCommits(t, 1)
	n, err := CountObjects(context.Background(), dir)
	assert.NoError(t, err)
	assert.Greater(t, n, 0)
}
