// Package pathtree tracks the set of paths that exist on a branch as a
// rewrite progresses, so a host callback can ask "does this path
// already exist" or "what else lives under this directory" without
// re-deriving it from the full commit history. Adapted from the
// directory-tree node used to reconcile renames/deletes for a branch's
// working set.
package pathtree

import (
	"strings"

	"github.com/rcowham/gitfastrewrite/fastimport"
)

// Node is one path component in a branch's tree of live files.
type Node struct {
	Name            string
	Path            string
	IsFile          bool
	CaseInsensitive bool
	Children        []*Node
}

// New returns an empty root node. Set caseInsensitive for filesystems
// (and hosting platforms) that fold case, e.g. rewriting a repo bound
// for a case-insensitive checkout.
func New(caseInsensitive bool) *Node {
	return &Node{CaseInsensitive: caseInsensitive}
}

func (n *Node) stringEqual(a, b string) bool {
	if n.CaseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// Apply folds one commit's file-changes into the tree, in order,
// including deleteall (which clears every live path).
func (n *Node) Apply(c *fastimport.Commit) {
	for _, fc := range c.FileChanges {
		switch fc.Op {
		case fastimport.Modify:
			n.AddFile(string(fc.Path))
		case fastimport.Delete:
			n.DeleteFile(string(fc.Path))
		case fastimport.DeleteAll:
			n.Children = nil
		}
	}
}

// AddFile records path as present, creating intermediate directories
// as needed. A no-op if the path is already recorded.
func (n *Node) AddFile(path string) { n.addSubFile(path, path) }

func (n *Node) addSubFile(fullPath, subPath string) {
	parts := strings.SplitN(subPath, "/", 2)
	head := parts[0]
	for _, c := range n.Children {
		if n.stringEqual(c.Name, head) {
			if len(parts) == 1 {
				return
			}
			c.addSubFile(fullPath, parts[1])
			return
		}
	}
	if len(parts) == 1 {
		n.Children = append(n.Children, &Node{Name: head, IsFile: true, Path: fullPath, CaseInsensitive: n.CaseInsensitive})
		return
	}
	child := &Node{Name: head, CaseInsensitive: n.CaseInsensitive}
	n.Children = append(n.Children, child)
	child.addSubFile(fullPath, parts[1])
}

// DeleteFile removes path if present. A no-op otherwise.
func (n *Node) DeleteFile(path string) { n.deleteSubFile(path) }

func (n *Node) deleteSubFile(subPath string) {
	parts := strings.SplitN(subPath, "/", 2)
	head := parts[0]
	for i, c := range n.Children {
		if !n.stringEqual(c.Name, head) {
			continue
		}
		if len(parts) == 1 {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return
		}
		c.deleteSubFile(parts[1])
		return
	}
}

// GetFiles returns every file path under dir ("" for the whole tree).
func (n *Node) GetFiles(dir string) []string {
	if dir == "" {
		return n.collect()
	}
	parts := strings.SplitN(dir, "/", 2)
	for _, c := range n.Children {
		if !n.stringEqual(c.Name, parts[0]) {
			continue
		}
		if c.IsFile {
			return nil
		}
		if len(parts) == 1 {
			return c.collect()
		}
		return c.GetFiles(parts[1])
	}
	return nil
}

func (n *Node) collect() []string {
	var files []string
	for _, c := range n.Children {
		if c.IsFile {
			files = append(files, c.Path)
		} else {
			files = append(files, c.collect()...)
		}
	}
	return files
}

// FindFile reports whether path names a file currently tracked.
func (n *Node) FindFile(path string) bool {
	dir := ""
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		dir = path[:i]
	}
	for _, f := range n.GetFiles(dir) {
		if n.stringEqual(f, path) {
			return true
		}
	}
	return false
}
