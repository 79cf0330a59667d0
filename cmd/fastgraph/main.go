// Command fastgraph reads a git fast-export stream and renders the
// commit DAG as a Graphviz dot file, one node per commit mark and one
// edge per parent/merge link.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/emicklei/dot"
	"github.com/rcowham/gitfastrewrite/fastimport"
	"github.com/rcowham/gitfastrewrite/internal/version"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

type graphCommit struct {
	mark       fastimport.Mark
	branch     string
	label      string
	node       dot.Node
	hasNode    bool
	childCount int
	mergeCount int
}

// fastGraph walks one fast-export stream, collecting every commit
// keyed by its mark, then emits a dot graph of the resulting DAG.
type fastGraph struct {
	logger     *logrus.Logger
	maxCommits int
	commits    map[fastimport.Mark]*graphCommit
	parents    map[fastimport.Mark][]fastimport.Mark
	graph      *dot.Graph
}

func newFastGraph(logger *logrus.Logger, maxCommits int) *fastGraph {
	return &fastGraph{
		logger:     logger,
		maxCommits: maxCommits,
		commits:    make(map[fastimport.Mark]*graphCommit),
		parents:    make(map[fastimport.Mark][]fastimport.Mark),
		graph:      dot.NewGraph(dot.Directed),
	}
}

func (g *fastGraph) parse(r io.Reader) error {
	ms := fastimport.NewMarkSpace()
	parser := fastimport.NewParser(r, ms)
	for {
		el, err := parser.ReadElement()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		c, ok := el.(*fastimport.Commit)
		if !ok {
			continue
		}
		gc := &graphCommit{mark: c.ID(), branch: string(c.Branch), label: fmt.Sprintf("Commit: %d %s", c.ID(), c.Branch)}
		g.commits[c.ID()] = gc
		g.parents[c.ID()] = append([]fastimport.Mark(nil), c.Parents...)
		if from := c.FirstParent(); from != 0 {
			if parent, ok := g.commits[from]; ok {
				parent.childCount++
			}
		}
		for _, mp := range c.MergeParents() {
			if parent, ok := g.commits[mp]; ok {
				parent.mergeCount++
			}
		}
		if g.maxCommits != 0 && len(g.commits) >= g.maxCommits {
			break
		}
	}
	return nil
}

func (g *fastGraph) render() *dot.Graph {
	marks := make([]fastimport.Mark, 0, len(g.commits))
	for m := range g.commits {
		marks = append(marks, m)
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i] < marks[j] })

	nodeFor := func(m fastimport.Mark) dot.Node {
		c := g.commits[m]
		if !c.hasNode {
			c.node = g.graph.Node(c.label)
			c.hasNode = true
		}
		return c.node
	}

	for _, m := range marks {
		c := g.commits[m]
		me := nodeFor(m)
		parents := g.parents[m]
		if len(parents) > 0 && parents[0] != 0 {
			if _, ok := g.commits[parents[0]]; ok {
				g.graph.Edge(nodeFor(parents[0]), me, "p")
			}
		}
		for _, mp := range parents[1:] {
			if mp == 0 {
				continue
			}
			if _, ok := g.commits[mp]; ok {
				g.graph.Edge(nodeFor(mp), me, "m")
			}
		}
	}
	return g.graph
}

func main() {
	var (
		gitexport = kingpin.Arg(
			"gitexport",
			"Git fast-export file to process.",
		).String()
		maxCommits = kingpin.Flag(
			"max.commits",
			"Max no of commits to process (default 0 means all).",
		).Default("0").Short('m').Int()
		outputGraph = kingpin.Flag(
			"graphfile",
			"Graphviz dot file to write.",
		).Default("graph.dot").Short('g').String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.String("fastgraph")).Author("gitfastrewrite")
	kingpin.CommandLine.Help = "Renders a git fast-export stream's commit DAG as a Graphviz dot file\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	var r io.Reader = os.Stdin
	if *gitexport != "" {
		file, err := os.Open(*gitexport)
		if err != nil {
			logger.Errorf("failed to open %s: %v", *gitexport, err)
			os.Exit(1)
		}
		defer file.Close()
		r = file
	}

	g := newFastGraph(logger, *maxCommits)
	if err := g.parse(r); err != nil {
		logger.Errorf("failed to parse: %v", err)
		os.Exit(1)
	}
	graph := g.render()

	out, err := os.Create(*outputGraph)
	if err != nil {
		logger.Errorf("failed to create %s: %v", *outputGraph, err)
		os.Exit(1)
	}
	defer out.Close()
	graph.Write(out)
	logger.Infof("wrote %d commits to %s", len(g.commits), *outputGraph)
}
