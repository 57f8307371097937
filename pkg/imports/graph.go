package imports

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
)

// Graph links project modules to the top-level packages they import.
type Graph struct {
	g graph.Graph[string, string]
}

// BuildGraph creates the import graph of files. moduleOf maps a source path
// to its qualified module name; files it cannot name are skipped.
func BuildGraph(files []FileImports, moduleOf func(path string) (string, bool)) (*Graph, error) {
	g := graph.New(graph.StringHash, graph.Directed())

	for _, f := range files {
		source, ok := moduleOf(f.Path)
		if !ok {
			continue
		}
		if err := addVertex(g, source); err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			if imp.IsRelative() || imp.Module == "" {
				continue
			}
			target := imp.TopLevel()
			if target == source {
				continue
			}
			if err := addVertex(g, target); err != nil {
				return nil, err
			}
			if err := g.AddEdge(source, target); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("adding edge %s -> %s: %w", source, target, err)
			}
		}
	}
	return &Graph{g: g}, nil
}

func addVertex(g graph.Graph[string, string], name string) error {
	if err := g.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("adding vertex %s: %w", name, err)
	}
	return nil
}

// Modules returns every vertex in sorted order.
func (g *Graph) Modules() ([]string, error) {
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(adjacency))
	for name := range adjacency {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Imports returns the sorted packages imported by module.
func (g *Graph) Imports(module string) ([]string, error) {
	adjacency, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	edges, ok := adjacency[module]
	if !ok {
		return nil, fmt.Errorf("unknown module %s: %w", module, graph.ErrVertexNotFound)
	}
	targets := make([]string, 0, len(edges))
	for target := range edges {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets, nil
}

// ImportedBy returns the sorted modules that import pkg.
func (g *Graph) ImportedBy(pkg string) ([]string, error) {
	predecessors, err := g.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	edges, ok := predecessors[pkg]
	if !ok {
		return nil, fmt.Errorf("unknown package %s: %w", pkg, graph.ErrVertexNotFound)
	}
	sources := make([]string, 0, len(edges))
	for source := range edges {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources, nil
}

// Render writes one "module -> package" line per edge, sorted.
func (g *Graph) Render(w io.Writer) error {
	modules, err := g.Modules()
	if err != nil {
		return err
	}
	for _, m := range modules {
		targets, err := g.Imports(m)
		if err != nil {
			return err
		}
		for _, t := range targets {
			if _, err := fmt.Fprintf(w, "%s -> %s\n", m, t); err != nil {
				return err
			}
		}
	}
	return nil
}
