package declare

import (
	"fmt"
	"strings"
)

// GraphNode is one declared resource.
type GraphNode struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
}

// GraphEdge means "From depends on To".
type GraphEdge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Graph is the dependency graph the provisioning engine orders creation by.
type Graph struct {
	Nodes     []GraphNode `json:"nodes" yaml:"nodes"`
	Edges     []GraphEdge `json:"edges" yaml:"edges"`
	TopoOrder []string    `json:"topoOrder" yaml:"topoOrder"`
}

type graphNode struct {
	GraphNode
	deps []Ref
}

// Graph returns the dependency graph of the set. Dependencies come before
// their dependents in TopoOrder.
func (s *Set) Graph() (Graph, error) {
	return buildGraph([]graphNode{
		{GraphNode{s.EncryptionKey.LogicalName, "EncryptionKey"}, nil},
		{GraphNode{s.LoggingBucket.LogicalName, "LoggingBucket"}, nil},
		{GraphNode{s.Bucket.LogicalName, "Bucket"}, []Ref{s.Bucket.EncryptionKey, s.Bucket.ServerAccessLogsBucket}},
		{GraphNode{s.Role.LogicalName, "Role"}, nil},
		{GraphNode{s.Init.LogicalName, "InitializationAction"}, initDeps(s.Init)},
	})
}

func initDeps(a InitializationAction) []Ref {
	deps := []Ref{a.Bucket, a.Role}
	for _, d := range a.DependsOn {
		if d != a.Bucket && d != a.Role {
			deps = append(deps, d)
		}
	}
	return deps
}

func buildGraph(nodes []graphNode) (Graph, error) {
	byName := make(map[string]graphNode, len(nodes))
	g := Graph{}
	for _, n := range nodes {
		if _, ok := byName[n.Name]; ok {
			return Graph{}, DuplicateNodeError{Name: n.Name}
		}
		byName[n.Name] = n
		g.Nodes = append(g.Nodes, n.GraphNode)
	}
	for _, n := range nodes {
		for _, dep := range n.deps {
			if _, ok := byName[string(dep)]; !ok {
				return Graph{}, DependencyNotFoundError{From: n.Name, To: dep}
			}
			g.Edges = append(g.Edges, GraphEdge{From: n.Name, To: string(dep)})
		}
	}

	topo, err := topoSort(nodes, byName)
	if err != nil {
		return Graph{}, err
	}
	g.TopoOrder = topo
	return g, nil
}

func topoSort(order []graphNode, byName map[string]graphNode) ([]string, error) {
	const (
		stateNew uint8 = iota
		stateVisiting
		stateDone
	)

	state := make(map[string]uint8, len(order))
	stack := make([]string, 0, len(order))
	stackPos := make(map[string]int, len(order))
	topo := make([]string, 0, len(order))

	var dfs func(name string) error
	dfs = func(name string) error {
		switch state[name] {
		case stateDone:
			return nil
		case stateVisiting:
			cycle := append([]string(nil), stack[stackPos[name]:]...)
			return CycleDetectedError{Path: append(cycle, name)}
		}

		state[name] = stateVisiting
		stackPos[name] = len(stack)
		stack = append(stack, name)

		for _, dep := range byName[name].deps {
			if err := dfs(string(dep)); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(stackPos, name)
		state[name] = stateDone
		topo = append(topo, name)
		return nil
	}

	for _, n := range order {
		if err := dfs(n.Name); err != nil {
			return nil, err
		}
	}
	return topo, nil
}

// DependsOn reports whether from directly depends on to.
func (g Graph) DependsOn(from, to string) bool {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// DOT exports Graphviz DOT text.
func (g Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph pipeline {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n.Name] = alias
		label := escapeLabel(n.Name) + "\\n(" + escapeLabel(n.Kind) + ")"
		b.WriteString(fmt.Sprintf("  %s [label=\"%s\"];\n", alias, label))
	}
	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("  %s -> %s;\n", aliases[e.From], aliases[e.To]))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports Mermaid graph text.
func (g Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	aliases := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n.Name] = alias
		label := escapeLabel(n.Name) + "<br/>(" + escapeLabel(n.Kind) + ")"
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", alias, label))
	}
	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("    %s --> %s\n", aliases[e.From], aliases[e.To]))
	}
	return b.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
