package graph

// findCycle returns one dependency cycle as a closed path of callback ids,
// or nil for a DAG.
//
// Strongly connected components come from Tarjan's algorithm, visiting nodes
// in registration order so the reported cycle is deterministic. A component
// with more than one node, or a single node with an edge to itself, is a
// cycle. Of all cyclic components the one holding the earliest-registered
// callback is reported.
func findCycle(nodes []*node) []string {
	var (
		counter = 0
		stack   []*node
		indices = make(map[*node]int)
		lowlink = make(map[*node]int)
		onStack = make(map[*node]bool)
		best    []*node
	)

	var strongConnect func(*node)
	strongConnect = func(v *node) {
		indices[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range v.next {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var scc []*node
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) == 1 && !hasSelfLoop(scc[0]) {
			return
		}
		if best == nil || earliest(scc).index < earliest(best).index {
			best = scc
		}
	}

	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}

	if best == nil {
		return nil
	}
	return cyclePath(best)
}

func hasSelfLoop(n *node) bool {
	for _, m := range n.next {
		if m == n {
			return true
		}
	}
	return false
}

func earliest(scc []*node) *node {
	first := scc[0]
	for _, n := range scc[1:] {
		if n.index < first.index {
			first = n
		}
	}
	return first
}

// cyclePath walks edges inside scc from its earliest member back to itself.
// Every member of a strongly connected component reaches every other, so a
// depth-first walk restricted to the component always closes the loop.
func cyclePath(scc []*node) []string {
	members := make(map[*node]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := earliest(scc)

	visited := make(map[*node]bool)
	var path []*node
	var walk func(*node) bool
	walk = func(n *node) bool {
		path = append(path, n)
		visited[n] = true
		for _, m := range n.next {
			if m == start {
				path = append(path, m)
				return true
			}
			if members[m] && !visited[m] && walk(m) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	walk(start)
	return ids(path)
}

// topoOrder is Kahn's algorithm; among ready callbacks the earliest
// registered runs first, so the order is stable across builds.
func topoOrder(nodes []*node) []*node {
	indegree := make(map[*node]int, len(nodes))
	for _, n := range nodes {
		for _, m := range n.next {
			indegree[m]++
		}
	}

	var ready []*node
	for _, n := range nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*node, 0, len(nodes))
	for len(ready) > 0 {
		pick := 0
		for i, n := range ready {
			if n.index < ready[pick].index {
				pick = i
			}
		}
		n := ready[pick]
		ready = append(ready[:pick], ready[pick+1:]...)
		order = append(order, n)

		for _, m := range n.next {
			indegree[m]--
			if indegree[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	return order
}
