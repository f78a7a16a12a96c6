package graph

import (
	"strings"

	"github.com/macho715/tr-dash/internal/domain"
)

// Cycle is a closed dependency path. IDs lists every activity on the path in
// traversal order; the last one depends back on the first.
type Cycle struct {
	IDs []string
}

func (c Cycle) String() string {
	if len(c.IDs) == 0 {
		return ""
	}
	return strings.Join(c.IDs, " -> ") + " -> " + c.IDs[0]
}

const (
	white = 0 // unvisited
	gray  = 1 // on the current path
	black = 2 // fully processed
)

type frame struct {
	node int
	next int
}

// FindCycles walks the graph once with a three-colour DFS and returns every
// cycle closed by a back edge. Each node is entered at most once, so the walk
// terminates on any input.
func FindCycles(g *Graph) []Cycle {
	n := g.Len()
	color := make([]uint8, n)
	pos := make([]int, n) // position on the path stack, -1 when off
	for i := range pos {
		pos[i] = -1
	}

	var cycles []Cycle
	seen := make(map[string]bool)
	var path []int
	var stack []frame

	for root := 0; root < n; root++ {
		if color[root] != white {
			continue
		}
		color[root] = gray
		pos[root] = 0
		path = append(path[:0], root)
		stack = append(stack[:0], frame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.succ[top.node]) {
				e := g.edges[g.succ[top.node][top.next]]
				top.next++
				switch color[e.To] {
				case white:
					color[e.To] = gray
					pos[e.To] = len(path)
					path = append(path, e.To)
					stack = append(stack, frame{node: e.To})
				case gray:
					c := Cycle{IDs: make([]string, 0, len(path)-pos[e.To])}
					for _, idx := range path[pos[e.To]:] {
						c.IDs = append(c.IDs, g.ids[idx])
					}
					key := strings.Join(c.IDs, "\x00")
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, c)
					}
				}
				continue
			}
			color[top.node] = black
			pos[top.node] = -1
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}

// Validate reports one blocking dependency_cycle collision per cycle, naming
// every activity on the cycle path.
func Validate(g *Graph) []domain.Collision {
	cycles := FindCycles(g)
	if len(cycles) == 0 {
		return nil
	}
	out := make([]domain.Collision, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, domain.NewCollision(
			domain.CollisionDependencyCycle,
			domain.SeverityBlocking,
			append([]string(nil), c.IDs...),
			"dependency cycle: "+c.String(),
		))
	}
	domain.SortCollisions(out)
	return out
}
