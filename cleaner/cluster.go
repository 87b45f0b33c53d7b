package cleaner

import (
	"context"
	"fmt"
	"strings"

	"imagebatch/scanner"
	"imagebatch/types"
)

// Strategy selects how fingerprints are grouped
type Strategy string

const (
	// StrategyAnchor groups every later file within the threshold of the
	// first unassigned file. Membership is not transitive.
	StrategyAnchor Strategy = "anchor"
	// StrategyTransitive merges any two files within the threshold into the
	// same group, chaining through intermediate files.
	StrategyTransitive Strategy = "transitive"
)

// MaxThreshold is the largest meaningful distance between 64-bit fingerprints
const MaxThreshold = 64

// ParseStrategy validates a strategy name. "" selects StrategyAnchor.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyAnchor, StrategyTransitive:
		return st, nil
	case "":
		return StrategyAnchor, nil
	default:
		return "", &types.ValidationError{Field: "strategy", Message: fmt.Sprintf("unknown clustering strategy %q", s)}
	}
}

// Cluster groups the indexed files whose fingerprints are within threshold.
// Progress runs from scanner.HashPhaseEnd to 1, one event per index position.
// On cancellation the groups found so far are returned with ctx.Err().
func Cluster(ctx context.Context, idx *scanner.Index, threshold int, strategy Strategy, emit func(types.Event)) ([]types.DuplicateGroup, error) {
	if emit == nil {
		emit = func(types.Event) {}
	}
	if idx == nil || idx.Len() == 0 {
		return nil, nil
	}

	switch strategy {
	case StrategyTransitive:
		return clusterTransitive(ctx, idx, threshold, emit)
	default:
		return clusterAnchor(ctx, idx, threshold, emit)
	}
}

func clusterProgress(i, n int) float64 {
	return scanner.HashPhaseEnd + float64(i+1)/float64(n)*(1-scanner.HashPhaseEnd)
}

func clusterAnchor(ctx context.Context, idx *scanner.Index, threshold int, emit func(types.Event)) ([]types.DuplicateGroup, error) {
	n := idx.Len()
	assigned := make([]bool, n)
	var groups []types.DuplicateGroup

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return groups, err
		}

		if !assigned[i] {
			assigned[i] = true
			anchor := idx.Hashes[idx.Paths[i]]
			group := types.DuplicateGroup{Paths: []string{idx.Paths[i]}, Distances: []int{0}}

			for j := i + 1; j < n; j++ {
				if assigned[j] {
					continue
				}
				if d := anchor.Distance(idx.Hashes[idx.Paths[j]]); d <= threshold {
					group.Paths = append(group.Paths, idx.Paths[j])
					group.Distances = append(group.Distances, d)
					assigned[j] = true
				}
			}

			if len(group.Paths) > 1 {
				groups = append(groups, group)
			}
		}

		emit(types.ProgressEvent(clusterProgress(i, n)))
	}
	return groups, nil
}

// unionFind is a disjoint set over index positions; the root of a set is
// always its smallest position so groups come out anchored like StrategyAnchor
type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func (uf unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	switch {
	case ra < rb:
		uf[rb] = ra
	case rb < ra:
		uf[ra] = rb
	}
}

func clusterTransitive(ctx context.Context, idx *scanner.Index, threshold int, emit func(types.Event)) ([]types.DuplicateGroup, error) {
	n := idx.Len()
	uf := newUnionFind(n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hi := idx.Hashes[idx.Paths[i]]
		for j := i + 1; j < n; j++ {
			if hi.Distance(idx.Hashes[idx.Paths[j]]) <= threshold {
				uf.union(i, j)
			}
		}

		emit(types.ProgressEvent(clusterProgress(i, n)))
	}

	members := make(map[int][]int)
	var roots []int
	for i := 0; i < n; i++ {
		r := uf.find(i)
		if _, ok := members[r]; !ok {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	var groups []types.DuplicateGroup
	for _, r := range roots {
		if len(members[r]) < 2 {
			continue
		}
		anchor := idx.Hashes[idx.Paths[r]]
		var group types.DuplicateGroup
		for _, m := range members[r] {
			group.Paths = append(group.Paths, idx.Paths[m])
			group.Distances = append(group.Distances, anchor.Distance(idx.Hashes[idx.Paths[m]]))
		}
		groups = append(groups, group)
	}
	return groups, nil
}
