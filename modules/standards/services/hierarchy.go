package services

import (
	"fmt"
	"strings"

	"github.com/mapmystandards/a3e/modules/standards/domain/standard"
)

type resolvedNode struct {
	Code        string
	Title       string
	Description *string
	ParentCode  *string
	Level       int
	Path        string
}

const (
	nodeUnresolved = iota
	nodeVisiting
	nodeResolved
)

// resolveHierarchy computes level and path for every input node by iterative
// ascent through parentCode links. It rejects empty codes/titles, duplicate
// codes, references to codes outside the batch, cycles (including
// self-references) and chains deeper than maxDepth. No mutation happens here;
// callers only persist after the whole batch resolves.
func resolveHierarchy(nodes []standard.ItemInput, maxDepth int) ([]resolvedNode, error) {
	resolved := make([]resolvedNode, len(nodes))
	index := make(map[string]int, len(nodes))

	for i, n := range nodes {
		code := strings.TrimSpace(n.Code)
		title := strings.TrimSpace(n.Title)
		if code == "" || title == "" {
			return nil, newServiceError(400, "STD_INVALID_BODY",
				fmt.Sprintf("node at position %d requires code and title", i), nil)
		}
		if prev, dup := index[code]; dup {
			return nil, newServiceError(400, "STD_DUPLICATE_CODE",
				fmt.Sprintf("code %q appears at positions %d and %d", code, prev, i), nil)
		}
		index[code] = i

		var parent *string
		if n.ParentCode != nil {
			if p := strings.TrimSpace(*n.ParentCode); p != "" {
				parent = &p
			}
		}
		resolved[i] = resolvedNode{
			Code:        code,
			Title:       title,
			Description: n.Description,
			ParentCode:  parent,
		}
	}

	state := make([]int, len(nodes))
	for i := range resolved {
		if state[i] == nodeResolved {
			continue
		}

		// Walk up the parent chain marking every node as visiting; meeting a
		// visiting node again means the chain loops back on itself.
		chain := make([]int, 0, 8)
		cur := i
		for state[cur] != nodeResolved {
			if state[cur] == nodeVisiting {
				return nil, newServiceError(400, "STD_CYCLE",
					fmt.Sprintf("cycle detected at code %q", resolved[cur].Code), nil)
			}
			state[cur] = nodeVisiting
			chain = append(chain, cur)

			parent := resolved[cur].ParentCode
			if parent == nil {
				break
			}
			next, ok := index[*parent]
			if !ok {
				return nil, newServiceError(400, "STD_PARENT_NOT_FOUND",
					fmt.Sprintf("node %q references unknown parent %q", resolved[cur].Code, *parent), nil)
			}
			cur = next
		}

		// Unwind from the highest unresolved ancestor down, deriving each
		// level and path from the (now resolved) parent.
		for j := len(chain) - 1; j >= 0; j-- {
			k := chain[j]
			if parent := resolved[k].ParentCode; parent == nil {
				resolved[k].Level = 0
				resolved[k].Path = resolved[k].Code
			} else {
				p := index[*parent]
				resolved[k].Level = resolved[p].Level + 1
				resolved[k].Path = resolved[p].Path + "/" + resolved[k].Code
			}
			if resolved[k].Level >= maxDepth {
				return nil, newServiceError(400, "STD_DEPTH_EXCEEDED",
					fmt.Sprintf("node %q exceeds the maximum hierarchy depth of %d", resolved[k].Code, maxDepth), nil)
			}
			state[k] = nodeResolved
		}
	}

	return resolved, nil
}
