// Package aop implements AOP group membership and the highlight/filter
// state machine over the graph store: exclusive single-AOP filtering,
// additive multi-AOP grouping with a color palette, and restoration of
// pre-filter styles.
package aop

import (
	"strconv"
	"strings"
)

// Normalize converts any of the reference forms a node may carry — a full
// AOP-Wiki or identifiers.org URI, an "AOP:<n>" shorthand, or a bare
// integer — to the canonical "AOP:<n>" key. Returns false when no AOP
// number can be extracted.
func Normalize(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	// URI forms: keep the last path segment.
	if strings.Contains(ref, "/") {
		ref = strings.TrimRight(ref, "/")
		if i := strings.LastIndex(ref, "/"); i >= 0 {
			ref = ref[i+1:]
		}
	}

	// Shorthand forms: AOP:12, aop:12, AOP 12.
	lower := strings.ToLower(ref)
	for _, prefix := range []string{"aop:", "aop "} {
		if strings.HasPrefix(lower, prefix) {
			ref = ref[len(prefix):]
			break
		}
	}

	n, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil || n <= 0 {
		return "", false
	}
	return "AOP:" + strconv.Itoa(n), true
}

// NormalizeAll maps refs through Normalize, dropping unparseable entries
// and duplicates while preserving first-seen order.
func NormalizeAll(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	var out []string
	for _, ref := range refs {
		id, ok := Normalize(ref)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
