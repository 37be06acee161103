package eval

import "unicode"

// Match reports whether s matches an SQL LIKE pattern. The pattern is
// anchored at both ends: % matches any run of characters including the
// empty one, _ matches exactly one character, and a backslash escapes
// the character that follows it so literal %, _ and \ can be matched.
// A backslash at the end of the pattern stands for itself.
func Match(pattern, s string, foldCase bool) bool {
	p := []rune(pattern)
	t := []rune(s)
	if foldCase {
		for i, c := range p {
			p[i] = unicode.ToLower(c)
		}
		for i, c := range t {
			t[i] = unicode.ToLower(c)
		}
	}
	return matchRunes(p, t)
}

// matchRunes is an iterative matcher with single-waypoint backtracking:
// on mismatch it resumes from the position after the most recent %.
func matchRunes(p, s []rune) bool {
	var pi, si int
	starP, starS := -1, 0

	for si < len(s) {
		if pi < len(p) {
			switch p[pi] {
			case '%':
				// Remember the restart point; try the empty match first.
				starP, starS = pi, si
				pi++
				continue
			case '_':
				pi++
				si++
				continue
			case '\\':
				// A dangling escape is a literal backslash.
				want, skip := '\\', 1
				if pi+1 < len(p) {
					want, skip = p[pi+1], 2
				}
				if want == s[si] {
					pi += skip
					si++
					continue
				}
			default:
				if p[pi] == s[si] {
					pi++
					si++
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		// Extend the last % by one character and retry.
		starS++
		pi = starP + 1
		si = starS
	}

	// Only trailing % runs may remain in the pattern.
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
