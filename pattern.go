// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"strings"
)

// segmentKind classifies one segment of a compiled route template.
// The numeric order doubles as the specificity rank: higher values win at
// the same position when ranking competing matches.
type segmentKind uint8

const (
	segWildcard segmentKind = iota // "*", consumes the rest of the path
	segOptional                    // ":name?", consumes one segment if present
	segRequired                    // ":name", consumes exactly one segment
	segStatic                      // literal text, must match exactly
)

// WildcardParam is the parameter name under which a wildcard segment's
// capture is bound.
const WildcardParam = "*"

// segment is one compiled element of a route template.
type segment struct {
	kind    segmentKind
	name    string // parameter name for required/optional segments
	literal string // literal text for static segments
}

// compileTemplate parses a raw route template into its segment list,
// enforcing placement rules: optional segments must be trailing (only
// further optionals may follow), and at most one wildcard may appear, in
// final position.
func compileTemplate(template string) ([]segment, error) {
	trimmed := strings.Trim(template, "/")
	if trimmed == "" {
		return nil, nil // root template "/"
	}

	parts := strings.Split(trimmed, "/")
	segs := make([]segment, 0, len(parts))
	sawOptional := false

	for i, part := range parts {
		switch {
		case part == WildcardParam:
			if i != len(parts)-1 {
				return nil, &TemplateError{Template: template, Reason: "wildcard must be the final segment"}
			}
			if sawOptional {
				return nil, &TemplateError{Template: template, Reason: "wildcard cannot follow an optional segment"}
			}
			segs = append(segs, segment{kind: segWildcard})

		case strings.HasPrefix(part, ":"):
			name := part[1:]
			optional := strings.HasSuffix(name, "?")
			if optional {
				name = name[:len(name)-1]
			}
			if name == "" {
				return nil, &TemplateError{Template: template, Reason: "parameter segment has no name"}
			}
			if optional {
				sawOptional = true
				segs = append(segs, segment{kind: segOptional, name: name})
				continue
			}
			if sawOptional {
				return nil, &TemplateError{Template: template, Reason: "required segment cannot follow an optional segment"}
			}
			segs = append(segs, segment{kind: segRequired, name: name})

		default:
			if sawOptional {
				return nil, &TemplateError{Template: template, Reason: "static segment cannot follow an optional segment"}
			}
			segs = append(segs, segment{kind: segStatic, literal: part})
		}
	}
	return segs, nil
}

// splitPath splits a concrete request path into its literal segments.
// "/" and "" both yield no segments.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// paramBinding is one name→value capture produced by a successful match.
type paramBinding struct {
	key   string
	value string
}

// matchResult carries everything needed to rank one successful match
// against competitors for the same path.
type matchResult struct {
	params []paramBinding

	// kinds records the segment kind that consumed each template position,
	// compared lexicographically when ranking (static beats required beats
	// optional beats wildcard at the same position).
	kinds []segmentKind

	// loose counts optional and wildcard segments in the template; fewer
	// is more specific.
	loose int

	// unmatched counts trailing optional segments the path did not fill;
	// fewer is more specific.
	unmatched int
}

// matchSegments walks a compiled segment list against the path segments
// pairwise. It returns the match result and true on success.
//
// Static segments must equal the path segment literally. Required segments
// consume exactly one path segment. Optional segments consume one if any
// remain, otherwise bind nothing. A wildcard consumes all remaining
// segments as a single capture, joined with "/"; it matches even when no
// segments remain, binding "".
func matchSegments(segs []segment, parts []string) (matchResult, bool) {
	res := matchResult{kinds: make([]segmentKind, 0, len(segs))}
	i := 0

	for _, seg := range segs {
		switch seg.kind {
		case segStatic:
			if i >= len(parts) || parts[i] != seg.literal {
				return matchResult{}, false
			}
			i++

		case segRequired:
			if i >= len(parts) {
				return matchResult{}, false
			}
			res.params = append(res.params, paramBinding{key: seg.name, value: parts[i]})
			i++

		case segOptional:
			res.loose++
			if i < len(parts) {
				res.params = append(res.params, paramBinding{key: seg.name, value: parts[i]})
				i++
			} else {
				res.unmatched++
			}

		case segWildcard:
			res.loose++
			res.params = append(res.params, paramBinding{key: WildcardParam, value: strings.Join(parts[i:], "/")})
			i = len(parts)
		}
		res.kinds = append(res.kinds, seg.kind)
	}

	if i != len(parts) {
		return matchResult{}, false // trailing path segments left unconsumed
	}
	return res, true
}

// moreSpecific reports whether match a beats match b for the same path.
// Positions are compared pairwise first: an exact static segment beats a
// parameter, a required parameter beats an optional one, and anything beats
// a wildcard. Ties fall through to fewer optional/wildcard segments, then
// to fewer unmatched trailing optionals. Equal results return false, which
// preserves registration order in the caller's scan.
func moreSpecific(a, b matchResult) bool {
	n := min(len(a.kinds), len(b.kinds))
	for i := 0; i < n; i++ {
		if a.kinds[i] != b.kinds[i] {
			return a.kinds[i] > b.kinds[i]
		}
	}
	if a.loose != b.loose {
		return a.loose < b.loose
	}
	if a.unmatched != b.unmatched {
		return a.unmatched < b.unmatched
	}
	return false
}
