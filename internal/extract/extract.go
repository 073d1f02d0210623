// Package extract turns raw pipeline log lines into node names.
//
// Extraction is a pure function over a single line: no state, no side
// effects. The patterns match the external producer's line formats exactly
// and must not be loosened without checking real log output.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Substrings that must appear for a line to be worth running the patterns
// on. The check is case-sensitive on purpose: the producer emits these
// field names in lowercase, and the fast path should stay cheap.
const (
	markerPipelineName = "pipeline_data.name"
	markerNodeName     = "node_name"
)

var (
	// An explicit node entry: [pipeline_data.name=X] | enter
	patEnter = regexp.MustCompile(`(?i)\[pipeline_data\.name=(.*?)\]\s*\|\s*enter`)

	// An explicit node completion: [pipeline_data.name=X] | complete
	patComplete = regexp.MustCompile(`(?i)\[pipeline_data\.name=(.*?)\]\s*\|\s*complete`)

	// General fallback: any bracketed node-name field.
	patGeneral = regexp.MustCompile(`(?i)\[(?:node_name|pipeline_data\.name)=(.*?)\]`)

	// Fields that disqualify a general match. The producer logs node lists
	// and recognition results with the same bracket syntax; those lines
	// name many nodes and must not move the tracker.
	patExclude = regexp.MustCompile(`(?i)list=|result\.name=`)
)

// NodeName extracts a node name from a log line. It returns ok=false for
// lines that carry no usable node marker.
//
// Patterns are tried in order, first match wins: enter marker, complete
// marker, then the general field. A general match is only accepted when no
// list= or result.name= field follows it on the same line; this emulates
// the negative lookahead the producer's own tooling uses, which RE2 cannot
// express directly.
func NodeName(line string) (string, bool) {
	if !strings.Contains(line, markerPipelineName) && !strings.Contains(line, markerNodeName) {
		return "", false
	}

	if m := patEnter.FindStringSubmatch(line); m != nil {
		return clean(m[1])
	}
	if m := patComplete.FindStringSubmatch(line); m != nil {
		return clean(m[1])
	}

	// Scan every general match and take the first whose remainder is free
	// of disqualifying fields, the same acceptance set a backtracking
	// engine produces for the lookahead form.
	for _, idx := range patGeneral.FindAllStringSubmatchIndex(line, -1) {
		rest := line[idx[1]:]
		if patExclude.MatchString(rest) {
			continue
		}
		return clean(line[idx[2]:idx[3]])
	}
	return "", false
}

// clean trims and NFC-normalizes an extracted name. Producers emit CJK node
// names whose normalization form varies by platform; comparing against
// configured names must not depend on it.
func clean(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return norm.NFC.String(name), true
}
