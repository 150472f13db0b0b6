package pattern

import "github.com/lexandro/sandboxfs-mcp/edit"

// ClusterDistance is the largest line gap between two matches that still
// merges them into one region.
const ClusterDistance = 5

// Cluster is a region of nearby matches reported together.
type Cluster struct {
	StartLine int // first matched line, 1-indexed
	EndLine   int // last matched line, 1-indexed
	Matches   []Match
	Before    []string // up to contextLines lines preceding StartLine
	Lines     []string // StartLine..EndLine
	After     []string // up to contextLines lines following EndLine
}

// ClusterMatches groups matches (in offset order) whose lines lie within
// ClusterDistance of the previous match and attaches context lines.
func ClusterMatches(matches []Match, content string, contextLines int) []Cluster {
	if len(matches) == 0 {
		return nil
	}
	if contextLines < 0 {
		contextLines = 0
	}
	lines := edit.SplitLines(content)

	var clusters []Cluster
	current := Cluster{StartLine: matches[0].Line, EndLine: matches[0].EndLine}
	for _, m := range matches {
		if len(current.Matches) > 0 && m.Line-current.EndLine > ClusterDistance {
			clusters = append(clusters, current)
			current = Cluster{StartLine: m.Line, EndLine: m.EndLine}
		}
		current.Matches = append(current.Matches, m)
		if m.EndLine > current.EndLine {
			current.EndLine = m.EndLine
		}
	}
	clusters = append(clusters, current)

	for i := range clusters {
		fillContext(&clusters[i], lines, contextLines)
	}
	return clusters
}

func fillContext(c *Cluster, lines []string, contextLines int) {
	start := c.StartLine - 1
	end := min(c.EndLine, len(lines))
	if start >= end {
		return
	}
	c.Lines = lines[start:end]
	c.Before = lines[max(0, start-contextLines):start]
	c.After = lines[end:min(len(lines), end+contextLines)]
}
