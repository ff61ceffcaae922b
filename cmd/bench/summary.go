package main

import (
	"fmt"
	"strings"
	"time"
)

// groupTally counts results for one area of the service, named by the case
// prefix before ":" ("Env", "HTTP", "Slack", ...).
type groupTally struct {
	Group   string
	Pass    int
	Fail    int
	Pending int
	Skip    int
	Slowest time.Duration
}

func (g groupTally) String() string {
	line := fmt.Sprintf("%-12s pass=%d fail=%d pending=%d skip=%d", g.Group, g.Pass, g.Fail, g.Pending, g.Skip)
	if g.Slowest > 0 {
		line += fmt.Sprintf(" slowest=%s", g.Slowest)
	}
	return line
}

func groupOf(name string) string {
	if i := strings.Index(name, ":"); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return "Other"
}

// summarize tallies results per group, keeping groups in first-seen order.
func summarize(results []Result) []groupTally {
	var out []groupTally
	index := make(map[string]int)
	for _, r := range results {
		g := groupOf(r.Name)
		i, ok := index[g]
		if !ok {
			i = len(out)
			index[g] = i
			out = append(out, groupTally{Group: g})
		}
		t := &out[i]
		switch r.Status {
		case "PASS":
			t.Pass++
		case "FAIL":
			t.Fail++
		case "PENDING":
			t.Pending++
		case "SKIP":
			t.Skip++
		}
		if r.Latency > t.Slowest {
			t.Slowest = r.Latency
		}
	}
	return out
}

// exitCode is 1 when any check failed and 2 when strict mode finds a check
// still pending.
func exitCode(groups []groupTally, strict bool) int {
	pending := false
	for _, g := range groups {
		if g.Fail > 0 {
			return 1
		}
		if g.Pending > 0 {
			pending = true
		}
	}
	if strict && pending {
		return 2
	}
	return 0
}
