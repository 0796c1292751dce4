package extract

import (
	"regexp"
	"strings"
)

// maxBlockLines bounds how many transcript lines one output block may span.
const maxBlockLines = 100

var taskNameRe = regexp.MustCompile(`task_name="([^"]+)"`)

// block is one raw task-output region lifted from a transcript, before
// cleaning.
type block struct {
	taskName  string
	text      string
	truncated bool
}

// scanBlocks walks transcript lines and collects the JSON output of every
// completed-stage line. A block runs from the first opening brace after
// output=" until brace depth returns to zero; a block that fails to close
// within maxBlockLines (or before end of input) comes back truncated.
func scanBlocks(lines []string) []block {
	var blocks []block

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, `status="completed"`) || !strings.Contains(line, `output="`) {
			i++
			continue
		}

		m := taskNameRe.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}
		taskName := m[1]

		payload := line[strings.Index(line, `output="`)+len(`output="`):]
		braceStart := strings.Index(payload, "{")
		if braceStart == -1 {
			i++
			continue
		}
		payload = payload[braceStart:]

		collected := []string{payload}
		depth := braceDelta(payload)
		truncated := false
		next := i + 1
		for depth > 0 && next < len(lines) {
			l := strings.TrimSpace(lines[next])
			depth += braceDelta(l)
			collected = append(collected, l)
			next++
			if next-i > maxBlockLines {
				truncated = true
				break
			}
		}

		blocks = append(blocks, block{
			taskName:  taskName,
			text:      strings.Join(collected, "\n"),
			truncated: truncated || depth > 0,
		})
		i = next
	}

	return blocks
}

func braceDelta(s string) int {
	return strings.Count(s, "{") - strings.Count(s, "}")
}
