package lyrics

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var lrcLine = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:[.:](\d{1,3}))?\]`)

// ParseLRC parses LRC text into time-ascending synced lines. Lines carrying
// several timestamps are emitted once per timestamp; metadata tags such as
// [ar:...] and untimed lines are skipped.
func ParseLRC(lrc string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(lrc))
	var result []Line

	for scanner.Scan() {
		line := scanner.Text()
		matches := lrcLine.FindAllStringSubmatchIndex(line, -1)
		if len(matches) == 0 {
			continue
		}
		text := strings.TrimSpace(line[matches[len(matches)-1][1]:])

		for _, m := range matches {
			minutes, _ := strconv.Atoi(line[m[2]:m[3]])
			sec, _ := strconv.Atoi(line[m[4]:m[5]])
			ms := 0
			if m[6] >= 0 {
				msStr := line[m[6]:m[7]]
				ms, _ = strconv.Atoi(msStr)
				switch len(msStr) {
				case 1:
					ms *= 100 // .1 -> 100ms
				case 2:
					ms *= 10 // .49 -> 490ms
				}
			}
			offset := int64(minutes*60+sec)*1000 + int64(ms)
			result = append(result, Line{Content: NoteIfEmpty(text), OffsetMs: offset})
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].OffsetMs < result[j].OffsetMs })
	return result
}
