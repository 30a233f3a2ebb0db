package mixing

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseValues reads one signed decimal number per line. Blank lines are
// skipped.
func ParseValues(r io.Reader) ([]int64, error) {
	var values []int64

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return values, nil
}
