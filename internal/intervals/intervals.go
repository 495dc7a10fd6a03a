// Package intervals parses comma-separated lists of integers and inclusive
// ranges, e.g. "1-5,8,12-10". Descending ranges enumerate downward.
package intervals

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse expands the given interval list into the corresponding sequence of
// integers, in the order they appear in the input. Duplicates are kept.
func Parse(input string) ([]int, error) {
	var result []int
	for _, part := range strings.Split(input, ",") {
		bounds := strings.Split(part, "-")
		switch len(bounds) {
		case 1:
			single, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: %w", part, err)
			}
			result = append(result, single)
		case 2:
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			if start <= end {
				for i := start; i <= end; i++ {
					result = append(result, i)
				}
			} else {
				for i := start; i >= end; i-- {
					result = append(result, i)
				}
			}
		default:
			return nil, fmt.Errorf("invalid range %q", part)
		}
	}
	return result, nil
}
