package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const DefaultGridColumns = 10

var rowColumnPattern = regexp.MustCompile(`^(\d+)\s*[-xX:]\s*(\d+)$`)

// GridLocation describes where a grid sits on the page. Numeric ids are
// 1-based positions laid out row by row in columns columns.
func GridLocation(gridID string, columns int) string {
	id := strings.TrimSpace(gridID)
	if columns <= 0 {
		columns = DefaultGridColumns
	}

	if n, err := strconv.Atoi(id); err == nil && n > 0 {
		row := (n-1)/columns + 1
		col := (n-1)%columns + 1
		return fmt.Sprintf("Row %d, Column %d", row, col)
	}
	if m := rowColumnPattern.FindStringSubmatch(id); m != nil {
		return fmt.Sprintf("Row %s, Column %s", m[1], m[2])
	}
	return fmt.Sprintf("Grid %s", id)
}
