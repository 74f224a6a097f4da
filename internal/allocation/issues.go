package allocation

import (
	"fmt"

	"zerodha-allocator/internal/models"
	"zerodha-allocator/pkg/utils"
)

func newIssue(level models.IssueLevel, code models.IssueCode, rowID, format string, args ...any) models.Issue {
	return models.Issue{
		Level:   level,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		RowID:   rowID,
	}
}

// addIssue records a top-level issue.
func addIssue(res *models.AllocationResult, level models.IssueLevel, code models.IssueCode, format string, args ...any) {
	res.Issues = append(res.Issues, newIssue(level, code, "", format, args...))
}

// addRowIssue attaches an issue to row i; errors are repeated at top level
// so a flat list shows everything that blocks saving.
func addRowIssue(res *models.AllocationResult, i int, level models.IssueLevel, code models.IssueCode, format string, args ...any) {
	row := &res.Rows[i]
	issue := newIssue(level, code, row.ID, format, args...)
	row.Issues = append(row.Issues, issue)
	if issue.IsBlocking() {
		res.Issues = append(res.Issues, issue)
	}
}

func label(r models.RowResult) string {
	if r.Symbol != "" {
		return r.Symbol
	}
	return r.ID
}

func inr(v float64) string {
	return utils.FormatIndianCurrency(v)
}
