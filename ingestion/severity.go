package ingestion

import (
	"strings"

	"github.com/poiesic/equiptrack/core"
)

// SeverityFunc decides whether an issue excludes its row from import. It is
// given the issue's template, never the raw cell value.
type SeverityFunc func(message string) core.Severity

// fatalPhrases are matched case-insensitively against issue messages.
var fatalPhrases = []string{
	"constraint violation",
	"path traversal",
	"uniqueness violation",
	"duplicate key",
	"out of memory",
	"file too large",
	"illegal character",
	"injection",
	"数据库约束违反",
	"约束",
	"路径遍历",
	"唯一性",
	"重复键",
	"内存不足",
	"文件过大",
	"非法字符",
	"注入",
}

// ClassifySeverity is the default SeverityFunc. Messages containing a known
// fatal phrase are fatal; everything else is a warning.
func ClassifySeverity(message string) core.Severity {
	lower := strings.ToLower(message)
	for _, phrase := range fatalPhrases {
		if strings.Contains(lower, phrase) {
			return core.SeverityFatal
		}
	}
	return core.SeverityWarning
}

func classifyIssues(found []Issue, severity SeverityFunc) []core.ValidationIssue {
	issues := make([]core.ValidationIssue, len(found))
	for i, issue := range found {
		issues[i] = core.ValidationIssue{Message: issue.Message, Severity: severity(issue.Template)}
	}
	return issues
}

func hasFatal(issues []core.ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Fatal() {
			return true
		}
	}
	return false
}

func issueMessages(issues []core.ValidationIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}
