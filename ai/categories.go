package ai

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/equiptrack/core"
)

// Category is one entry of a classification table.
type Category struct {
	ID       int
	Name     string
	NameZH   string
	Keywords []string
}

// DefaultCategoryID is used when no keyword matches.
const DefaultCategoryID = 1

// DefaultConfidence is reported when the text states no confidence.
const DefaultConfidence = 0.7

// ProblemCategories is the problem classification table, in match order.
var ProblemCategories = []Category{
	{ID: 1, Name: "design defect", NameZH: "设计缺陷", Keywords: []string{"设计缺陷", "设计", "design"}},
	{ID: 2, Name: "manufacturing defect", NameZH: "制造缺陷", Keywords: []string{"制造缺陷", "制造", "manufacturing", "production"}},
	{ID: 3, Name: "material issue", NameZH: "材料问题", Keywords: []string{"材料问题", "材料", "material"}},
	{ID: 4, Name: "process issue", NameZH: "工艺问题", Keywords: []string{"工艺问题", "工艺", "process"}},
	{ID: 5, Name: "improper use", NameZH: "使用不当", Keywords: []string{"使用不当", "使用", "misuse", "improper use", "operator error"}},
	{ID: 6, Name: "insufficient maintenance", NameZH: "维护不足", Keywords: []string{"维护不足", "维护", "maintenance"}},
	{ID: 7, Name: "environmental factor", NameZH: "环境因素", Keywords: []string{"环境因素", "环境", "environment", "environmental"}},
	{ID: 8, Name: "compatibility issue", NameZH: "兼容性问题", Keywords: []string{"兼容性", "兼容", "compatibility"}},
}

// SolutionCategories is the solution classification table, in match order.
var SolutionCategories = []Category{
	{ID: 1, Name: "design optimization", NameZH: "设计优化", Keywords: []string{"设计优化", "重新设计", "design optimization", "redesign"}},
	{ID: 2, Name: "process improvement", NameZH: "工艺改进", Keywords: []string{"工艺改进", "process improvement"}},
	{ID: 3, Name: "material replacement", NameZH: "材料更换", Keywords: []string{"材料更换", "material replacement"}},
	{ID: 4, Name: "user training", NameZH: "使用培训", Keywords: []string{"使用培训", "培训", "training"}},
	{ID: 5, Name: "maintenance standard", NameZH: "维护规范", Keywords: []string{"维护规范", "maintenance standard"}},
	{ID: 6, Name: "protective measure", NameZH: "防护措施", Keywords: []string{"防护措施", "防护", "protection"}},
	{ID: 7, Name: "software update", NameZH: "软件更新", Keywords: []string{"软件", "software", "firmware"}},
	{ID: 8, Name: "hardware upgrade", NameZH: "硬件升级", Keywords: []string{"硬件", "升级", "hardware", "upgrade"}},
}

var priorityKeywords = []struct {
	priority core.Priority
	keywords []string
}{
	{core.PriorityCritical, []string{"危急", "严重", "critical"}},
	{core.PriorityHigh, []string{"重要", "高", "high"}},
	{core.PriorityLow, []string{"轻微", "低", "low"}},
}

var confidencePattern = regexp.MustCompile(`(?i)(?:confidence|置信度)\s*[:：]\s*([0-9]*\.?[0-9]+)`)

// ExtractCategories maps free analysis text onto category IDs, a priority and
// a confidence using keyword tables. It never fails; unmatched fields get
// defaults (category 1, medium priority, confidence 0.7).
func ExtractCategories(text string) *Classification {
	lower := strings.ToLower(text)

	problemID := matchCategory(lower, ProblemCategories)
	solutionID := matchCategory(lower, SolutionCategories)

	priority := core.DefaultPriority
	for _, pk := range priorityKeywords {
		if containsAny(lower, pk.keywords) {
			priority = pk.priority
			break
		}
	}

	confidence := DefaultConfidence
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 1 {
			confidence = v
		}
	}

	return &Classification{
		AnalysisText:       text,
		ProblemCategoryID:  &problemID,
		SolutionCategoryID: &solutionID,
		Priority:           priority,
		Confidence:         confidence,
	}
}

// CategoryByID looks an ID up in a table.
func CategoryByID(table []Category, id int) (Category, bool) {
	for _, c := range table {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func matchCategory(lower string, table []Category) int {
	for _, c := range table {
		if containsAny(lower, c.Keywords) {
			return c.ID
		}
	}
	return DefaultCategoryID
}

// containsAny reports whether any keyword occurs in lower. ASCII keywords
// must match whole words so that "low" does not match "flow".
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if isASCII(kw) {
			if containsWord(lower, kw) {
				return true
			}
		} else if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for start := 0; ; {
		i := strings.Index(s[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if (i == 0 || !isWordByte(s[i-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
