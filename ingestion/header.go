package ingestion

import (
	"fmt"
	"strings"
)

// Field is a logical column of the import format.
type Field string

const (
	FieldTitle         Field = "title"
	FieldDescription   Field = "description"
	FieldEquipmentType Field = "equipment_type"
	FieldPhase         Field = "phase"
	FieldPriority      Field = "priority"
	FieldDiscoveredBy  Field = "discovered_by"
	FieldDiscoveredAt  Field = "discovered_at"
)

// FieldSpec lists the header aliases accepted for a logical field.
type FieldSpec struct {
	Field    Field
	Aliases  []string
	Required bool
}

// FieldSpecs is the import format. Aliases are matched case-insensitively and
// each may carry a trailing "*" (as in "title*").
var FieldSpecs = []FieldSpec{
	{Field: FieldTitle, Required: true, Aliases: []string{"title", "problem", "issue", "problem_title", "标题", "问题", "问题标题"}},
	{Field: FieldDescription, Required: true, Aliases: []string{"description", "reason", "analysis", "details", "描述", "原因", "分析", "问题描述"}},
	{Field: FieldEquipmentType, Aliases: []string{"equipment_type", "equipment", "device_type", "设备类型", "设备"}},
	{Field: FieldPhase, Aliases: []string{"phase", "stage", "阶段"}},
	{Field: FieldPriority, Aliases: []string{"priority", "优先级"}},
	{Field: FieldDiscoveredBy, Aliases: []string{"discovered_by", "reporter", "发现者", "发现人"}},
	{Field: FieldDiscoveredAt, Aliases: []string{"discovered_at", "discovered_date", "date", "发现时间", "发现日期"}},
}

// HeaderReport is the outcome of header validation.
type HeaderReport struct {
	Valid   bool
	Message string
	Headers []string // header names as found in the file, trimmed
	Missing []Field  // required fields with no matching column
}

// normalizeHeader folds a header name for alias matching.
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, bom)
	return strings.ToLower(strings.TrimSpace(name))
}

func (s FieldSpec) matches(header string) bool {
	h := normalizeHeader(header)
	for _, alias := range s.Aliases {
		if h == alias || h == alias+"*" {
			return true
		}
	}
	return false
}

// ValidateHeaders checks that every required field has a matching column.
func ValidateHeaders(headers []string) *HeaderReport {
	trimmed := make([]string, len(headers))
	for i, h := range headers {
		trimmed[i] = strings.TrimSpace(strings.TrimPrefix(h, bom))
	}

	report := &HeaderReport{Headers: trimmed}
	var missing []string
	for _, spec := range FieldSpecs {
		if !spec.Required {
			continue
		}
		if !hasColumn(spec, trimmed) {
			report.Missing = append(report.Missing, spec.Field)
			missing = append(missing, strings.Join(spec.Aliases, " or "))
		}
	}

	if len(report.Missing) > 0 {
		report.Message = fmt.Sprintf("missing required columns: %s", strings.Join(missing, "; "))
		return report
	}
	report.Valid = true
	report.Message = "header validation passed"
	return report
}

func hasColumn(spec FieldSpec, headers []string) bool {
	for _, h := range headers {
		if spec.matches(h) {
			return true
		}
	}
	return false
}
