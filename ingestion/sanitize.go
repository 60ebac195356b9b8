// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/equiptrack/core"
)

// RawRow maps header names, as found in the file, to raw cell values.
type RawRow map[string]string

// columns returns the row's header names in file order. Names missing from
// order follow in sorted order.
func (r RawRow) columns(order []string) []string {
	cols := make([]string, 0, len(r))
	for _, h := range order {
		if _, ok := r[h]; ok && !slices.Contains(cols, h) {
			cols = append(cols, h)
		}
	}
	var rest []string
	for h := range r {
		if !slices.Contains(cols, h) {
			rest = append(rest, h)
		}
	}
	slices.Sort(rest)
	return append(cols, rest...)
}

// lookup returns the value of the first column, in cols order, matching the
// field's aliases. Earlier aliases take precedence over later ones.
func (r RawRow) lookup(field Field, cols []string) string {
	for _, spec := range FieldSpecs {
		if spec.Field != field {
			continue
		}
		for _, alias := range spec.Aliases {
			for _, key := range cols {
				h := normalizeHeader(key)
				if h == alias || h == alias+"*" {
					return r[key]
				}
			}
		}
	}
	return ""
}

// Issue is one problem found in a row. Template is Message with the
// offending cell value elided; severity is decided on Template so that
// user data cannot change how an issue is classified.
type Issue struct {
	Message  string
	Template string
}

// textIssue is an issue whose message holds no cell value.
func textIssue(format string, args ...any) Issue {
	msg := fmt.Sprintf(format, args...)
	return Issue{Message: msg, Template: msg}
}

// valueIssue is an issue whose message quotes value as its first argument.
func valueIssue(format, value string, args ...any) Issue {
	return Issue{
		Message:  fmt.Sprintf(format, append([]any{value}, args...)...),
		Template: fmt.Sprintf(format, append([]any{""}, args...)...),
	}
}

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"2006-1-2 15:04:05",
	"2006.1.2",
}

var (
	xssBlocks = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`),
		regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`),
		regexp.MustCompile(`(?is)<object\b[^>]*>.*?</object\s*>`),
		regexp.MustCompile(`(?is)<embed\b[^>]*>.*?</embed\s*>`),
	}
	xssFragments = []*regexp.Regexp{
		regexp.MustCompile(`(?i)</?(script|iframe|object|embed)\b[^>]*>`),
		regexp.MustCompile(`(?i)(javascript|vbscript)\s*:`),
		regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]*)`),
		regexp.MustCompile(`(?i)\beval\s*\(`),
		regexp.MustCompile(`(?i)document\.cookie`),
	}

	sqlInjection = regexp.MustCompile(`(?i)(\bunion\s+(all\s+)?select\b|;\s*(drop\s+(table|database)|delete\s+from|truncate\s+table|alter\s+table|insert\s+into|update\s+\w+\s+set|create\s+(table|database|user))\b|'\s*(or|and)\s+'?\w+'?\s*=\s*'?\w+|\bexec(\s|\()+xp_)`)
)

// StripXSS removes script-bearing markup and URI schemes from s.
func StripXSS(s string) string {
	for _, re := range xssBlocks {
		s = re.ReplaceAllString(s, "")
	}
	for _, re := range xssFragments {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// Sanitizer cleans and validates one row at a time.
type Sanitizer struct {
	limits Limits
	now    func() time.Time
}

// NewSanitizer creates a sanitizer. Zero limits take their defaults.
func NewSanitizer(limits Limits) *Sanitizer {
	return &Sanitizer{limits: limits.withDefaults(), now: time.Now}
}

// Sanitize turns a raw row into a cleaned record plus its issues. Severity
// is assigned separately by a SeverityFunc. headers gives the file's column
// order, which decides between several columns matching one field. Enum
// fields of the returned record always hold valid values.
func (s *Sanitizer) Sanitize(row RawRow, headers ...string) (core.CleanedRecord, []Issue) {
	var issues []Issue
	var rec core.CleanedRecord
	cols := row.columns(headers)

	rec.Title = s.text(row, cols, FieldTitle, s.limits.MaxTitleLength, &issues)
	rec.Description = s.text(row, cols, FieldDescription, s.limits.MaxDescriptionLength, &issues)
	rec.EquipmentTypeName = s.text(row, cols, FieldEquipmentType, s.limits.MaxEquipmentLength, &issues)
	rec.DiscoveredBy = s.text(row, cols, FieldDiscoveredBy, s.limits.MaxTitleLength, &issues)

	rec.Phase = core.DefaultPhase
	if raw := strings.TrimSpace(row.lookup(FieldPhase, cols)); raw != "" {
		if phase, ok := core.ParsePhase(raw); ok {
			rec.Phase = phase
		} else {
			issues = append(issues, invalidEnum(raw, FieldPhase, core.EnumValues(core.Phases())))
		}
	}

	rec.Priority = core.DefaultPriority
	if raw := strings.TrimSpace(row.lookup(FieldPriority, cols)); raw != "" {
		if priority, ok := core.ParsePriority(raw); ok {
			rec.Priority = priority
			rec.PriorityGiven = true
		} else {
			issues = append(issues, invalidEnum(raw, FieldPriority, core.EnumValues(core.Priorities())))
		}
	}

	if raw := strings.TrimSpace(row.lookup(FieldDiscoveredAt, cols)); raw != "" {
		date, ok := parseDate(raw)
		switch {
		case !ok:
			issues = append(issues, valueIssue("unparseable date '%s' for field '%s'", raw, FieldDiscoveredAt))
		case date.After(s.now()):
			issues = append(issues, valueIssue("date '%s' for field '%s' is in the future and was ignored", raw, FieldDiscoveredAt))
		default:
			rec.DiscoveredAt = &date
		}
	}

	combined := rec.Title + rec.Description + rec.EquipmentTypeName + rec.DiscoveredBy
	if ratio, ok := specialRatio(combined); ok && ratio > s.limits.PollutionThreshold {
		issues = append(issues, textIssue("possible data corruption: %.0f%% of characters are special characters", ratio*100))
	}

	return rec, issues
}

// text checks a string field for hostile content, strips markup, trims and truncates it.
func (s *Sanitizer) text(row RawRow, cols []string, field Field, limit int, issues *[]Issue) string {
	raw := row.lookup(field, cols)
	if raw == "" {
		return ""
	}

	if r, ok := illegalControl(raw); ok {
		*issues = append(*issues, textIssue("illegal character %U in field '%s'", r, field))
	}
	if sqlInjection.MatchString(raw) {
		*issues = append(*issues, textIssue("possible SQL injection in field '%s'", field))
	}
	if strings.Contains(raw, "../") || strings.Contains(raw, `..\`) {
		*issues = append(*issues, textIssue("path traversal sequence in field '%s'", field))
	}

	cleaned := strings.TrimSpace(StripXSS(raw))
	if utf8.RuneCountInString(cleaned) > limit {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:limit]))
		*issues = append(*issues, textIssue("field '%s' truncated to %d characters", field, limit))
	}
	return cleaned
}

func invalidEnum(value string, field Field, expected string) Issue {
	return valueIssue("invalid enum value '%s' for field '%s', expected one of %s", value, field, expected)
}

// illegalControl finds the first C0 control character other than tab, LF and CR.
func illegalControl(s string) (rune, bool) {
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return r, true
		}
	}
	return 0, false
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// specialRatio returns the share of non-space characters that are neither
// letters (CJK ideographs included) nor digits.
func specialRatio(s string) (float64, bool) {
	var total, special int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			special++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(special) / float64(total), true
}
