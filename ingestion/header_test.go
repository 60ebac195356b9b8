package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHeaders(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		wantValid   bool
		wantMissing []Field
	}{
		{"english", []string{"title", "description", "equipment_type", "phase"}, true, nil},
		{"chinese", []string{"标题", "描述", "设备类型"}, true, nil},
		{"aliases", []string{"issue", "reason"}, true, nil},
		{"case and asterisk", []string{"Title*", "DESCRIPTION*"}, true, nil},
		{"surrounding spaces", []string{" title ", "  details"}, true, nil},
		{"bom on first header", []string{"\ufefftitle", "description"}, true, nil},
		{"missing description", []string{"title", "phase"}, false, []Field{FieldDescription}},
		{"missing both", []string{"foo", "bar"}, false, []Field{FieldTitle, FieldDescription}},
		{"empty", nil, false, []Field{FieldTitle, FieldDescription}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ValidateHeaders(tt.headers)
			assert.Equal(t, tt.wantValid, report.Valid)
			assert.Equal(t, tt.wantMissing, report.Missing)
			assert.Len(t, report.Headers, len(tt.headers))
			if !tt.wantValid {
				assert.Contains(t, report.Message, "missing required columns")
			}
		})
	}
}

func TestValidateHeaders_MessageListsAliases(t *testing.T) {
	report := ValidateHeaders([]string{"title"})
	assert.Contains(t, report.Message, "description or reason")
	assert.Contains(t, report.Message, "描述")
}

func TestValidateHeaders_TrimsHeaders(t *testing.T) {
	report := ValidateHeaders([]string{" Title ", "\ufeffdescription"})
	assert.Equal(t, []string{"Title", "description"}, report.Headers)
}
