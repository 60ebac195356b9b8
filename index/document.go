package index

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/poiesic/equiptrack/core"
)

const (
	// MaxContentLength bounds the embedded text in characters.
	MaxContentLength = 5000

	// MaxDescriptionLength is the longest description accepted for indexing.
	MaxDescriptionLength = 10000
)

// Metadata keys stored with every document.
const (
	MetaProblemID     = "problem_id"
	MetaTitle         = "title"
	MetaEquipmentType = "equipment_type"
	MetaPhase         = "phase"
	MetaPriority      = "priority"
	MetaStatus        = "status"
	MetaDiscoveredBy  = "discovered_by"
	MetaDiscoveredAt  = "discovered_at"
)

// Document is the unit pushed into the index.
type Document struct {
	ID          core.ID
	Title       string
	Description string
	Metadata    map[string]string
}

// DocumentFromProblem builds the index document for a persisted problem.
func DocumentFromProblem(p *core.Problem, equipmentTypeName string) Document {
	meta := map[string]string{
		MetaProblemID:     strconv.FormatUint(uint64(p.Id), 10),
		MetaTitle:         p.Title,
		MetaEquipmentType: equipmentTypeName,
		MetaPhase:         string(p.Phase),
		MetaPriority:      string(p.Priority),
		MetaStatus:        string(p.Status),
		MetaDiscoveredBy:  p.DiscoveredBy,
		MetaDiscoveredAt:  "",
	}
	if p.DiscoveredAt != nil {
		meta[MetaDiscoveredAt] = p.DiscoveredAt.Format(time.DateOnly)
	}
	return Document{
		ID:          p.Id,
		Title:       p.Title,
		Description: p.Description,
		Metadata:    meta,
	}
}

// Content returns the text that is embedded for the document.
func (d Document) Content() string {
	return truncate(d.Title+" "+d.Description, MaxContentLength)
}

// Validate checks that the document can be indexed.
func (d Document) Validate() error {
	if d.ID == 0 {
		return fmt.Errorf("%w: missing problem id", ErrInvalidDocument)
	}
	if d.Title == "" {
		return fmt.Errorf("%w: problem %d has no title", ErrInvalidDocument, d.ID)
	}
	if n := utf8.RuneCountInString(d.Description); n > MaxDescriptionLength {
		return fmt.Errorf("%w: problem %d description is %d characters, limit %d",
			ErrInvalidDocument, d.ID, n, MaxDescriptionLength)
	}
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
