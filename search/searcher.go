package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/equiptrack/ai"
	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/storage"
)

const (
	// DefaultMaxHits is used when FindSimilar is called with a non-positive maxHits.
	DefaultMaxHits = 10

	// SuggestionContext is the number of similar problems handed to the advisor.
	SuggestionContext = 5

	// verbatimBoost is added to problems containing every query word.
	verbatimBoost = 0.3
)

// Searcher retrieves similar problems and design suggestions.
type Searcher struct {
	store         storage.Store
	index         index.Index
	advisor       ai.DesignAdvisor
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the lowest similarity a hit may have.
// Default is 0, which keeps every hit.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < 0 || min > 1 {
			return fmt.Errorf("minimum similarity %v out of range [0, 1]", min)
		}
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.Store, idx index.Index, advisor ai.DesignAdvisor, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if advisor == nil {
		return nil, ErrAdvisorRequired
	}

	s := &Searcher{
		store:   store,
		index:   idx,
		advisor: advisor,
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// FindSimilar searches for problems similar to the query.
// Returns up to maxHits results, ranked by score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.ProblemMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	matches, err := s.index.Search(ctx, query, maxHits, s.minSimilarity)
	if err != nil {
		s.logger.Error("error querying for similar problems", "query", query, "err", err)
		return nil, err
	}
	if len(matches) == 0 {
		return []*core.ProblemMatch{}, nil
	}

	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	problems, err := s.store.GetProblems(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving problems", "count", len(ids), "err", err)
		return nil, err
	}
	byID := make(map[core.ID]*core.Problem, len(problems))
	for _, p := range problems {
		byID[p.Id] = p
	}

	results := make([]*core.ProblemMatch, 0, len(matches))
	for _, m := range matches {
		p, ok := byID[m.ID]
		if !ok {
			// Indexed but no longer in the store; a reindex drops it.
			s.logger.Debug("skipping stale index entry", "problem_id", m.ID)
			continue
		}

		score := m.Similarity
		if containsAllQueryWords(p.Title+" "+p.Description, query) {
			score += verbatimBoost
		}
		results = append(results, &core.ProblemMatch{
			Problem:           p,
			EquipmentTypeName: s.equipmentTypeName(ctx, p, m.Metadata),
			Similarity:        m.Similarity,
			Score:             score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	return results, nil
}

func (s *Searcher) equipmentTypeName(ctx context.Context, p *core.Problem, metadata map[string]string) string {
	if p.EquipmentTypeID == 0 {
		return ""
	}
	if name := metadata[index.MetaEquipmentType]; name != "" {
		return name
	}
	et, err := s.store.GetEquipmentType(ctx, p.EquipmentTypeID)
	if err != nil {
		s.logger.Warn("error looking up equipment type", "equipment_type_id", p.EquipmentTypeID, "err", err)
		return ""
	}
	return et.Name
}

// Suggestion is the result of SuggestDesign.
type Suggestion struct {
	Query    string
	Text     string
	Similar  []*core.ProblemMatch
	Fallback bool // the advisor failed and Text is the fixed checklist
}

// SuggestDesign asks the advisor for design advice informed by the problems
// most similar to query. A failed similarity search leaves the advisor
// without history; a failed advisor yields FallbackSuggestion.
func (s *Searcher) SuggestDesign(ctx context.Context, query string) (*Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	similar, err := s.FindSimilar(ctx, query, SuggestionContext)
	if err != nil {
		s.logger.Warn("similar problem search failed, advising without history", "err", err)
		similar = nil
	}

	history := make([]ai.HistoricalProblem, len(similar))
	for i, m := range similar {
		history[i] = ai.HistoricalProblem{
			Title:       m.Problem.Title,
			Description: m.Problem.Description,
			AIAnalysis:  m.Problem.AIAnalysis,
			Solution:    m.Problem.Solution,
			Phase:       m.Problem.Phase,
			Similarity:  m.Similarity,
		}
	}

	suggestion := &Suggestion{Query: query, Similar: similar}
	text, err := s.advisor.SuggestDesign(ctx, query, history)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn("design advisor failed, using fallback suggestion", "err", err)
		suggestion.Text = FallbackSuggestion(query)
		suggestion.Fallback = true
		return suggestion, nil
	}
	suggestion.Text = text
	return suggestion, nil
}

// FallbackSuggestion is the fixed checklist returned when no advisor answer is available.
func FallbackSuggestion(query string) string {
	return fmt.Sprintf("Based on historical data, the following design suggestions apply to %q:\n\n"+
		"1. Pay particular attention to material selection during design\n"+
		"2. Add redundancy to improve reliability\n"+
		"3. Consider environmental effects on the equipment", query)
}
