package matching

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"

	"works-matching-backend/internal/config"
	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/models"
	"works-matching-backend/internal/repository"
)

const candidateLimit = 20

// Outcome buckets for batch counters.
const (
	OutcomeMatched   = "matched"
	OutcomeFlagged   = "flagged"
	OutcomeUnmatched = "unmatched"
)

type indexedWork struct {
	work        models.Work
	title       string
	songwriters []string
	trigrams    map[string]struct{}
}

// Engine matches usage records against an in-memory index of the works
// catalog. The index is loaded once and refreshed explicitly; the catalog is
// read-only so there is no invalidation concern.
type Engine struct {
	cfg   *config.Config
	works *repository.WorkRepository
	log   *logger.Logger

	mu    sync.RWMutex
	index []indexedWork
}

func NewEngine(cfg *config.Config, works *repository.WorkRepository, log *logger.Logger) *Engine {
	return &Engine{
		cfg:   cfg,
		works: works,
		log:   log.With("component", "matching"),
	}
}

// LoadCatalog builds the in-memory index from the works table.
func (e *Engine) LoadCatalog() error {
	works, err := e.works.GetAll()
	if err != nil {
		return err
	}

	index := make([]indexedWork, 0, len(works))
	for _, w := range works {
		entry := indexedWork{
			work:     w,
			title:    normalizeText(w.Title),
			trigrams: trigramSet(normalizeText(w.Title)),
		}
		var names []string
		if len(w.Songwriters) > 0 {
			_ = json.Unmarshal(w.Songwriters, &names)
		}
		for _, name := range names {
			entry.songwriters = append(entry.songwriters, normalizeText(name))
		}
		index = append(index, entry)
	}

	e.mu.Lock()
	e.index = index
	e.mu.Unlock()

	e.log.Info("catalog index loaded", "works", len(index))
	return nil
}

type scored struct {
	entry         *indexedWork
	titleSim      float64
	songwriterSim float64
	vectorSim     float64
	confidence    float64
}

// MatchRecord scores a usage record against the catalog and returns match
// rows for every candidate at or above the low-confidence threshold. An
// empty result means the record is unmatched.
func (e *Engine) MatchRecord(rec *models.UsageRecord) []models.Match {
	title := rec.WorkTitle
	if title == "" {
		title = rec.RecordingTitle
	}
	if title == "" {
		return nil
	}

	normTitle := normalizeText(title)
	normWriter := normalizeText(rec.Songwriter)
	recTrigrams := trigramSet(normTitle)

	e.mu.RLock()
	defer e.mu.RUnlock()

	// Cheap trigram pass first to cut the candidate set down.
	candidates := make([]scored, 0, candidateLimit)
	for i := range e.index {
		entry := &e.index[i]
		vectorSim := trigramSimilarity(recTrigrams, entry.trigrams)
		if vectorSim < 0.2 && !strings.Contains(entry.title, normTitle) {
			continue
		}
		candidates = append(candidates, scored{entry: entry, vectorSim: vectorSim})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].vectorSim > candidates[j].vectorSim
	})
	if len(candidates) > candidateLimit {
		candidates = candidates[:candidateLimit]
	}

	var matches []models.Match
	for i := range candidates {
		c := &candidates[i]
		c.titleSim = titleSimilarity(normTitle, c.entry.title)
		c.songwriterSim = songwriterSimilarity(normWriter, c.entry.songwriters)

		// Title 40%, songwriter 30%, vector 30%; boosted when both text
		// components agree strongly.
		c.confidence = 0.4*c.titleSim + 0.3*c.songwriterSim + 0.3*c.vectorSim
		if c.titleSim > 0.8 && c.songwriterSim > 0.7 {
			c.confidence = math.Min(1.0, c.confidence*1.1)
		}

		matchType := e.classify(c.confidence)
		if matchType == "" {
			continue
		}

		titleSim := round4(c.titleSim)
		songwriterSim := round4(c.songwriterSim)
		vectorSim := round4(c.vectorSim)
		matches = append(matches, models.Match{
			UsageRecordID:        rec.ID,
			WorkID:               c.entry.work.ID,
			ConfidenceScore:      round4(c.confidence),
			MatchType:            matchType,
			TitleSimilarity:      &titleSim,
			SongwriterSimilarity: &songwriterSim,
			VectorSimilarity:     &vectorSim,
		})
	}
	return matches
}

func (e *Engine) classify(confidence float64) string {
	switch {
	case confidence >= e.cfg.ExactThreshold:
		return models.MatchExact
	case confidence >= e.cfg.HighThreshold:
		return models.MatchHighConfidence
	case confidence >= e.cfg.MediumThreshold:
		return models.MatchMediumConfidence
	case confidence >= e.cfg.LowThreshold:
		return models.MatchLowConfidence
	default:
		return ""
	}
}

// Outcome buckets a record's matches for the batch counters. A record whose
// best match is exact, high confidence, or AI-adjudicated counts as matched;
// anything lower is flagged for review; no matches means unmatched.
func Outcome(matches []models.Match) string {
	if len(matches) == 0 {
		return OutcomeUnmatched
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.ConfidenceScore > best.ConfidenceScore {
			best = m
		}
	}
	switch best.MatchType {
	case models.MatchExact, models.MatchHighConfidence, models.MatchAIMatched:
		return OutcomeMatched
	default:
		return OutcomeFlagged
	}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
