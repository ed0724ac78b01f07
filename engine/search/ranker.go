package search

import (
	"sort"
	"strings"

	"github.com/snapseek/snapseek/engine/classify"
	"github.com/snapseek/snapseek/engine/vectordb"
)

// Candidate is one ranked catalog image with the metadata recorded at
// ingestion time.
type Candidate struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Filename    string  `json:"filename,omitempty"`
	Filepath    string  `json:"filepath,omitempty"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
	ProductID   string  `json:"product_id,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	ImageSize   string  `json:"image_size,omitempty"`
}

// Diagnostics records how many candidates survived each ranking stage plus
// the thresholds and classifier verdicts that shaped the outcome. Degraded
// marks the case where raw candidates existed but filtering removed them all.
type Diagnostics struct {
	RawCandidates   int                     `json:"raw_candidates"`
	AfterSimilarity int                     `json:"after_similarity"`
	AfterCategory   int                     `json:"after_category"`
	AfterType       int                     `json:"after_type"`
	Returned        int                     `json:"returned"`
	MinSimilarity   float64                 `json:"min_similarity"`
	SecondaryFloor  float64                 `json:"secondary_floor"`
	Gate            classify.GateVerdict    `json:"gate"`
	Type            classify.TypePrediction `json:"type"`
	Degraded        bool                    `json:"degraded"`
}

// RankerConfig holds the tunable thresholds of the filtering pipeline.
type RankerConfig struct {
	MinSimilarity  float64
	SecondaryFloor float64
	OverfetchFac   int
	HardCap        int
}

// Overfetch returns how many raw neighbors to request for a given topK. The
// factor compensates for the filter stages thinning the candidate set; the
// hard cap bounds worst-case query cost.
func (c RankerConfig) Overfetch(topK int) int {
	n := topK * c.OverfetchFac
	if n > c.HardCap {
		n = c.HardCap
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Rank applies the filter pipeline to raw index matches: similarity floor,
// category filter, sub-type soft filter, stable sort, truncate. It never
// fails; an empty result with prior raw candidates is reported as degraded
// through the diagnostics.
func Rank(
	matches []vectordb.Match,
	category string,
	prediction classify.TypePrediction,
	keywords []string,
	topK int,
	cfg RankerConfig,
) ([]Candidate, Diagnostics) {
	diag := Diagnostics{
		RawCandidates:  len(matches),
		MinSimilarity:  cfg.MinSimilarity,
		SecondaryFloor: cfg.SecondaryFloor,
		Type:           prediction,
	}
	candidates := make([]Candidate, 0, len(matches))
	for i := range matches {
		if matches[i].Score < cfg.MinSimilarity {
			continue
		}
		candidates = append(candidates, candidateFromMatch(matches[i]))
	}
	diag.AfterSimilarity = len(candidates)
	kept := candidates[:0]
	for i := range candidates {
		// Entries indexed before category tracking carry no label and are
		// kept on purpose.
		if candidates[i].Category != "" && candidates[i].Category != category {
			continue
		}
		kept = append(kept, candidates[i])
	}
	candidates = kept
	diag.AfterCategory = len(candidates)
	if prediction.Known {
		kept = candidates[:0]
		for i := range candidates {
			if matchesKeywords(candidates[i], keywords) || candidates[i].Score >= cfg.SecondaryFloor {
				kept = append(kept, candidates[i])
			}
		}
		candidates = kept
	}
	diag.AfterType = len(candidates)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	diag.Returned = len(candidates)
	diag.Degraded = diag.Returned == 0 && diag.RawCandidates > 0
	return candidates, diag
}

// matchesKeywords tests whether any keyword appears, case-insensitively, in
// the candidate's filename, product name, subcategory, or catalog path. The
// fields are hints, not ground truth, so a very strong visual match survives
// even without a hit.
func matchesKeywords(c Candidate, keywords []string) bool {
	fields := []string{c.Filename, c.ProductName, c.Subcategory, c.Filepath}
	for _, keyword := range keywords {
		lower := strings.ToLower(keyword)
		for _, field := range fields {
			if field == "" {
				continue
			}
			if strings.Contains(strings.ToLower(field), lower) {
				return true
			}
		}
	}
	return false
}

func candidateFromMatch(m vectordb.Match) Candidate {
	c := Candidate{ID: m.ID, Score: m.Score}
	c.Filename = metaString(m.Metadata, "filename")
	c.Filepath = metaString(m.Metadata, "filepath")
	c.Category = metaString(m.Metadata, "category")
	c.Subcategory = metaString(m.Metadata, "subcategory")
	c.ProductID = metaString(m.Metadata, "product_id")
	c.ProductName = metaString(m.Metadata, "product_name")
	c.ImageSize = metaString(m.Metadata, "image_size")
	return c
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if value, ok := meta[key].(string); ok {
		return value
	}
	return ""
}
