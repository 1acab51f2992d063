package items

// Tier is the coarse relevance bucket derived from an AI score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierFor maps a 0-10 score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= 8:
		return TierHigh
	case score >= 6:
		return TierMedium
	default:
		return TierLow
	}
}

// Annotation is the AI relevance metadata attached to a ranked result.
// Tier is always derived from Score; build it with NewAnnotation.
type Annotation struct {
	Score  int    `json:"aiScore"`
	Tier   Tier   `json:"aiRelevance"`
	Reason string `json:"aiReason"`
}

// NewAnnotation returns an Annotation with its tier derived from score.
func NewAnnotation(score int, reason string) *Annotation {
	return &Annotation{Score: score, Tier: TierFor(score), Reason: reason}
}

// Candidate is a Record plus per-query ranking metadata. It is never
// persisted. LexicalDistance is used for ordering only and stays off the wire.
type Candidate struct {
	Record
	*Annotation
	LexicalDistance int `json:"-"`
}

// Label returns the candidate's title.
func (c Candidate) Label() string { return c.ProductName }

// Detail returns the secondary text shown to the relevance model.
func (c Candidate) Detail() string { return c.Description }

// WithAnnotation returns a copy of c carrying a.
func (c Candidate) WithAnnotation(a *Annotation) Candidate {
	c.Annotation = a
	return c
}

// Records strips ranking metadata, producing the public search shape.
func Records(cands []Candidate) []Record {
	out := make([]Record, len(cands))
	for i, c := range cands {
		out[i] = c.Record
	}
	return out
}
