package model

// CandidateScore is one ranked condition produced by a ranker. Rankers return
// candidates ordered by FinalScore, highest first.
type CandidateScore struct {
	Name            string  `json:"name"`
	SimilarityScore float64 `json:"similarity_score"`
	AuxScore        float64 `json:"aux_score"`
	FinalScore      float64 `json:"final_score"`
	Rationale       string  `json:"rationale,omitempty"`
}

// EnrichedCandidate is a candidate merged with its knowledge base record,
// derived follow-up signals, risk and optional external lookup.
type EnrichedCandidate struct {
	Name             string            `json:"name"`
	FinalScore       float64           `json:"final_score"`
	SimilarityScore  float64           `json:"similarity_score"`
	AuxScore         float64           `json:"aux_score"`
	Rationale        string            `json:"rationale,omitempty"`
	KB               *ConditionRecord  `json:"kb"`
	MissingSymptoms  []string          `json:"missing_symptoms"`
	FollowUpQuestion *FollowUpQuestion `json:"follow_up_question"`
	Urgency          Urgency           `json:"urgency"`
	RiskScore        float64           `json:"risk_score"`
	Lookup           *LookupResult     `json:"dbpedia"`
}
