package dto

// VocabularyAction is one recognised behaviour and its score.
type VocabularyAction struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// VocabularyResponse lists the active behaviour vocabulary.
type VocabularyResponse struct {
	Actions   []VocabularyAction `json:"actions"`
	IsDefault bool               `json:"is_default"`
}

// UpdateVocabularyRequest replaces the behaviour vocabulary.
type UpdateVocabularyRequest struct {
	Scores map[string]float64 `json:"scores" validate:"required,min=1,dive,keys,action_name,endkeys"`
}
