package dto

// StudentFilter narrows the student listing.
type StudentFilter struct {
	Search   string `form:"search"`
	Sort     string `form:"sort" validate:"omitempty,oneof=total semester name"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=500"`
}

// StudentSummary is the list representation of a student.
type StudentSummary struct {
	Name          string   `json:"name"`
	Class         string   `json:"class,omitempty"`
	Total         float64  `json:"total"`
	SemesterScore *float64 `json:"semester_score,omitempty"`
	LogCount      int      `json:"log_count"`
	Hidden        bool     `json:"hidden_from_podium,omitempty"`
}

// LeaderboardQuery selects the ranking mode.
type LeaderboardQuery struct {
	Mode  string `form:"mode" validate:"omitempty,oneof=regular semester"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// LeaderboardEntry is one ranked student.
type LeaderboardEntry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Class string  `json:"class,omitempty"`
	Score float64 `json:"score"`
}
