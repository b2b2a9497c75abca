package model

// Summary holds every derived statistic for one reference month.
type Summary struct {
	Month Month `json:"month"`
	Today Date  `json:"today"`

	DaysPassed  int `json:"days_passed"`
	CleanDays   int `json:"clean_days"`
	TokensUsed  int `json:"tokens_used"`
	TokensLeft  int `json:"tokens_left"`
	FailedDays  int `json:"failed_days"`  // days passed that are neither CLEAN nor HEART
	SuccessRate int `json:"success_rate"` // integer percent, 0-100

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	YearCleanDays  int `json:"year_clean_days"` // CLEAN days in Month.Year
	TotalCleanDays int `json:"total_clean_days"`
	TotalTokens    int `json:"total_tokens"`
}

// MonthRate is one point of a month-by-month success trend.
type MonthRate struct {
	Month       Month `json:"month"`
	SuccessRate int   `json:"success_rate"`
	CleanDays   int   `json:"clean_days"`
	TokensUsed  int   `json:"tokens_used"`
}

// DayCell is one calendar-grid position for rendering.
type DayCell struct {
	Date    Date
	Status  DayStatus // zero when unmarked
	Marked  bool
	IsToday bool
	Future  bool
}
