package model

type DailyUsage struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

type LimitStatus struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Max       int  `json:"max"`
}
