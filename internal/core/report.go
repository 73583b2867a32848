package core

// Statistics summarizes the sales of one calendar month.
type Statistics struct {
	TotalSaleAmount   float64 `json:"totalSaleAmount"`
	TotalSoldItems    int64   `json:"totalSoldItems"`
	TotalNotSoldItems int64   `json:"totalNotSoldItems"`
}

// BarChartEntry is the number of records falling in one price bucket.
type BarChartEntry struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// CategoryCount is the number of records carrying one category label.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// AllData composes the three monthly reports.
type AllData struct {
	Statistics Statistics      `json:"statistics"`
	BarChart   []BarChartEntry `json:"barChart"`
	PieChart   []CategoryCount `json:"pieChart"`
}
