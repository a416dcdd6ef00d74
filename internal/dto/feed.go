package dto

// FeedRecord mirrors one element of the upstream weekly timetable feed.
// The feed has shipped two field sets over time, so the alternate names are
// carried as fallbacks.
type FeedRecord struct {
	Intake     string `json:"INTAKE"`
	ModID      string `json:"MODID"`
	Module     string `json:"MODULE"`
	ModuleName string `json:"MODULE_NAME"`
	Room       string `json:"ROOM"`
	Grouping   string `json:"GROUPING"`
	TimeFrom   string `json:"TIME_FROM_ISO"`
	TimeTo     string `json:"TIME_TO_ISO"`
	StartTime  string `json:"START_TIME"`
	EndTime    string `json:"END_TIME"`
}

// ModuleCode resolves the module identifier across feed variants.
func (r FeedRecord) ModuleCode() string {
	if r.ModID != "" {
		return r.ModID
	}
	return r.Module
}

// From resolves the start timestamp across feed variants.
func (r FeedRecord) From() string {
	if r.TimeFrom != "" {
		return r.TimeFrom
	}
	return r.StartTime
}

// To resolves the end timestamp across feed variants.
func (r FeedRecord) To() string {
	if r.TimeTo != "" {
		return r.TimeTo
	}
	return r.EndTime
}
