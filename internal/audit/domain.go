package audit

import "time"

// TimelineFilters narrows the audit trail. From and To are whole days in the
// business time zone, both inclusive.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one audit_logs entry with its actor resolved.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	ActorID  *int64         `json:"actor_id"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Query is what the repository receives: a half-open time range and raw
// limit/offset.
type Query struct {
	FromAt time.Time
	ToAt   time.Time
	Actor  *string
	Entity *string
	Action *string
	Limit  int
	Offset int
}
