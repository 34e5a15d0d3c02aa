package model

import "time"

// BookEntry is one symbol's persisted position state.
type BookEntry struct {
	Status      PositionStatus `json:"position_status"`
	EntryDate   string         `json:"entry_date,omitempty"`
	EntryPrice  float64        `json:"entry_price,omitempty"`
	Exit1       float64        `json:"exit1,omitempty"`
	LastAction  Action         `json:"last_action,omitempty"`
	LastTradeAt string         `json:"last_trade_day,omitempty"`
}

// BookState is the on-disk position book.
type BookState struct {
	Entries   map[string]*BookEntry `json:"entries"`
	UpdatedAt time.Time             `json:"updated_at"`
}
