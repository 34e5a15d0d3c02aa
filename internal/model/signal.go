package model

import "time"

// Action is the next-open instruction derived from a signal evaluation.
type Action string

const (
	ActionBuy  Action = "B"
	ActionSell Action = "S"
	ActionNone Action = "N"
)

// PositionStatus mirrors the flat/in-position flag of the position store.
type PositionStatus string

const (
	StatusFlat       PositionStatus = "F"
	StatusInPosition PositionStatus = "I"
)

// Position is the open trade a sell evaluation is run against.
type Position struct {
	EntryDate   time.Time
	EntryPrice  float64
	CurrentStop float64
}

// SignalResult is the output of one evaluation of one symbol on one trade date.
type SignalResult struct {
	Symbol      string
	TradeDate   time.Time
	Status      PositionStatus
	Rules       map[string]bool
	Errors      map[string]string
	IsBuy       bool
	IsSell      bool
	Action      Action
	StopLoss    float64 // NaN when undefined
	EnergyScore float64
	Close       float64
	EntryPrice  float64
	Energy      []EnergyRecord
}

// Flag is a tri-state energy sub-indicator value.
type Flag int8

const (
	FlagNA  Flag = -1
	FlagOff Flag = 0
	FlagOn  Flag = 1
)

func (f Flag) String() string {
	switch f {
	case FlagOn:
		return "1"
	case FlagOff:
		return "0"
	default:
		return "N/A"
	}
}

// Defined reports whether the flag carries a boolean value.
func (f Flag) Defined() bool { return f == FlagOn || f == FlagOff }

// FlagOf converts a boolean to FlagOn/FlagOff.
func FlagOf(b bool) Flag {
	if b {
		return FlagOn
	}
	return FlagOff
}

// EnergyRecord holds E1..E5 for one evaluated bar.
type EnergyRecord struct {
	Date     time.Time
	E        [5]Flag
	IsLatest bool
}
