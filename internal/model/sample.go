package model

import (
	"fmt"
	"time"
)

// EventKind tags a sample as taken on the way into or out of sleep.
type EventKind string

const (
	EventEnter EventKind = "enter"
	EventExit  EventKind = "exit"
)

// ParseEventKind maps a hook phase or stored code to an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	switch s {
	case "enter", "pre":
		return EventEnter, nil
	case "exit", "post":
		return EventExit, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Sample is one battery reading taken at a sleep transition. Rows are only
// ever inserted.
type Sample struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time `gorm:"not null;index"`
	EnergyLevel uint64    `gorm:"not null"`
	EventKind   EventKind `gorm:"size:8;not null"`
	SleepAction string    `gorm:"size:32"`
	SleepMode   string    `gorm:"size:32"`
	BiosVersion string    `gorm:"size:128"`
	// OnAC marks an ENTER taken while plugged in. It takes part in pairing
	// but the resulting interval is never analysed.
	OnAC        bool
}
