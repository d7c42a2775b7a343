package flow

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a flow build.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFail:
		return true
	}
	return false
}

// Frame holds the pixel dimensions of the recording's frames. Every screen of
// a flow shares them.
type Frame struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultFrame is used until the first frame of a recording has been read.
var DefaultFrame = Frame{Width: 480, Height: 270}

// Prediction is one detection event reported by the inference oracle. Index
// addresses a frame of the recording; TimeIn and TimeOut bound the interval
// during which that screen was visible.
type Prediction struct {
	Index   int     `json:"index" yaml:"index"`
	TimeIn  float64 `json:"time_in" yaml:"time_in"`
	TimeOut float64 `json:"time_out" yaml:"time_out"`
}

// Flow is a collection of screens and connections describing one recorded UI
// walkthrough.
type Flow struct {
	ID          string
	Title       string
	Description string
	// Ordinal is the 1-based position of the flow among the flows sharing
	// its title, fixed when the flow is first built. Zero means unassigned.
	// Asset file names carry it.
	Ordinal     int
	Status      Status
	Frame       Frame
	CreatedAt   time.Time
	Graph       *Graph
}

// New creates a pending flow with a fresh identifier and an empty graph.
func New(title, description string) *Flow {
	return &Flow{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      StatusPending,
		Frame:       DefaultFrame,
		CreatedAt:   time.Now().UTC(),
		Graph:       NewGraph(),
	}
}

// ValidID reports whether id is a well-formed flow identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
