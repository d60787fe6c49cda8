package distill

import "time"

// Selection describes one Distill request
type Selection struct {
	// Pattern is a directory joined with a file name wildcard, e.g. "/src/Data/*.txt".
	Pattern      string   `json:"pattern" yaml:"pattern"`
	Recursive    bool     `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	AllowMissing bool     `json:"allowMissing,omitempty" yaml:"allowMissing,omitempty"`
	MoveSymbols  bool     `json:"moveSymbols" yaml:"moveSymbols"`
	Exclusions   []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
}

// NewSelection returns a selection with default flags
func NewSelection(pattern string) Selection {
	return Selection{Pattern: pattern, MoveSymbols: true}
}

// CopyRecord describes one copied file
type CopyRecord struct {
	Source      string    `json:"source" yaml:"source"`
	Destination string    `json:"destination" yaml:"destination"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// Manifest lists copied files in enumeration order
type Manifest struct {
	Records []CopyRecord `json:"records" yaml:"records"`
}

// Paths returns the destination paths in order
func (m *Manifest) Paths() []string {
	out := make([]string, 0, len(m.Records))
	for _, r := range m.Records {
		out = append(out, r.Destination)
	}
	return out
}

// Len returns the number of copied files
func (m *Manifest) Len() int {
	return len(m.Records)
}

// Append adds the records of other to m
func (m *Manifest) Append(other *Manifest) {
	if other == nil {
		return
	}
	m.Records = append(m.Records, other.Records...)
}
