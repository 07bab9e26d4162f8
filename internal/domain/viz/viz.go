package viz

// Mode is the presentation mode of a result set.
type Mode string

const (
	// ModeChart renders a chart.
	ModeChart Mode = "chart"
	// ModeTable renders a table.
	ModeTable Mode = "table"
	// ModeCard renders a single record as a card.
	ModeCard Mode = "card"
	// ModeText renders a plain-text answer.
	ModeText Mode = "text"
)

// IsValid checks membership in the closed enumeration.
func (m Mode) IsValid() bool {
	switch m {
	case ModeChart, ModeTable, ModeCard, ModeText:
		return true
	default:
		return false
	}
}

// Source tells which pass produced a decision.
type Source string

const (
	// SourceRules is the deterministic rule pass.
	SourceRules Source = "rules"
	// SourceModel is the completion model.
	SourceModel Source = "model"
)

// Decision is the classifier output.
type Decision struct {
	Mode       Mode           `json:"mode"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Source     Source         `json:"source"`
}
