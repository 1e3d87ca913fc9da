package types

import "time"

// ObligationStatus is the derived state of a maintenance obligation. The
// values are the labels the mobile client renders, so they stay in Spanish.
type ObligationStatus string

const (
	StatusOnTrack   ObligationStatus = "Vigente"
	StatusDueSoon   ObligationStatus = "Próximo"
	StatusOverdue   ObligationStatus = "Plazo Incumplido"
	StatusCompleted ObligationStatus = "Realizado"
)

// Obligation is a recurring maintenance requirement attached to a machine.
// Status is a cached value; readers recompute it from DueDate.
type Obligation struct {
	Type       string           `json:"tipo" yaml:"tipo"`
	Status     ObligationStatus `json:"estado" yaml:"estado,omitempty"`
	DueDate    string           `json:"fecha_limite" yaml:"fecha_limite"`
	RecordedAt time.Time        `json:"fecha_registro" yaml:"-"`
}

// HistoryEntry records one completed obligation. DueDate is the due date the
// obligation had when it was completed, not the rescheduled one.
type HistoryEntry struct {
	Type       string           `json:"tipo"`
	Status     ObligationStatus `json:"estado"`
	DueDate    string           `json:"fecha_limite"`
	RecordedAt time.Time        `json:"fecha_registro"`
}

// Machine is a piece of lab equipment and the unit of persistence: the
// obligations and the history travel with it as one document.
type Machine struct {
	ID          string         `json:"_id"`
	Name        string         `json:"nombre"`
	Laboratory  string         `json:"laboratorio"`
	Obligations ObligationList `json:"mantenimientos"`
	History     HistoryList    `json:"historial"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate obligations and history
// without touching the original.
func (m *Machine) Clone() *Machine {
	if m == nil {
		return nil
	}
	out := *m
	if m.Obligations != nil {
		out.Obligations = make(ObligationList, len(m.Obligations))
		copy(out.Obligations, m.Obligations)
	}
	if m.History != nil {
		out.History = make(HistoryList, len(m.History))
		copy(out.History, m.History)
	}
	return &out
}

// FindObligation returns the index of the first obligation whose type is
// exactly t, or -1.
func (m *Machine) FindObligation(t string) int {
	for i := range m.Obligations {
		if m.Obligations[i].Type == t {
			return i
		}
	}
	return -1
}
