package eventapi

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sevenofnine/smartevent-bridge/internal/domain"
	"github.com/sevenofnine/smartevent-bridge/internal/normalize"
)

// Payload is the write shape expected by the remote event API.
type Payload struct {
	ID                 any    `json:"id,omitempty"`
	Titre              string `json:"titre"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	Lieu               string `json:"lieu"`
	DateDebut          string `json:"dateDebut,omitempty"`
	DateFin            string `json:"dateFin,omitempty"`
	CapaciteMax        int    `json:"capaciteMax"`
	NombreParticipants *int   `json:"nombreParticipants,omitempty"`
	ImageURL           string `json:"imageUrl,omitempty"`
}

// PayloadFrom converts e to the wire shape. Numeric ids are sent as numbers.
func PayloadFrom(e domain.Event) Payload {
	p := Payload{
		Titre:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Lieu:        e.Location,
		DateDebut:   formatDate(e.StartDate),
		DateFin:     formatDate(e.EndDate),
		CapaciteMax: e.Capacity,
		ImageURL:    e.Image,
	}
	if e.ID != "" {
		if n, err := strconv.ParseInt(string(e.ID), 10, 64); err == nil {
			p.ID = n
		} else {
			p.ID = string(e.ID)
		}
	}
	return p
}

// Record re-reads the payload as the API would echo it back.
func (p Payload) Record() normalize.Record {
	data, err := json.Marshal(p)
	if err != nil {
		return normalize.Record{}
	}
	r, err := normalize.DecodeRecord(data)
	if err != nil || r == nil {
		return normalize.Record{}
	}
	return r
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
