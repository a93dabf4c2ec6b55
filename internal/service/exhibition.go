package service

import (
	"context"
	"encoding/json"

	"github.com/eventhall/eventhall/internal/domain"
)

// Exhibitor is one booth configured on a room's exhibition module.
type Exhibitor struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tagline string   `json:"tagline,omitempty"`
	Text    string   `json:"text,omitempty"`
	Logo    string   `json:"logo,omitempty"`
	Staff   []string `json:"staff,omitempty"`
}

// ExhibitionService reads exhibitor booths out of room module configuration.
// Booths are static per room; contact requests flow to the booth staff's
// user channels.
type ExhibitionService struct{}

func NewExhibitionService() *ExhibitionService {
	return &ExhibitionService{}
}

// List returns the exhibitors configured on a room.
func (s *ExhibitionService) List(room *domain.Room) ([]Exhibitor, error) {
	module, err := room.Module("exhibition")
	if err != nil || module == nil {
		return nil, ErrNotFound
	}
	raw, ok := module.Config["exhibitors"]
	if !ok {
		return []Exhibitor{}, nil
	}
	// Config is decoded generically; round-trip through JSON to get the
	// typed form.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, ErrInvalidInput
	}
	var exhibitors []Exhibitor
	if err := json.Unmarshal(encoded, &exhibitors); err != nil {
		return nil, ErrInvalidInput
	}
	return exhibitors, nil
}

// Get returns one exhibitor of a room.
func (s *ExhibitionService) Get(room *domain.Room, exhibitorID string) (*Exhibitor, error) {
	exhibitors, err := s.List(room)
	if err != nil {
		return nil, err
	}
	for i := range exhibitors {
		if exhibitors[i].ID == exhibitorID {
			return &exhibitors[i], nil
		}
	}
	return nil, ErrNotFound
}

// Contact resolves the staff user ids that should be notified of a contact
// request for a booth.
func (s *ExhibitionService) Contact(ctx context.Context, room *domain.Room, exhibitorID string, requester *domain.User) ([]string, error) {
	if requester.IsBanned() {
		return nil, ErrPermissionDenied
	}
	exhibitor, err := s.Get(room, exhibitorID)
	if err != nil {
		return nil, err
	}
	if len(exhibitor.Staff) == 0 {
		return nil, ErrNotFound
	}
	return exhibitor.Staff, nil
}
