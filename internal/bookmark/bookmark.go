// Package bookmark keeps a user's bookmarks inside their preferences blob.
package bookmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
)

const preferencesKey = "bookmarks"

// ErrInvalid is returned for a bookmark with neither id nor path.
var ErrInvalid = errors.New("bookmark needs an id or a path")

// Bookmark points at a catalogue item.
type Bookmark struct {
	ID         string `json:"id,omitempty"`
	Path       string `json:"path,omitempty"`
	Label      string `json:"label,omitempty"`
	DomainType string `json:"domainType,omitempty"`
}

// key identifies a bookmark by id, falling back to path.
func (b Bookmark) key() string {
	if b.ID != "" {
		return "id:" + b.ID
	}
	return "path:" + b.Path
}

// Service reads and writes bookmarks through the preferences collaborator.
// Writes are serialised so concurrent adds in this process do not lose updates.
type Service struct {
	prefs catalogue.PreferencesClient
	mu    sync.Mutex
}

func NewService(prefs catalogue.PreferencesClient) *Service {
	return &Service{prefs: prefs}
}

// List returns the user's bookmarks in stored order.
func (s *Service) List(ctx context.Context, userID string) ([]Bookmark, error) {
	_, list, err := s.load(ctx, userID)
	return list, err
}

// IsBookmarked reports whether b is in the user's collection.
func (s *Service) IsBookmarked(ctx context.Context, userID string, b Bookmark) (bool, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}
	return indexOf(list, b) >= 0, nil
}

// Add appends b unless an equal bookmark is already stored.
func (s *Service) Add(ctx context.Context, userID string, b Bookmark) ([]Bookmark, error) {
	if b.ID == "" && b.Path == "" {
		return nil, ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if indexOf(list, b) >= 0 {
		return list, nil
	}
	list = append(list, b)
	return list, s.save(ctx, userID, prefs, list)
}

// Remove deletes b if present; removing a non-member is a no-op.
func (s *Service) Remove(ctx context.Context, userID string, b Bookmark) ([]Bookmark, error) {
	return s.remove(ctx, userID, func(list []Bookmark) int { return indexOf(list, b) })
}

// RemoveKey deletes the bookmark whose id, or failing that path, equals key.
func (s *Service) RemoveKey(ctx context.Context, userID, key string) ([]Bookmark, error) {
	return s.remove(ctx, userID, func(list []Bookmark) int {
		if i := indexOf(list, Bookmark{ID: key}); i >= 0 {
			return i
		}
		return indexOf(list, Bookmark{Path: key})
	})
}

func (s *Service) remove(ctx context.Context, userID string, find func([]Bookmark) int) ([]Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := find(list)
	if i < 0 {
		return list, nil
	}
	list = append(list[:i], list[i+1:]...)
	return list, s.save(ctx, userID, prefs, list)
}

func indexOf(list []Bookmark, b Bookmark) int {
	for i, existing := range list {
		if existing.key() == b.key() {
			return i
		}
		// a stored bookmark is also matched by its path
		if b.ID == "" && b.Path != "" && existing.Path == b.Path {
			return i
		}
	}
	return -1
}

func (s *Service) load(ctx context.Context, userID string) (map[string]json.RawMessage, []Bookmark, error) {
	raw, err := s.prefs.GetUserPreferences(ctx, userID)
	if err != nil {
		if catalogue.IsNotFound(err) {
			return map[string]json.RawMessage{}, []Bookmark{}, nil
		}
		return nil, nil, fmt.Errorf("get preferences of %s: %w", userID, err)
	}
	prefs := map[string]json.RawMessage{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return nil, nil, fmt.Errorf("decode preferences of %s: %w", userID, err)
		}
	}
	list := []Bookmark{}
	if data, ok := prefs[preferencesKey]; ok && string(data) != "null" {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, nil, fmt.Errorf("decode bookmarks of %s: %w", userID, err)
		}
	}
	return prefs, list, nil
}

func (s *Service) save(ctx context.Context, userID string, prefs map[string]json.RawMessage, list []Bookmark) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	prefs[preferencesKey] = data
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := s.prefs.SaveUserPreferences(ctx, userID, raw); err != nil {
		return fmt.Errorf("save preferences of %s: %w", userID, err)
	}
	return nil
}
