package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"wedding-rsvp/internal/models"
)

type fileData struct {
	Guests      []models.Guest              `json:"guests"`
	Undelivered []models.UndeliveredMessage `json:"undelivered"`
}

// FileStore keeps guests in a JSON file shared by the bot, the dashboard and
// the importer. Every call re-reads the file under an advisory lock on
// "<file>.lock", so separate processes see each other's writes.
type FileStore struct {
	mu   sync.Mutex
	data fileData
	file string
	lock *flock.Flock
	now  func() time.Time
}

// NewFileStore creates a new file backed store, loading filePath if it exists.
func NewFileStore(filePath string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &FileStore{
		file: filePath,
		lock: flock.New(filePath + ".lock"),
		now:  time.Now,
	}
	if err := s.read(func() error { return nil }); err != nil {
		return nil, fmt.Errorf("failed to load storage: %w", err)
	}
	return s, nil
}

// read runs fn on a fresh copy of the file under a shared lock.
func (s *FileStore) read(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		return fmt.Errorf("failed to lock storage: %w", err)
	}
	defer s.lock.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	return fn()
}

// write runs fn on a fresh copy of the file under an exclusive lock and saves
// the result when fn succeeds. fn returning errUnchanged skips the save.
func (s *FileStore) write(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock storage: %w", err)
	}
	defer s.lock.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	err := fn()
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.save()
}

var errUnchanged = errors.New("unchanged")

func (s *FileStore) indexOf(phone string) int {
	for i, g := range s.data.Guests {
		if g.PhoneNumber == phone {
			return i
		}
	}
	return -1
}

// upsert returns the index of phone, appending a not_responded guest when absent.
func (s *FileStore) upsert(phone string) int {
	if i := s.indexOf(phone); i >= 0 {
		return i
	}
	s.data.Guests = append(s.data.Guests, models.Guest{
		PhoneNumber: phone,
		RSVPStatus:  models.RSVPNotResponded,
		UpdatedAt:   s.now(),
	})
	return len(s.data.Guests) - 1
}

func (s *FileStore) GetGuest(ctx context.Context, phone string) (*models.Guest, error) {
	var g *models.Guest
	err := s.read(func() error {
		i := s.indexOf(phone)
		if i < 0 {
			return ErrGuestNotFound
		}
		found := s.data.Guests[i]
		g = &found
		return nil
	})
	return g, err
}

func (s *FileStore) GetGuestName(ctx context.Context, phone string) (string, error) {
	g, err := s.GetGuest(ctx, phone)
	if errors.Is(err, ErrGuestNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return g.Name, nil
}

func (s *FileStore) GetCategory(ctx context.Context, phone string) (string, error) {
	g, err := s.GetGuest(ctx, phone)
	if errors.Is(err, ErrGuestNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return g.Category, nil
}

func (s *FileStore) GetPendingGuests(ctx context.Context) ([]string, error) {
	var phones []string
	err := s.read(func() error {
		for _, g := range s.data.Guests {
			if g.RSVPStatus.Pending() {
				phones = append(phones, g.PhoneNumber)
			}
		}
		return nil
	})
	sort.Strings(phones)
	return phones, err
}

func (s *FileStore) ListGuests(ctx context.Context) ([]models.Guest, error) {
	var guests []models.Guest
	err := s.read(func() error {
		guests = make([]models.Guest, len(s.data.Guests))
		copy(guests, s.data.Guests)
		return nil
	})
	return guests, err
}

func (s *FileStore) UpdateRSVP(ctx context.Context, phone string, status models.RSVPStatus, attendees int) error {
	attendees, err := validateRSVP(phone, status, attendees)
	if err != nil {
		return err
	}

	return s.write(func() error {
		i := s.upsert(phone)
		s.data.Guests[i].RSVPStatus = status
		s.data.Guests[i].Attendees = attendees
		s.data.Guests[i].AwaitingCount = false
		s.data.Guests[i].Responded = true
		s.data.Guests[i].UpdatedAt = s.now()
		return nil
	})
}

func (s *FileStore) SetAwaitingCount(ctx context.Context, phone string, awaiting bool) error {
	if phone == "" {
		return ErrInvalidPhone
	}

	return s.write(func() error {
		i := s.upsert(phone)
		s.data.Guests[i].AwaitingCount = awaiting
		s.data.Guests[i].UpdatedAt = s.now()
		return nil
	})
}

func (s *FileStore) ResetDialogue(ctx context.Context, phone string) error {
	if phone == "" {
		return ErrInvalidPhone
	}

	return s.write(func() error {
		i := s.indexOf(phone)
		if i < 0 {
			return errUnchanged
		}
		s.data.Guests[i].AwaitingCount = false
		s.data.Guests[i].Responded = false
		s.data.Guests[i].UpdatedAt = s.now()
		return nil
	})
}

func (s *FileStore) UpsertGuest(ctx context.Context, guest models.Guest) error {
	if guest.PhoneNumber == "" {
		return ErrInvalidPhone
	}

	return s.write(func() error {
		if i := s.indexOf(guest.PhoneNumber); i >= 0 {
			s.data.Guests[i].Name = guest.Name
			s.data.Guests[i].InvitedCount = guest.InvitedCount
			s.data.Guests[i].Category = guest.Category
			s.data.Guests[i].UpdatedAt = s.now()
			return nil
		}

		// Only the first guest with that name moves to the new phone.
		if guest.Name != "" {
			for i, g := range s.data.Guests {
				if g.Name == guest.Name {
					s.data.Guests[i].PhoneNumber = guest.PhoneNumber
					s.data.Guests[i].UpdatedAt = s.now()
					return nil
				}
			}
		}

		s.data.Guests = append(s.data.Guests, models.Guest{
			PhoneNumber:  guest.PhoneNumber,
			Name:         guest.Name,
			Category:     guest.Category,
			InvitedCount: guest.InvitedCount,
			RSVPStatus:   models.RSVPNotResponded,
			UpdatedAt:    s.now(),
		})
		return nil
	})
}

func (s *FileStore) LogUndelivered(ctx context.Context, phone, name, category string) error {
	if phone == "" {
		return ErrInvalidPhone
	}

	return s.write(func() error {
		for _, u := range s.data.Undelivered {
			if u.PhoneNumber == phone {
				return errUnchanged
			}
		}
		s.data.Undelivered = append(s.data.Undelivered, models.UndeliveredMessage{
			PhoneNumber: phone,
			Name:        name,
			Category:    category,
			CreatedAt:   s.now(),
		})
		return nil
	})
}

func (s *FileStore) ListUndelivered(ctx context.Context) ([]models.UndeliveredMessage, error) {
	var out []models.UndeliveredMessage
	err := s.read(func() error {
		out = make([]models.UndeliveredMessage, len(s.data.Undelivered))
		copy(out, s.data.Undelivered)
		return nil
	})
	return out, err
}

func (s *FileStore) Close() error {
	return s.lock.Close()
}

// save writes the data to file. Callers hold the exclusive lock.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tmp, s.file)
}

// load replaces the in-memory copy with the file contents. A missing file is an empty store.
func (s *FileStore) load() error {
	s.data = fileData{
		Guests:      make([]models.Guest, 0),
		Undelivered: make([]models.UndeliveredMessage, 0),
	}

	data, err := os.ReadFile(s.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	if s.data.Guests == nil {
		s.data.Guests = make([]models.Guest, 0)
	}
	if s.data.Undelivered == nil {
		s.data.Undelivered = make([]models.UndeliveredMessage, 0)
	}
	return nil
}
