package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"tabletap/internal/domain"
	"tabletap/internal/storage"
)

var (
	ErrNameTooShort = errors.New("name must be at least 2 characters")
	ErrInvalidPhone = errors.New("phone must be exactly 10 digits")
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Store persists the customer's name and phone. A valid identity gates
// access to the menu; it is cleared on "not me" or session teardown.
type Store struct {
	kv     storage.Store
	logger *zap.SugaredLogger
}

func NewStore(kv storage.Store, logger *zap.SugaredLogger) *Store {
	return &Store{kv: kv, logger: logger}
}

func Validate(name, phone string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return ErrNameTooShort
	}
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// Save validates and persists the trimmed identity, overwriting any
// prior one.
func (s *Store) Save(ctx context.Context, name, phone string) error {
	if err := Validate(name, phone); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := s.kv.Set(ctx, storage.KeyCustomerName, name); err != nil {
		return fmt.Errorf("persist name: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyCustomerPhone, phone); err != nil {
		return fmt.Errorf("persist phone: %w", err)
	}
	s.logger.Infow("identity saved", "name", name)
	return nil
}

func (s *Store) Current(ctx context.Context) (domain.Identity, error) {
	name, err := s.kv.Get(ctx, storage.KeyCustomerName)
	if err != nil {
		return domain.Identity{}, err
	}
	phone, err := s.kv.Get(ctx, storage.KeyCustomerPhone)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Name: name, Phone: phone}, nil
}

// IsValid reports whether the persisted identity still satisfies the
// validation rule.
func (s *Store) IsValid(ctx context.Context) bool {
	identity, err := s.Current(ctx)
	if err != nil {
		return false
	}
	return Validate(identity.Name, identity.Phone) == nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, storage.KeyCustomerName); err != nil {
		return err
	}
	return s.kv.Remove(ctx, storage.KeyCustomerPhone)
}
