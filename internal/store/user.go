package store

import (
	"sync"

	"github.com/google/uuid"

	v1 "github.com/eclipse-che/che-e2e-harness/api/v1"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

// UserStore keeps platform users and their profile attributes.
type UserStore struct {
	mu         sync.Mutex
	users      map[string]v1.UserDto
	attributes map[string]map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[string]v1.UserDto),
		attributes: make(map[string]map[string]string),
	}
}

func (s *UserStore) Create(user v1.UserDto) (v1.UserDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Name == user.Name {
			return v1.UserDto{}, srvErrors.NewDuplicateResourceError("user", user.Name)
		}
	}

	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	s.users[user.Id] = user
	return user, nil
}

func (s *UserStore) Get(id string) (v1.UserDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return v1.UserDto{}, srvErrors.NewUserNotFoundError(id)
	}
	return u, nil
}

func (s *UserStore) FindByName(name string) (v1.UserDto, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Name == name {
			return u, true
		}
	}
	return v1.UserDto{}, false
}

func (s *UserStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return srvErrors.NewUserNotFoundError(id)
	}
	delete(s.users, id)
	delete(s.attributes, id)
	return nil
}

// UpdateAttributes merges attrs into the profile of subject and returns the
// resulting attributes.
func (s *UserStore) UpdateAttributes(subject string, attrs map[string]string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.attributes[subject]
	if !ok {
		current = make(map[string]string, len(attrs))
		s.attributes[subject] = current
	}
	for k, v := range attrs {
		current[k] = v
	}

	out := make(map[string]string, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}
