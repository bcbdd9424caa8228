package externalsystems

import (
	"sort"
	"strings"
	"sync"
)

// UserProfile holds one customer's account details
type UserProfile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// UsersAPI serves customer account lookups
type UsersAPI struct {
	mu         sync.RWMutex
	users      map[string]UserProfile
	emailIndex map[string]string
	phoneIndex map[string]string
}

// NewUsersAPI creates a UsersAPI seeded with mock customers
func NewUsersAPI() *UsersAPI {
	api := &UsersAPI{
		users: map[string]UserProfile{
			"user_123": {UserID: "user_123", Name: "John Doe", Email: "john.doe@example.com", Phone: "+1-555-0101"},
			"user_456": {UserID: "user_456", Name: "Jane Smith", Email: "jane.smith@example.com", Phone: "+1-555-0102"},
			"user_789": {UserID: "user_789", Name: "Bob Wilson", Email: "bob.wilson@example.com", Phone: "+1-555-0103"},
			"user_001": {UserID: "user_001", Name: "Alice Brown", Email: "alice.brown@example.com", Phone: "+1-555-0104"},
			"user_002": {UserID: "user_002", Name: "Michael Chen", Email: "michael.chen@example.com", Phone: "+1-555-0105"},
		},
		emailIndex: make(map[string]string),
		phoneIndex: make(map[string]string),
	}

	for id, user := range api.users {
		api.emailIndex[strings.ToLower(user.Email)] = id
		api.phoneIndex[user.Phone] = id
	}
	return api
}

// GetUserByEmail looks up a user by email address, case-insensitive
func (api *UsersAPI) GetUserByEmail(email string) (UserProfile, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	id, ok := api.emailIndex[strings.ToLower(email)]
	if !ok {
		return UserProfile{}, false
	}
	user, ok := api.users[id]
	return user, ok
}

// GetUserByPhone looks up a user by phone number
func (api *UsersAPI) GetUserByPhone(phone string) (UserProfile, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	id, ok := api.phoneIndex[phone]
	if !ok {
		return UserProfile{}, false
	}
	user, ok := api.users[id]
	return user, ok
}

// GetUserByID looks up a user by user id
func (api *UsersAPI) GetUserByID(userID string) (UserProfile, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	user, ok := api.users[userID]
	return user, ok
}

// GetAllUsers returns all users in the system
func (api *UsersAPI) GetAllUsers() []UserProfile {
	api.mu.RLock()
	defer api.mu.RUnlock()

	out := make([]UserProfile, 0, len(api.users))
	for _, u := range api.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
