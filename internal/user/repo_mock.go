package user

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ userRepo = (*repoMock)(nil)

type repoMock struct {
	Users map[string]*User
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users: make(map[string]*User),
	}
}

func (r *repoMock) UsersCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Users)
}

func (r *repoMock) Add(_ context.Context, u *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Users[u.Email]; ok {
		return ErrUserExists
	}

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}

	r.Users[u.Email] = u
	return nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.Users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}
