package inmemdb

import (
	"sync"

	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
)

// DB is an in-memory store used by tests and the debug server.
// All repositories opened on the same DB share its tables.
type DB struct {
	mutex      sync.RWMutex
	schools    map[string]school.School
	users      map[string]user.User
	principals map[activation.PrincipalKind]map[string]activation.Principal
}

func Open() *DB {
	db := &DB{
		schools:    make(map[string]school.School),
		users:      make(map[string]user.User),
		principals: make(map[activation.PrincipalKind]map[string]activation.Principal, len(activation.Kinds)),
	}
	for _, kind := range activation.Kinds {
		db.principals[kind] = make(map[string]activation.Principal)
	}
	return db
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.schools = make(map[string]school.School)
	db.users = make(map[string]user.User)
	for _, kind := range activation.Kinds {
		db.principals[kind] = make(map[string]activation.Principal)
	}
}
