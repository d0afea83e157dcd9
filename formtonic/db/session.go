package db

import (
	"time"

	"github.com/google/uuid"
)

// Session holds all the information for a given admin Session
type Session struct {
	// Session ID (stored in the cookie)
	ID string `xorm:"pk"`
	// Name of user
	UserName string
	// Time when the session was created
	Created time.Time
	// Time after which the session is no longer valid
	Expires time.Time
}

// NewSession creates a new session for a user with a new unique ID, valid for
// the given duration.
func NewSession(username string, ttl time.Duration) *Session {
	sess := new(Session)
	sess.ID = uuid.New().String()
	sess.UserName = username
	sess.Created = time.Now().UTC()
	sess.Expires = sess.Created.Add(ttl)
	return sess
}

// IsExpired returns true if the session is past its expiration time.
func (sess *Session) IsExpired() bool {
	return time.Now().After(sess.Expires)
}

// InsertSession stores a new session.  Fails if the ID is already in use.
func (conn *Connection) InsertSession(sess *Session) error {
	_, err := conn.engine.Insert(sess)
	return err
}

// GetSession retrieves a session from the database given its ID.
func (conn *Connection) GetSession(id string) (*Session, error) {
	sess := new(Session)
	if has, err := conn.engine.ID(id).Get(sess); err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotFound
	}
	return sess, nil
}

// DeleteSession removes the session with the given ID.
func (conn *Connection) DeleteSession(id string) error {
	_, err := conn.engine.ID(id).Delete(new(Session))
	return err
}

// DeleteExpiredSessions removes all sessions that expired before now and
// returns how many were removed.
func (conn *Connection) DeleteExpiredSessions(now time.Time) (int, error) {
	sessions := make([]Session, 0)
	if err := conn.engine.Find(&sessions); err != nil {
		return 0, err
	}
	removed := 0
	for _, sess := range sessions {
		if !now.After(sess.Expires) {
			continue
		}
		if err := conn.DeleteSession(sess.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
