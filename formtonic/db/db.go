package db

import (
	"errors"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"xorm.io/xorm"
	"xorm.io/xorm/log"
	"xorm.io/xorm/names"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Connection struct {
	engine *xorm.Engine
}

// Close the database.
func (conn *Connection) Close() error {
	return conn.engine.Close()
}

// New returns a database connection for the given driver ("sqlite3" or
// "postgres") and data source.  For sqlite3 the source is the path of the db
// file; if it does not exist it is created.
func New(driver, source string) (*Connection, error) {
	db, err := xorm.NewEngine(driver, source)
	if err != nil {
		return nil, err
	}
	db.Logger().SetLevel(log.LOG_WARNING)
	db.SetMapper(names.GonicMapper{})
	db.TZLocation = time.UTC
	db.DatabaseTZ = time.UTC

	if err := db.Sync2(new(FormPlugin), new(FormElement), new(Submission), new(EmailNotification), new(Session), new(Job)); err != nil {
		return nil, err
	}
	return &Connection{db}, nil
}

// NewSQLite returns a database connection for the sqlite db file at the
// given path.
func NewSQLite(path string) (*Connection, error) {
	return New("sqlite3", path)
}
