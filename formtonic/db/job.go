package db

import (
	"time"
)

// Job is one queued delivery of notification mails for a submission.
type Job struct {
	// Job ID (auto)
	ID int64 `xorm:"pk autoincr"`
	// Submission the mails belong to
	SubmissionID int64 `xorm:"index"`
	// Subject of the first mail
	Label string
	// Addresses the mails are sent to
	Recipients []string `xorm:"json"`
	// Time when the job was submitted to the queue
	SubmitTime time.Time
	// Time when the job finished (0 if ongoing)
	EndTime time.Time
	// Delivery error, empty on success
	Error string `xorm:"text"`
}

// InsertJob inserts a new Job into the database.  Upon successful return, the
// Job has a new unique ID.
func (conn *Connection) InsertJob(job *Job) error {
	_, err := conn.engine.Insert(job) // job ID is assigned on insertion
	return err
}

// UpdateJob updates an existing Job entry in the database.
func (conn *Connection) UpdateJob(job *Job) error {
	_, err := conn.engine.ID(job.ID).AllCols().Update(job)
	return err
}

// IsFinished returns true if the Job has finished (has an EndTime).
func (job *Job) IsFinished() bool {
	return !job.EndTime.IsZero()
}

// Failed returns true if the Job finished with an error.
func (job *Job) Failed() bool {
	return job.IsFinished() && job.Error != ""
}

// AllJobs returns all Job entries in the database.
func (conn *Connection) AllJobs() ([]Job, error) {
	alljobs := make([]Job, 0)
	if err := conn.engine.Asc("id").Find(&alljobs); err != nil {
		return nil, err
	}
	return alljobs, nil
}

// SubmissionJobs retrieves all the Jobs of a given submission.
func (conn *Connection) SubmissionJobs(subID int64) ([]Job, error) {
	jobs := make([]Job, 0)
	if err := conn.engine.Where("submission_id = ?", subID).Asc("id").Find(&jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob retrieves a Job from the database given its ID.
func (conn *Connection) GetJob(id int64) (*Job, error) {
	job := new(Job)
	if has, err := conn.engine.ID(id).Get(job); err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotFound
	}
	return job, nil
}
