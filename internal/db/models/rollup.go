// Package models - rollup.go defines the three daily rollup flavors. Each is one
// row per (subject, calendar date), upserted never duplicated; the unique
// constraint on the natural key is the concurrency safety net.
package models

import "time"

// RollupSubjectKind identifies which rollup table a subject belongs to
type RollupSubjectKind string

const (
	RollupSubjectOrganization RollupSubjectKind = "organization"
	RollupSubjectStudent      RollupSubjectKind = "student"
	RollupSubjectMentor       RollupSubjectKind = "mentor"
)

// OrgDailyRollup aggregates one organization's activity for one day
type OrgDailyRollup struct {
	ID                 string    `db:"id" json:"id"`
	OrganizationID     string    `db:"organization_id" json:"organization_id"`
	Date               time.Time `db:"date" json:"date"`
	ActiveUsers        int       `db:"active_users" json:"active_users"`
	NewEnrollments     int       `db:"new_enrollments" json:"new_enrollments"`
	SessionsHeld       int       `db:"sessions_held" json:"sessions_held"`
	MessagesSent       int       `db:"messages_sent" json:"messages_sent"`
	GoalCompletionRate float64   `db:"goal_completion_rate" json:"goal_completion_rate"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDailyRollup aggregates one student's activity for one day
type StudentDailyRollup struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	Date             time.Time `db:"date" json:"date"`
	SessionsAttended int       `db:"sessions_attended" json:"sessions_attended"`
	MessagesSent     int       `db:"messages_sent" json:"messages_sent"`
	GoalsCompleted   int       `db:"goals_completed" json:"goals_completed"`
	GoalsOpen        int       `db:"goals_open" json:"goals_open"`
	AvgProgress      float64   `db:"avg_progress" json:"avg_progress"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// MentorDailyRollup aggregates one mentor's activity for one day
type MentorDailyRollup struct {
	ID             string    `db:"id" json:"id"`
	MentorID       string    `db:"mentor_id" json:"mentor_id"`
	Date           time.Time `db:"date" json:"date"`
	SessionsHeld   int       `db:"sessions_held" json:"sessions_held"`
	MessagesSent   int       `db:"messages_sent" json:"messages_sent"`
	FeedbackGiven  int       `db:"feedback_given" json:"feedback_given"`
	ActiveStudents int       `db:"active_students" json:"active_students"`
	AvgRating      float64   `db:"avg_rating" json:"avg_rating"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
