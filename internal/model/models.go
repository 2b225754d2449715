// internal/model/models.go
package model

import (
	"time"
)

// User is the GitHub account whose inbox is projected locally.
type User struct {
	ID          int64
	GithubID    int64
	Login       string
	DBCreatedAt time.Time
	DBUpdatedAt time.Time
}

// Notification is the local projection of one remote inbox thread.
// Nullable columns are pointers; nil means the payload did not carry the field.
type Notification struct {
	ID                  int64
	UserID              int64
	GithubID            string
	RepositoryID        *int64
	RepositoryFullName  *string
	RepositoryOwnerName *string
	SubjectType         *string
	SubjectTitle        *string
	SubjectURL          *string
	LatestCommentURL    *string
	Reason              *string
	URL                 *string
	Unread              bool
	Archived            bool
	Starred             bool
	UpdatedAt           *time.Time
	LastReadAt          *time.Time
	DBCreatedAt         time.Time
	DBUpdatedAt         time.Time
}

// Type returns the subject type of the notification, or "" when unknown.
func (n Notification) Type() SubjectType {
	if n.SubjectType == nil {
		return ""
	}
	return SubjectType(*n.SubjectType)
}

// ChangedFields lists the attribute names that differ between n and prev.
// Identity and bookkeeping columns are not compared.
func (n Notification) ChangedFields(prev Notification) []string {
	var changed []string
	add := func(name string, equal bool) {
		if !equal {
			changed = append(changed, name)
		}
	}
	add("repository_id", ptrEqual(n.RepositoryID, prev.RepositoryID))
	add("repository_full_name", ptrEqual(n.RepositoryFullName, prev.RepositoryFullName))
	add("repository_owner_name", ptrEqual(n.RepositoryOwnerName, prev.RepositoryOwnerName))
	add("subject_type", ptrEqual(n.SubjectType, prev.SubjectType))
	add("subject_title", ptrEqual(n.SubjectTitle, prev.SubjectTitle))
	add("subject_url", ptrEqual(n.SubjectURL, prev.SubjectURL))
	add("latest_comment_url", ptrEqual(n.LatestCommentURL, prev.LatestCommentURL))
	add("reason", ptrEqual(n.Reason, prev.Reason))
	add("url", ptrEqual(n.URL, prev.URL))
	add("unread", n.Unread == prev.Unread)
	add("archived", n.Archived == prev.Archived)
	add("starred", n.Starred == prev.Starred)
	add("updated_at", timeEqual(n.UpdatedAt, prev.UpdatedAt))
	add("last_read_at", timeEqual(n.LastReadAt, prev.LastReadAt))
	return changed
}

// Subject is the local projection of the remote entity a notification refers to.
type Subject struct {
	ID          int64
	URL         string
	State       *string
	Author      *string
	HTMLURL     *string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	DBCreatedAt time.Time
	DBUpdatedAt time.Time
}

// ChangedFields lists the attribute names that differ between s and prev.
func (s Subject) ChangedFields(prev Subject) []string {
	var changed []string
	if !ptrEqual(s.State, prev.State) {
		changed = append(changed, "state")
	}
	if !ptrEqual(s.Author, prev.Author) {
		changed = append(changed, "author")
	}
	if !ptrEqual(s.HTMLURL, prev.HTMLURL) {
		changed = append(changed, "html_url")
	}
	if !timeEqual(s.CreatedAt, prev.CreatedAt) {
		changed = append(changed, "created_at")
	}
	if !timeEqual(s.UpdatedAt, prev.UpdatedAt) {
		changed = append(changed, "updated_at")
	}
	return changed
}

// RemoteSubject is the subset of an issue, pull request, commit or release
// payload needed to build a Subject.
type RemoteSubject struct {
	State     *string
	MergedAt  *time.Time
	UserLogin *string // reporting user of issues and pull requests
	Author    *string // author login of commits and releases
	HTMLURL   *string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// Merged reports whether the remote entity carries a merge timestamp.
func (r *RemoteSubject) Merged() bool {
	return r.MergedAt != nil && !r.MergedAt.IsZero()
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
