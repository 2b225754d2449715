// internal/reconcile/attributes.go
package reconcile

import (
	"time"

	"github.com/google/go-github/v62/github"

	"github-notification-sync/internal/model"
)

// Attributes is the flat attribute set carried by a notification payload.
// A nil field means the payload did not contain it.
type Attributes struct {
	RepositoryID        *int64
	RepositoryFullName  *string
	RepositoryOwnerName *string
	SubjectType         *string
	SubjectTitle        *string
	SubjectURL          *string
	LatestCommentURL    *string
	Reason              *string
	URL                 *string
	Unread              *bool
	UpdatedAt           *time.Time
	LastReadAt          *time.Time
}

// ExtractAttributes maps a notification payload onto Attributes.
// Repository invitations have no API subject URL, so theirs points at the
// repository's invitations page instead.
func ExtractAttributes(p *github.Notification) Attributes {
	if p == nil {
		return Attributes{}
	}

	a := Attributes{
		Reason:     p.Reason,
		URL:        p.URL,
		Unread:     p.Unread,
		UpdatedAt:  timestamp(p.UpdatedAt),
		LastReadAt: timestamp(p.LastReadAt),
	}

	if repo := p.Repository; repo != nil {
		a.RepositoryID = repo.ID
		a.RepositoryFullName = repo.FullName
		if repo.Owner != nil {
			a.RepositoryOwnerName = repo.Owner.Login
		}
	}

	if subject := p.Subject; subject != nil {
		a.SubjectType = subject.Type
		a.SubjectTitle = subject.Title
		a.LatestCommentURL = subject.LatestCommentURL
		a.SubjectURL = subject.URL
		if model.SubjectType(subject.GetType()) == model.SubjectRepositoryInvitation {
			a.SubjectURL = nil
			if html := p.GetRepository().GetHTMLURL(); html != "" {
				invitations := html + "/invitations"
				a.SubjectURL = &invitations
			}
		}
	}

	return a
}

// Apply overwrites n's attributes. Identity fields are left alone, and a
// missing unread flag keeps the current value.
func (a Attributes) Apply(n *model.Notification) {
	n.RepositoryID = a.RepositoryID
	n.RepositoryFullName = a.RepositoryFullName
	n.RepositoryOwnerName = a.RepositoryOwnerName
	n.SubjectType = a.SubjectType
	n.SubjectTitle = a.SubjectTitle
	n.SubjectURL = a.SubjectURL
	n.LatestCommentURL = a.LatestCommentURL
	n.Reason = a.Reason
	n.URL = a.URL
	n.UpdatedAt = a.UpdatedAt
	n.LastReadAt = a.LastReadAt
	if a.Unread != nil {
		n.Unread = *a.Unread
	}
}

func timestamp(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
