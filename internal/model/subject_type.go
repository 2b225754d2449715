// internal/model/subject_type.go
package model

// SubjectType is the GitHub notification subject type.
type SubjectType string

const (
	SubjectIssue                SubjectType = "Issue"
	SubjectPullRequest          SubjectType = "PullRequest"
	SubjectCommit               SubjectType = "Commit"
	SubjectRelease              SubjectType = "Release"
	SubjectRepositoryInvitation SubjectType = "RepositoryInvitation"
)

// SubjectKind groups subject types by how their remote state is merged.
type SubjectKind int

const (
	// KindUnsupported subjects are never fetched.
	KindUnsupported SubjectKind = iota
	// KindTrackable subjects carry an open/closed/merged state.
	KindTrackable
	// KindAuthored subjects carry an author but no state.
	KindAuthored
)

// Kind maps a subject type onto the closed set of merge strategies.
func (t SubjectType) Kind() SubjectKind {
	switch t {
	case SubjectIssue, SubjectPullRequest:
		return KindTrackable
	case SubjectCommit, SubjectRelease:
		return KindAuthored
	default:
		return KindUnsupported
	}
}

func (k SubjectKind) String() string {
	switch k {
	case KindTrackable:
		return "trackable"
	case KindAuthored:
		return "authored"
	default:
		return "unsupported"
	}
}
