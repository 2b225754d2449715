// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github-notification-sync/internal/model"
)

type notificationResponse struct {
	ID                  int64      `json:"id"`
	GithubID            string     `json:"github_id"`
	RepositoryID        *int64     `json:"repository_id"`
	RepositoryFullName  *string    `json:"repository_full_name"`
	RepositoryOwnerName *string    `json:"repository_owner_name"`
	SubjectType         *string    `json:"subject_type"`
	SubjectTitle        *string    `json:"subject_title"`
	SubjectURL          *string    `json:"subject_url"`
	LatestCommentURL    *string    `json:"latest_comment_url"`
	Reason              *string    `json:"reason"`
	URL                 *string    `json:"url"`
	Unread              bool       `json:"unread"`
	Archived            bool       `json:"archived"`
	Starred             bool       `json:"starred"`
	UpdatedAt           *time.Time `json:"updated_at"`
	LastReadAt          *time.Time `json:"last_read_at"`
	DBUpdatedAt         time.Time  `json:"db_updated_at"`
}

func toNotificationResponse(n model.Notification) notificationResponse {
	return notificationResponse{
		ID:                  n.ID,
		GithubID:            n.GithubID,
		RepositoryID:        n.RepositoryID,
		RepositoryFullName:  n.RepositoryFullName,
		RepositoryOwnerName: n.RepositoryOwnerName,
		SubjectType:         n.SubjectType,
		SubjectTitle:        n.SubjectTitle,
		SubjectURL:          n.SubjectURL,
		LatestCommentURL:    n.LatestCommentURL,
		Reason:              n.Reason,
		URL:                 n.URL,
		Unread:              n.Unread,
		Archived:            n.Archived,
		Starred:             n.Starred,
		UpdatedAt:           n.UpdatedAt,
		LastReadAt:          n.LastReadAt,
		DBUpdatedAt:         n.DBUpdatedAt,
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
