package github

import (
	"fmt"
	"strings"
	"time"
)

// HTTPError is a non-2xx REST response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("github api request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("github api request failed with status %d: %s", e.StatusCode, e.Body)
}

// GraphQLError is a GraphQL response carrying an errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "github graphql request failed"
	}
	return fmt.Sprintf("github graphql request failed: %s", strings.Join(e.Messages, "; "))
}

// CategoryIDs identifies a discussion category within its repository, both
// as GraphQL node IDs.
type CategoryIDs struct {
	RepositoryID string
	CategoryID   string
}

// Discussion is one notification thread as listed from a category.
type Discussion struct {
	ID        string
	Title     string
	CreatedAt time.Time
	URL       string
}

type collaborator struct {
	Login       string `json:"login"`
	Permissions struct {
		Admin    bool `json:"admin"`
		Maintain bool `json:"maintain"`
		Push     bool `json:"push"`
		Triage   bool `json:"triage"`
		Pull     bool `json:"pull"`
	} `json:"permissions"`
}
