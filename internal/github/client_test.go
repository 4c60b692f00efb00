package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yomogy/swa-role-sync/internal/plan"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-token", WithBaseURL(server.URL))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestListEligibleCollaboratorsPaginatesAndClassifies(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/site/collaborators", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "all", r.URL.Query().Get("affiliation"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[
				{"login":"dave","permissions":{"pull":true}},
				{"login":"erin","permissions":{"maintain":true,"push":true,"pull":true}}
			]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octo/site/collaborators?affiliation=all&per_page=100&page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[
			{"login":"alice","permissions":{"admin":true,"push":true,"pull":true}},
			{"login":"bob","permissions":{"push":true,"pull":true}},
			{"login":"carol","permissions":{"triage":true,"pull":true}}
		]`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client, err := NewClient("test-token", WithBaseURL(server.URL))
	require.NoError(t, err)

	desired, err := client.ListEligibleCollaborators(context.Background(), "octo", "site", plan.PermissionWrite)
	require.NoError(t, err)
	require.Equal(t, []plan.DesiredUser{
		{Login: "alice", Level: plan.PermissionAdmin},
		{Login: "bob", Level: plan.PermissionWrite},
		{Login: "erin", Level: plan.PermissionMaintain},
	}, desired)
}

func TestListEligibleCollaboratorsMinimumTriage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"login":"carol","permissions":{"triage":true,"pull":true}},
			{"login":"dave","permissions":{"pull":true}}
		]`)
	}))

	desired, err := client.ListEligibleCollaborators(context.Background(), "octo", "site", plan.PermissionTriage)
	require.NoError(t, err)
	require.Equal(t, []plan.DesiredUser{{Login: "carol", Level: plan.PermissionTriage}}, desired)
}

func TestListEligibleCollaboratorsHTTPError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))

	_, err := client.ListEligibleCollaborators(context.Background(), "octo", "site", plan.PermissionWrite)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}

func TestResolveCategory(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/graphql", r.URL.Path)
		fmt.Fprint(w, `{"data":{"repository":{"id":"R_1","discussionCategories":{"nodes":[
			{"id":"C_1","name":"General"},
			{"id":"C_2","name":"Announcements"}
		]}}}}`)
	}))

	ids, err := client.ResolveCategory(context.Background(), "octo", "site", "Announcements")
	require.NoError(t, err)
	require.Equal(t, CategoryIDs{RepositoryID: "R_1", CategoryID: "C_2"}, ids)
}

func TestResolveCategoryMissing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"repository":{"id":"R_1","discussionCategories":{"nodes":[]}}}}`)
	}))

	_, err := client.ResolveCategory(context.Background(), "octo", "site", "Announcements")
	require.Error(t, err)
	require.Contains(t, err.Error(), `discussion category "Announcements" not found`)
}

func TestCreateDiscussion(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "R_1", payload.Variables["repositoryId"])
		require.Equal(t, "C_2", payload.Variables["categoryId"])
		require.Equal(t, "title", payload.Variables["title"])

		fmt.Fprint(w, `{"data":{"createDiscussion":{"discussion":{"url":"https://github.com/octo/site/discussions/7"}}}}`)
	}))

	url, err := client.CreateDiscussion(context.Background(), CategoryIDs{RepositoryID: "R_1", CategoryID: "C_2"}, "title", "body")
	require.NoError(t, err)
	require.Equal(t, "https://github.com/octo/site/discussions/7", url)
}

func TestCreateDiscussionGraphQLErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"Resource not accessible"}]}`)
	}))

	_, err := client.CreateDiscussion(context.Background(), CategoryIDs{RepositoryID: "R_1", CategoryID: "C_2"}, "title", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Resource not accessible")
}

func TestListDiscussions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"repository":{"discussions":{"nodes":[
			{"id":"D_1","title":"old","createdAt":"2026-01-01T00:00:00Z","url":"https://example.com/1"},
			{"id":"D_2","title":"new","createdAt":"2026-02-01T00:00:00Z","url":"https://example.com/2"}
		]}}}}`)
	}))

	discussions, err := client.ListDiscussions(context.Background(), "octo", "site", "C_2")
	require.NoError(t, err)
	require.Len(t, discussions, 2)
	require.Equal(t, "D_1", discussions[0].ID)
	require.Equal(t, "new", discussions[1].Title)
	require.Equal(t, 2026, discussions[0].CreatedAt.Year())
}

func TestDeleteDiscussion(t *testing.T) {
	var deletedID string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		deletedID, _ = payload.Variables["id"].(string)
		fmt.Fprint(w, `{"data":{"deleteDiscussion":{"clientMutationId":null}}}`)
	}))

	require.NoError(t, client.DeleteDiscussion(context.Background(), "D_1"))
	require.Equal(t, "D_1", deletedID)
}

func TestParseNextPage(t *testing.T) {
	link := `<https://api.github.com/repos/o/r/collaborators?page=2>; rel="next", <https://api.github.com/repos/o/r/collaborators?page=5>; rel="last"`
	require.Equal(t, "https://api.github.com/repos/o/r/collaborators?page=2", parseNextPage(link))
	require.Equal(t, "", parseNextPage(`<https://api.github.com/x?page=5>; rel="last"`))
	require.Equal(t, "", parseNextPage(""))
}
