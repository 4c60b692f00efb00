package github

import (
	"context"
	"fmt"
	"time"
)

const categoryQuery = `
query ($owner: String!, $repo: String!) {
  repository(owner: $owner, name: $repo) {
    id
    discussionCategories(first: 100) {
      nodes {
        id
        name
      }
    }
  }
}`

const createDiscussionMutation = `
mutation ($repositoryId: ID!, $categoryId: ID!, $title: String!, $body: String!) {
  createDiscussion(input: {repositoryId: $repositoryId, categoryId: $categoryId, title: $title, body: $body}) {
    discussion {
      url
    }
  }
}`

const listDiscussionsQuery = `
query ($owner: String!, $repo: String!, $categoryId: ID!) {
  repository(owner: $owner, name: $repo) {
    discussions(first: 100, categoryId: $categoryId, orderBy: {field: CREATED_AT, direction: ASC}) {
      nodes {
        id
        title
        createdAt
        url
      }
    }
  }
}`

const deleteDiscussionMutation = `
mutation ($id: ID!) {
  deleteDiscussion(input: {id: $id}) {
    clientMutationId
  }
}`

// ResolveCategory looks up the repository and discussion category node IDs
// by category name. A missing category is fatal for the run.
func (c *Client) ResolveCategory(ctx context.Context, owner, repo, categoryName string) (CategoryIDs, error) {
	var result struct {
		Repository struct {
			ID                   string `json:"id"`
			DiscussionCategories struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"discussionCategories"`
		} `json:"repository"`
	}

	if err := c.graphql(ctx, categoryQuery, map[string]any{"owner": owner, "repo": repo}, &result); err != nil {
		return CategoryIDs{}, fmt.Errorf("resolve discussion category: %w", err)
	}

	for _, node := range result.Repository.DiscussionCategories.Nodes {
		if node.Name == categoryName {
			return CategoryIDs{RepositoryID: result.Repository.ID, CategoryID: node.ID}, nil
		}
	}
	return CategoryIDs{}, fmt.Errorf("discussion category %q not found", categoryName)
}

// CreateDiscussion posts a discussion and returns its URL.
func (c *Client) CreateDiscussion(ctx context.Context, ids CategoryIDs, title, body string) (string, error) {
	var result struct {
		CreateDiscussion struct {
			Discussion struct {
				URL string `json:"url"`
			} `json:"discussion"`
		} `json:"createDiscussion"`
	}

	err := c.graphql(ctx, createDiscussionMutation, map[string]any{
		"repositoryId": ids.RepositoryID,
		"categoryId":   ids.CategoryID,
		"title":        title,
		"body":         body,
	}, &result)
	if err != nil {
		return "", err
	}

	url := result.CreateDiscussion.Discussion.URL
	if url == "" {
		return "", fmt.Errorf("create discussion response missing url")
	}
	return url, nil
}

// ListDiscussions returns up to 100 discussions of a category, oldest first.
func (c *Client) ListDiscussions(ctx context.Context, owner, repo, categoryID string) ([]Discussion, error) {
	var result struct {
		Repository struct {
			Discussions struct {
				Nodes []struct {
					ID        string `json:"id"`
					Title     string `json:"title"`
					CreatedAt string `json:"createdAt"`
					URL       string `json:"url"`
				} `json:"nodes"`
			} `json:"discussions"`
		} `json:"repository"`
	}

	variables := map[string]any{"owner": owner, "repo": repo, "categoryId": categoryID}
	if err := c.graphql(ctx, listDiscussionsQuery, variables, &result); err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}

	discussions := make([]Discussion, 0, len(result.Repository.Discussions.Nodes))
	for _, node := range result.Repository.Discussions.Nodes {
		createdAt, err := time.Parse(time.RFC3339, node.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse discussion createdAt %q: %w", node.CreatedAt, err)
		}
		discussions = append(discussions, Discussion{
			ID:        node.ID,
			Title:     node.Title,
			CreatedAt: createdAt,
			URL:       node.URL,
		})
	}
	return discussions, nil
}

// DeleteDiscussion removes a discussion by node ID.
func (c *Client) DeleteDiscussion(ctx context.Context, id string) error {
	if err := c.graphql(ctx, deleteDiscussionMutation, map[string]any{"id": id}, nil); err != nil {
		return fmt.Errorf("delete discussion %s: %w", id, err)
	}
	return nil
}
