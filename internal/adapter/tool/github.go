package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
)

const defaultGitHubBaseURL = "https://api.github.com"

// githubClient is a minimal REST client for the GitHub v3 API.
type githubClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func (c *githubClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReadFileSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github api returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// NewGitHubTools builds tools backed by the GitHub REST API.
func NewGitHubTools(cfg config.ToolsConfig) []domain.Tool {
	baseURL := cfg.GitHubBaseURL
	if baseURL == "" {
		baseURL = defaultGitHubBaseURL
	}
	gh := &githubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.GitHubToken,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	repoParams := []domain.ToolParameter{
		{Name: "owner", Type: "string", Description: "Repository owner", Required: true},
		{Name: "repo", Type: "string", Description: "Repository name", Required: true},
	}

	repoInfo := New(Options{
		Name:        "github_repo_info",
		Description: "Fetch metadata for a GitHub repository",
		Category:    domain.CategoryGitTools,
		Parameters:  repoParams,
		Run: func(ctx context.Context, args Args) (any, error) {
			owner, err := args.String("owner")
			if err != nil {
				return nil, err
			}
			repo, err := args.String("repo")
			if err != nil {
				return nil, err
			}
			raw, err := gh.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo)), nil)
			if err != nil {
				return nil, err
			}
			var info map[string]any
			if err := json.Unmarshal(raw, &info); err != nil {
				return nil, err
			}
			return map[string]any{
				"full_name":   info["full_name"],
				"description": info["description"],
				"stars":       info["stargazers_count"],
				"forks":       info["forks_count"],
				"language":    info["language"],
				"open_issues": info["open_issues_count"],
			}, nil
		},
	})

	listIssues := New(Options{
		Name:        "github_list_issues",
		Description: "List open issues in a GitHub repository",
		Category:    domain.CategoryGitTools,
		Parameters: append(repoParams,
			domain.ToolParameter{Name: "state", Type: "string", Description: "Issue state filter", Enum: []string{"open", "closed", "all"}, Default: "open"},
		),
		Run: func(ctx context.Context, args Args) (any, error) {
			owner, err := args.String("owner")
			if err != nil {
				return nil, err
			}
			repo, err := args.String("repo")
			if err != nil {
				return nil, err
			}
			path := fmt.Sprintf("/repos/%s/%s/issues?state=%s&per_page=20",
				url.PathEscape(owner), url.PathEscape(repo), url.QueryEscape(args.StringOr("state", "open")))
			raw, err := gh.do(ctx, http.MethodGet, path, nil)
			if err != nil {
				return nil, err
			}
			var issues []map[string]any
			if err := json.Unmarshal(raw, &issues); err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(issues))
			for _, issue := range issues {
				out = append(out, map[string]any{
					"number": issue["number"],
					"title":  issue["title"],
					"state":  issue["state"],
					"url":    issue["html_url"],
				})
			}
			return map[string]any{"issues": out}, nil
		},
	})

	createIssue := New(Options{
		Name:        "github_create_issue",
		Description: "Create an issue in a GitHub repository",
		Category:    domain.CategoryGitTools,
		Parameters: append(repoParams,
			domain.ToolParameter{Name: "title", Type: "string", Description: "Issue title", Required: true, MinLength: intPtr(1)},
			domain.ToolParameter{Name: "body", Type: "string", Description: "Issue body"},
		),
		RequiresConfirmation: true,
		Run: func(ctx context.Context, args Args) (any, error) {
			owner, err := args.String("owner")
			if err != nil {
				return nil, err
			}
			repo, err := args.String("repo")
			if err != nil {
				return nil, err
			}
			title, err := args.String("title")
			if err != nil {
				return nil, err
			}
			raw, err := gh.do(ctx, http.MethodPost,
				fmt.Sprintf("/repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo)),
				map[string]string{"title": title, "body": args.StringOr("body", "")})
			if err != nil {
				return nil, err
			}
			var issue map[string]any
			if err := json.Unmarshal(raw, &issue); err != nil {
				return nil, err
			}
			return map[string]any{"number": issue["number"], "url": issue["html_url"]}, nil
		},
	})

	return []domain.Tool{repoInfo, listIssues, createIssue}
}
