// Package individual resolves individual references against the Individual
// service search endpoint.
package individual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hcm/internal/resolver"
	"hcm/pkg/validation"
)

const target = "individual"

// maxResponseBytes caps the decoded search response.
const maxResponseBytes = 8 << 20

// RequestInfo mirrors the request envelope expected by peer services.
type RequestInfo struct {
	APIID     string    `json:"apiId,omitempty"`
	Ver       string    `json:"ver,omitempty"`
	Ts        int64     `json:"ts,omitempty"`
	Action    string    `json:"action,omitempty"`
	MsgID     string    `json:"msgId,omitempty"`
	AuthToken string    `json:"authToken,omitempty"`
	UserInfo  *UserInfo `json:"userInfo,omitempty"`
}

type UserInfo struct {
	UUID string `json:"uuid,omitempty"`
}

type searchCriteria struct {
	ID                []string `json:"id,omitempty"`
	ClientReferenceID []string `json:"clientReferenceId,omitempty"`
}

type searchRequest struct {
	RequestInfo RequestInfo    `json:"RequestInfo"`
	Individual  searchCriteria `json:"Individual"`
}

type individual struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"clientReferenceId"`
	TenantID          string `json:"tenantId"`
	IsDeleted         bool   `json:"isDeleted"`
}

type searchResponse struct {
	Individual []individual `json:"Individual"`
}

// Client searches individuals over HTTP.
type Client struct {
	baseURL    string
	searchPath string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a client for baseURL + searchPath.
func New(baseURL, searchPath string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		searchPath: searchPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve searches one tenant for the queried individuals. Both identifier
// lists travel in one request and the page size is their combined length so
// one call answers the whole query.
func (c *Client) Resolve(ctx context.Context, q resolver.Query) ([]resolver.Reference, error) {
	body, err := json.Marshal(newSearchRequest(q))
	if err != nil {
		return nil, resolver.NewLookupError(resolver.CategoryBadResponse, target, "encode search request", err)
	}

	endpoint, err := c.searchURL(q.TenantID, q.Len())
	if err != nil {
		return nil, resolver.NewLookupError(resolver.CategoryBadResponse, target, "build search url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, resolver.NewLookupError(resolver.CategoryBadResponse, target, "build search request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resolver.NewLookupError(resolver.CategoryNetwork, target, "search individuals", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resolver.NewLookupError(resolver.CategoryNetwork, target, "read search response", err)
	}
	refs, err := parseSearchResponse(resp.StatusCode, raw, q.TenantID)
	if err != nil {
		c.logger.WarnContext(ctx, "individual search failed",
			"tenant_id", q.TenantID,
			"status", resp.StatusCode,
			"error", err,
		)
		return nil, err
	}
	return refs, nil
}

func (c *Client) searchURL(tenantID string, limit int) (string, error) {
	u, err := url.Parse(c.baseURL + c.searchPath)
	if err != nil {
		return "", err
	}
	values := u.Query()
	values.Set("limit", strconv.Itoa(limit))
	values.Set("offset", "0")
	values.Set("tenantId", tenantID)
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func newSearchRequest(q resolver.Query) searchRequest {
	return searchRequest{
		RequestInfo: requestInfo(q.Request),
		Individual: searchCriteria{
			ID:                q.IDs,
			ClientReferenceID: q.ClientReferenceIDs,
		},
	}
}

func requestInfo(rc validation.RequestContext) RequestInfo {
	info := RequestInfo{
		Action:    rc.Action,
		MsgID:     rc.MsgID,
		AuthToken: rc.AuthToken,
	}
	if !rc.Time.IsZero() {
		info.Ts = rc.Time.UnixMilli()
	}
	if rc.UserID != "" {
		info.UserInfo = &UserInfo{UUID: rc.UserID}
	}
	return info
}

func parseSearchResponse(status int, body []byte, tenantID string) ([]resolver.Reference, error) {
	switch {
	case status >= http.StatusInternalServerError:
		return nil, resolver.NewLookupError(resolver.CategoryNetwork, target,
			fmt.Sprintf("unexpected status %d", status), nil)
	case status != http.StatusOK:
		return nil, resolver.NewLookupError(resolver.CategoryBadResponse, target,
			fmt.Sprintf("unexpected status %d", status), nil)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, resolver.NewLookupError(resolver.CategoryBadResponse, target, "decode search response", err)
	}
	refs := make([]resolver.Reference, 0, len(resp.Individual))
	for _, ind := range resp.Individual {
		tenant := ind.TenantID
		if tenant == "" {
			tenant = tenantID
		}
		refs = append(refs, resolver.Reference{
			ID:                ind.ID,
			ClientReferenceID: ind.ClientReferenceID,
			TenantID:          tenant,
			IsDeleted:         ind.IsDeleted,
		})
	}
	return refs, nil
}
