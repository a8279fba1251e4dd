package models

import (
	"time"

	"hcm/pkg/validation"
)

// UserInfo identifies the caller inside RequestInfo.
type UserInfo struct {
	UUID     string `json:"uuid,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
}

// RequestInfo is the request envelope shared by every endpoint.
type RequestInfo struct {
	APIID     string    `json:"apiId,omitempty"`
	Ver       string    `json:"ver,omitempty"`
	Ts        int64     `json:"ts,omitempty"`
	Action    string    `json:"action,omitempty"`
	MsgID     string    `json:"msgId,omitempty"`
	AuthToken string    `json:"authToken,omitempty"`
	UserInfo  *UserInfo `json:"userInfo,omitempty"`
}

// UserID returns the caller uuid, empty when absent.
func (r RequestInfo) UserID() string {
	if r.UserInfo == nil {
		return ""
	}
	return r.UserInfo.UUID
}

// Context converts the envelope to pipeline request metadata stamped at now.
func (r RequestInfo) Context(now time.Time) validation.RequestContext {
	return validation.RequestContext{
		UserID:    r.UserID(),
		AuthToken: r.AuthToken,
		MsgID:     r.MsgID,
		Action:    r.Action,
		Time:      now,
	}
}

// BulkRequest carries many members for one operation.
type BulkRequest struct {
	RequestInfo      RequestInfo       `json:"RequestInfo"`
	HouseholdMembers []HouseholdMember `json:"HouseholdMembers"`
}

// Request carries a single member.
type Request struct {
	RequestInfo     RequestInfo     `json:"RequestInfo"`
	HouseholdMember HouseholdMember `json:"HouseholdMember"`
}

// Bulk lifts a single-member request into a bulk request.
func (r Request) Bulk() BulkRequest {
	return BulkRequest{RequestInfo: r.RequestInfo, HouseholdMembers: []HouseholdMember{r.HouseholdMember}}
}

// Search filters members. Empty slices do not constrain the result.
type Search struct {
	ID                          []string `json:"id,omitempty"`
	ClientReferenceID           []string `json:"clientReferenceId,omitempty"`
	HouseholdID                 []string `json:"householdId,omitempty"`
	HouseholdClientReferenceID  []string `json:"householdClientReferenceId,omitempty"`
	IndividualID                []string `json:"individualId,omitempty"`
	IndividualClientReferenceID []string `json:"individualClientReferenceId,omitempty"`
	IsHeadOfHousehold           *bool    `json:"isHeadOfHousehold,omitempty"`
}

// OnlyIDs reports whether the search constrains nothing but server ids.
func (s Search) OnlyIDs() bool {
	return len(s.ID) > 0 &&
		len(s.ClientReferenceID) == 0 &&
		len(s.HouseholdID) == 0 &&
		len(s.HouseholdClientReferenceID) == 0 &&
		len(s.IndividualID) == 0 &&
		len(s.IndividualClientReferenceID) == 0 &&
		s.IsHeadOfHousehold == nil
}

// SearchRequest is the search body plus URL paging parameters.
type SearchRequest struct {
	RequestInfo      RequestInfo `json:"RequestInfo"`
	HouseholdMember  Search      `json:"HouseholdMember"`
	TenantID         string      `json:"-"`
	Limit            int         `json:"-"`
	Offset           int         `json:"-"`
	LastChangedSince int64       `json:"-"`
	IncludeDeleted   bool        `json:"-"`
}

// EntityErrors is the multi-status entry for one rejected member.
type EntityErrors struct {
	Index  int                 `json:"index"`
	Member HouseholdMember     `json:"householdMember"`
	Errors []*validation.Error `json:"errors"`
}

// BulkResult is the outcome of a bulk operation: persisted members and
// per-entity failures.
type BulkResult struct {
	Members []HouseholdMember `json:"HouseholdMembers"`
	Errors  []EntityErrors    `json:"Errors,omitempty"`
}

// SearchResult is one page of members.
type SearchResult struct {
	Members    []HouseholdMember `json:"HouseholdMembers"`
	TotalCount int               `json:"TotalCount"`
}
