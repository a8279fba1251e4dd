package models

import (
	"time"
)

// ResponseInfo echoes the request envelope with an outcome.
type ResponseInfo struct {
	APIID    string `json:"apiId,omitempty"`
	Ver      string `json:"ver,omitempty"`
	Ts       int64  `json:"ts"`
	ResMsgID string `json:"resMsgId,omitempty"`
	MsgID    string `json:"msgId,omitempty"`
	Status   string `json:"status"`
}

const (
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
)

// NewResponseInfo answers ri at now. resMsgID is the server correlation id.
func NewResponseInfo(ri RequestInfo, success bool, now time.Time, resMsgID string) ResponseInfo {
	status := StatusSuccessful
	if !success {
		status = StatusFailed
	}
	return ResponseInfo{
		APIID:    ri.APIID,
		Ver:      ri.Ver,
		Ts:       now.UnixMilli(),
		ResMsgID: resMsgID,
		MsgID:    ri.MsgID,
		Status:   status,
	}
}

// Response answers a single-member operation.
type Response struct {
	ResponseInfo    ResponseInfo    `json:"ResponseInfo"`
	HouseholdMember HouseholdMember `json:"HouseholdMember"`
}

// BulkResponse answers a bulk operation with the persisted members and the
// per-entity errors of the rejected ones.
type BulkResponse struct {
	ResponseInfo     ResponseInfo      `json:"ResponseInfo"`
	HouseholdMembers []HouseholdMember `json:"HouseholdMembers"`
	Errors           []EntityErrors    `json:"Errors,omitempty"`
}

// SearchResponse answers a search with one page and the total match count.
type SearchResponse struct {
	ResponseInfo     ResponseInfo      `json:"ResponseInfo"`
	HouseholdMembers []HouseholdMember `json:"HouseholdMembers"`
	TotalCount       int               `json:"TotalCount"`
}

// HouseholdRequest upserts local household records.
type HouseholdRequest struct {
	RequestInfo RequestInfo `json:"RequestInfo"`
	Households  []Household `json:"Households"`
}
