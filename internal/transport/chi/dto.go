package chi

import (
	"github.com/kailas-cloud/knowwho/internal/domain/network"
	healthuc "github.com/kailas-cloud/knowwho/internal/usecase/health"
)

// ErrorCode is a machine readable error kind.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeDatasetNotFound  ErrorCode = "dataset_not_found"
	ErrorCodeNodeNotFound     ErrorCode = "node_not_found"
	ErrorCodeRateLimited      ErrorCode = "rate_limited"
	ErrorCodeLLMDisabled      ErrorCode = "llm_disabled"
	ErrorCodeLLMProviderError ErrorCode = "llm_provider_error"
	ErrorCodeStreamingFailed  ErrorCode = "streaming_unsupported"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Violations []string  `json:"violations,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                  `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// DatasetSummary is one entry of the dataset list.
type DatasetSummary struct {
	QueryID      string `json:"queryId"`
	QueryText    string `json:"queryText"`
	CenterNodeID string `json:"centerNodeId"`
	NodeCount    int    `json:"nodeCount"`
	EdgeCount    int    `json:"edgeCount"`
}

// DatasetListResponse is the body of GET /api/v1/datasets.
type DatasetListResponse struct {
	Items []DatasetSummary `json:"items"`
}

// PutDatasetResponse is the body of PUT /api/v1/datasets/{queryId}.
type PutDatasetResponse struct {
	QueryID string `json:"queryId"`
	Created bool   `json:"created"`
}

// BriefRequest is the optional body of the brief endpoint. Empty fields
// fall back to the saved settings.
type BriefRequest struct {
	Language *string `json:"language,omitempty"`
	Model    *string `json:"model,omitempty"`
}

// BriefDelta is the payload of a "delta" stream event.
type BriefDelta struct {
	Text string `json:"text"`
}

func summaryOf(ds *network.Dataset) DatasetSummary {
	return DatasetSummary{
		QueryID:      ds.Query.QueryID,
		QueryText:    ds.Query.QueryText,
		CenterNodeID: ds.Query.CenterNodeID,
		NodeCount:    len(ds.Nodes),
		EdgeCount:    len(ds.Edges),
	}
}
