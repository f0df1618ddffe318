// Package applicationapi is the HTTP client of the application backend.
package applicationapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"idcard/internal/collaborators/backend"
	"idcard/internal/wizard/models"
	"idcard/internal/wizard/submission"
	dErrors "idcard/pkg/domain-errors"
)

const pathSubmit = "/applications"

// Client implements ports.ApplicationService over HTTP.
type Client struct {
	backend *backend.Client
}

func New(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	return &Client{backend: backend.New(baseURL, timeout, httpClient, "idcard/applicationapi")}
}

// submitResponse accepts both id spellings the backend has used.
type submitResponse struct {
	ApplicationID string          `json:"applicationId"`
	ID            json.RawMessage `json:"id"`
	Application   json.RawMessage `json:"application"`
}

// Submit posts the package as multipart/form-data and returns the backend's
// receipt. The receipt id may be empty; callers fall back to the provisional id.
func (c *Client) Submit(ctx context.Context, pkg *models.SubmissionPackage) (*models.Receipt, error) {
	var body bytes.Buffer
	contentType, err := submission.Encode(&body, pkg)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSubmissionFailed, "failed to encode the application")
	}

	var resp submitResponse
	if err := c.backend.Post(ctx, "applicationapi.Submit", pathSubmit, contentType, &body, &resp, dErrors.CodeSubmissionFailed); err != nil {
		if dErrors.HasCode(err, dErrors.CodeSubmissionFailed) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSubmissionFailed, "the application service did not accept the submission")
	}

	receipt := &models.Receipt{ApplicationID: resp.ApplicationID, Application: resp.Application}
	if receipt.ApplicationID == "" {
		receipt.ApplicationID = rawID(resp.ID)
	}
	return receipt, nil
}

// rawID renders a JSON string or number id as text.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
