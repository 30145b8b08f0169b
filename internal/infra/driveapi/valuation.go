package driveapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/yanqian/drive-value/internal/domain/valuation"
)

// Valuate posts the valuation request and returns the raw report.
func (c *Client) Valuate(ctx context.Context, req valuation.Request) ([]byte, error) {
	data, err := c.do(ctx, http.MethodPost, c.valuationPath, "", req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, &valuation.StatusError{StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return nil, err
	}
	return data, nil
}

var _ valuation.Client = (*Client)(nil)
