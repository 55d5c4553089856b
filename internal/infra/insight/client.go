// Package insight calls the external narrative-insight service (an LLM
// gateway) that turns metric tables into plain-language commentary. The
// service is a collaborator outside the reconciliation core: every call goes
// through the circuit breaker and retry policy, and a failure never blocks
// the pipeline itself.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/infra/resilience"
)

var tracer = otel.Tracer("infra/insight")

// Client calls the insight generation service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	retry      resilience.RetryPolicy
}

// NewClient creates a new insight Client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, retry resilience.RetryPolicy) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		retry:      retry,
	}
}

// Generate requests commentary for one report section.
func (c *Client) Generate(ctx context.Context, req *domain.InsightRequest) (*domain.InsightResponse, error) {
	ctx, span := tracer.Start(ctx, "InsightClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("snapshot.id", req.SnapshotID),
		attribute.String("insight.section", req.Section),
	)

	var insightResp domain.InsightResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.Retry(ctx, c.retry, func() error {
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/insights/generate", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("insight API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&insightResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &insightResp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: "insight"}
		}
		return nil, &domain.ErrExternalService{Service: "insight", Err: err}
	}

	return result.(*domain.InsightResponse), nil
}
