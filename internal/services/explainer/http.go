package explainer

import (
	"context"
	"fmt"
	"time"

	"MandiCast/internal/domain/models"
	xhttp "MandiCast/pkg/http"
	"MandiCast/pkg/logger"
)

// Client talks to the external explanation service that turns
// structured advice into farmer-facing prose. The service is a black
// box; only its HTTP contract matters here.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *xhttp.Client
	log     *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:     log,
	}
}

type explainRequest struct {
	Commodity  string   `json:"commodity"`
	Market     string   `json:"market"`
	Action     string   `json:"action"`
	WaitDays   int      `json:"wait_days"`
	Price      float64  `json:"price"`
	PeakPrice  float64  `json:"peak_price"`
	Confidence float64  `json:"confidence"`
	RiskLabel  string   `json:"risk_label"`
	Verdict    string   `json:"verdict"`
	Warnings   []string `json:"warnings"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// Explain requests a prose explanation for the advice. The deadline is
// enforced here so a slow text service cannot stall the advice path.
func (c *Client) Explain(ctx context.Context, advice models.Advice) (string, error) {
	if c.baseURL == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := explainRequest{
		Commodity:  advice.Recommendation.Commodity,
		Market:     advice.Recommendation.Market,
		Action:     advice.Oversight.FinalAction,
		WaitDays:   advice.Oversight.FinalWaitDays,
		Price:      advice.Recommendation.CurrentPrice,
		PeakPrice:  advice.Recommendation.PeakPrice,
		Confidence: advice.Oversight.AdjustedConfidence,
		RiskLabel:  advice.Oversight.RiskLabel,
		Verdict:    string(advice.Oversight.Verdict),
	}
	for _, w := range advice.Oversight.Warnings {
		req.Warnings = append(req.Warnings, w.Code)
	}

	var resp explainResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/explain",
		Body:   req,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("explain request: %w", err)
	}
	return resp.Explanation, nil
}
