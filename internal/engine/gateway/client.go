// Package gateway is the typed client for the business-extractor HTTP API.
// It owns no state beyond connection settings.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/logging"
	"github.com/egemenmermer/business-extractor/internal/model"
)

const (
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second

	requestIDHeader = "X-Request-ID"
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	ChromeTLS bool
	ProxyURL  string
	Logger    *zap.Logger

	// Retries applies to idempotent GETs only; negative disables retrying.
	Retries   int
	RetryWait time.Duration
	RetryMax  time.Duration

	// Now is used for token expiry checks and export filenames.
	Now func() time.Time
}

type Client struct {
	http   *resty.Client
	token  string
	logger *zap.Logger
	now    func() time.Time
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = maxRetries
	} else if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = baseBackoff
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = maxBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	transport, err := newTransport(opts.ChromeTLS, opts.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: building transport: %w", err)
	}

	logger := logging.OrNop(opts.Logger).Named("gateway")

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar()).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMax).
		AddRetryCondition(retryable)

	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	c := &Client{
		http:   rc,
		token:  opts.Token,
		logger: logger,
		now:    opts.Now,
	}

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(requestIDHeader, uuid.NewString())
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		c.logger.Debug("response",
			zap.String("method", res.Request.Method),
			zap.String("url", res.Request.URL),
			zap.Int("status", res.StatusCode()),
			zap.Duration("took", res.Time()),
			zap.String("request_id", res.Request.Header.Get(requestIDHeader)),
		)
		return nil
	})

	return c, nil
}

type singleAttemptKey struct{}

// singleAttempt marks ctx so the request it carries is never retried. The
// poll endpoints use it: the poller asks again on its next tick.
func singleAttempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

// retryable retries GETs on transport errors, 429 and 5xx. POSTs are never
// retried: a duplicate /search would enqueue a second job.
func retryable(res *resty.Response, err error) bool {
	if res == nil || res.Request == nil || res.Request.Method != http.MethodGet {
		return false
	}
	if once, _ := res.Request.Context().Value(singleAttemptKey{}).(bool); once {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	code := res.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// checkToken rejects a JWT whose exp claim has passed without touching the
// network. Opaque (non-JWT) tokens are passed through.
func (c *Client) checkToken(op string) error {
	if c.token == "" {
		return nil
	}
	tok, _, err := jwt.NewParser().ParseUnverified(c.token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !c.now().Before(exp.Time) {
		return &AuthError{Op: op, Reason: "token expired at " + exp.Time.UTC().Format(time.RFC3339)}
	}
	return nil
}

func (c *Client) request(ctx context.Context, op string) (*resty.Request, error) {
	if err := c.checkToken(op); err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx), nil
}

// check maps a resty outcome onto the gateway error taxonomy.
func (c *Client) check(op string, res *resty.Response, err error) error {
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	if res.StatusCode() == http.StatusUnauthorized {
		return &AuthError{Op: op, Reason: "server answered 401"}
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() > 299 {
		return &FetchError{Op: op, StatusCode: res.StatusCode()}
	}
	return nil
}

func decode[T any](op string, res *resty.Response) (T, error) {
	var out T
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return out, &FetchError{Op: op, StatusCode: res.StatusCode(), Err: fmt.Errorf("decoding body: %w", err)}
	}
	return out, nil
}

func getJSON[T any](ctx context.Context, c *Client, op, path string, configure func(*resty.Request)) (T, error) {
	var zero T
	req, err := c.request(ctx, op)
	if err != nil {
		return zero, err
	}
	if configure != nil {
		configure(req)
	}
	res, err := req.Get(path)
	if err := c.check(op, res, err); err != nil {
		return zero, err
	}
	return decode[T](op, res)
}

// Search submits the categories × locations job and returns the job id.
func (c *Client) Search(ctx context.Context, sr model.SearchRequest) (string, error) {
	const op = "search"
	req, err := c.request(ctx, op)
	if err != nil {
		return "", err
	}
	res, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(sr).
		Post("/search")
	if err := c.check(op, res, err); err != nil {
		return "", err
	}

	// The server replies with a bare id; some deployments JSON-quote it.
	body := strings.TrimSpace(res.String())
	if strings.HasPrefix(body, `"`) {
		var id string
		if err := json.Unmarshal([]byte(body), &id); err != nil {
			return "", &FetchError{Op: op, StatusCode: res.StatusCode(), Err: fmt.Errorf("decoding job id: %w", err)}
		}
		body = id
	}
	c.logger.Info("search submitted",
		zap.String("job_id", body),
		zap.Int("categories", len(sr.Categories)),
		zap.Int("locations", len(sr.Locations)),
	)
	return body, nil
}

// Tasks returns the status of every task of the current job. It makes a
// single attempt.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	return getJSON[[]model.Task](singleAttempt(ctx), c, "tasks", "/tasks", nil)
}

// Results returns the incremental result set of the current job. It makes a
// single attempt.
func (c *Client) Results(ctx context.Context) (model.Results, error) {
	return getJSON[model.Results](singleAttempt(ctx), c, "results", "/results", nil)
}
