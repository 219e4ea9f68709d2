package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// ClientConfig configures the API client.
//
// Token is a getter, not a string: the env-file watcher may rotate the
// OAuth token while the bot is running, and every request should see the
// current value.
type ClientConfig struct {
	Endpoint string
	Token    func() string
	Timeout  time.Duration
}

type Client struct {
	http     *http.Client
	endpoint string
	token    func() string
	log      logx.Logger
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		log:      log,
	}
}

// HomeworkStatuses fetches homework status changes since the given unix
// timestamp. It returns a validated response or one of the typed errors
// from errors.go.
func (c *Client) HomeworkStatuses(ctx context.Context, from int64) (*StatusResponse, error) {
	q := url.Values{"from_date": {strconv.FormatInt(from, 10)}}
	reqURL := c.endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token())

	c.log.Debug("API request", logx.String("url", c.endpoint), logx.Int64("from_date", from))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request homework statuses: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, &ShapeError{Reason: "body is not valid JSON: " + err.Error()}
	}

	out, err := CheckResponse(body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("API response",
		logx.Int("homeworks", len(out.Homeworks)),
		logx.Int64("current_date", out.CurrentDate))
	return out, nil
}

func (c *Client) statusError(resp *http.Response) error {
	// Cap the error body read; it is only used for diagnostics.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &AuthError{Body: string(raw)}
	case http.StatusBadRequest:
		be := &BadRequestError{}
		var apiErr struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil {
			be.Code = apiErr.Code
			be.Message = apiErr.Error
		}
		return be
	default:
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
}
