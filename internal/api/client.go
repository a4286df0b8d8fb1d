package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"hygiene-client/internal/config"
	"hygiene-client/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client talks to the hygiene backend. Endpoint and parameter conventions
// are not fixed server-side, so callers try ordered lists of paths and treat
// any single failure as "next candidate".
type Client struct {
	http   *resty.Client
	logger *logrus.Logger
}

func NewClient(cfg *config.ClientConfig) *Client {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	httpClient := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTimeout(time.Duration(cfg.HTTPTimeoutSeconds) * time.Second).
		SetRetryCount(cfg.HTTPRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if !cfg.UseCredentials {
		httpClient.SetCookieJar(nil)
	}

	return &Client{
		http:   httpClient,
		logger: log,
	}
}

// GetJSON performs a GET and decodes the body into loose JSON.
func (c *Client) GetJSON(ctx context.Context, path string) (any, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("%s GET: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s GET %d", path, resp.StatusCode())
	}

	var out any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%s GET decode: %w", path, err)
	}
	return out, nil
}

// GetList performs a GET and unwraps the response into a list of raw rows.
func (c *Client) GetList(ctx context.Context, path string) ([]map[string]any, error) {
	res, err := c.GetJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	return PickList(res), nil
}

// GetOne performs a GET expecting a single object.
func (c *Client) GetOne(ctx context.Context, path string) (map[string]any, error) {
	res, err := c.GetJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s GET: unexpected shape", path)
	}
	return m, nil
}

// Offices fetches the office master list.
func (c *Client) Offices(ctx context.Context) ([]models.Office, error) {
	rows, err := c.GetList(ctx, "/offices/")
	if err != nil {
		return nil, err
	}

	offices := make([]models.Office, 0, len(rows))
	for _, row := range rows {
		o := NormalizeOffice(row)
		if o.Name == "" && o.Code == "" && o.ID == "" {
			continue
		}
		offices = append(offices, o)
	}

	c.logger.WithField("count", len(offices)).Debug("Fetched offices")
	return offices, nil
}

// ItemsByRecordID tries the known item-endpoint spellings until one returns
// a non-empty list.
func (c *Client) ItemsByRecordID(ctx context.Context, recordID string) []map[string]any {
	q := url.QueryEscape(recordID)
	paths := []string{
		fmt.Sprintf("/records/%s/items/", recordID),
		fmt.Sprintf("/records/%s/items", recordID),
		"/record_items/?record=" + q,
		"/record_items/?record_id=" + q,
	}

	for _, p := range paths {
		list, err := c.GetList(ctx, p)
		if err != nil {
			c.logger.WithError(err).WithField("path", p).Debug("Item fetch candidate failed")
			continue
		}
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// SubmitRecord posts a full daily submission.
func (c *Client) SubmitRecord(ctx context.Context, payload map[string]any) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(payload).Post("/records/submit")
	if err != nil {
		return fmt.Errorf("/records/submit POST: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("/records/submit POST %d", resp.StatusCode())
	}
	return nil
}

// SupervisorConfirm sets or clears the backend confirmation flag and returns
// the resulting state reported by the server (falling back to the requested
// state when the body carries none).
func (c *Client) SupervisorConfirm(ctx context.Context, recordID string, confirmed bool, supervisorCode string) (bool, error) {
	path := fmt.Sprintf("/records/%s/supervisor_confirm/", url.PathEscape(recordID))

	var resp *resty.Response
	var err error
	if confirmed {
		body := map[string]any{}
		if supervisorCode != "" {
			body["supervisor_code"] = supervisorCode
		}
		resp, err = c.http.R().SetContext(ctx).SetBody(body).Post(path)
	} else {
		resp, err = c.http.R().SetContext(ctx).Delete(path)
	}

	if err != nil {
		return false, fmt.Errorf("supervisor_confirm: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("supervisor_confirm %d", resp.StatusCode())
	}

	var body map[string]any
	if json.Unmarshal(resp.Body(), &body) == nil {
		if v, ok := body["supervisor_confirmed"].(bool); ok {
			return v, nil
		}
	}
	return confirmed, nil
}

// ActiveRange returns the YYYY-MM span between an employee's first record
// and today. Path-style endpoint first, query-style as fallback.
func (c *Client) ActiveRange(ctx context.Context, employeeID string) (string, string, error) {
	id := url.PathEscape(employeeID)

	res, err := c.GetOne(ctx, fmt.Sprintf("/employees/%s/active_range/", id))
	if err != nil {
		res, err = c.GetOne(ctx, "/employees/active_range/?employee_id="+url.QueryEscape(employeeID))
		if err != nil {
			return "", "", err
		}
	}

	start := firstStr(res, "startYm", "start_ym")
	end := firstStr(res, "endYm", "end_ym")
	if len(start) > 7 {
		start = start[:7]
	}
	if len(end) > 7 {
		end = end[:7]
	}
	return start, end, nil
}

// ClearRecord wipes a record on the backend. It tries the clear endpoint,
// then a plain DELETE, then an empty re-submit, and fails only when every
// route is exhausted.
func (c *Client) ClearRecord(ctx context.Context, remoteID, employeeCode, dateISO string) error {
	if remoteID != "" {
		id := url.PathEscape(remoteID)
		for _, p := range []string{
			fmt.Sprintf("/records/%s/clear/", id),
			fmt.Sprintf("/records/%s/clear", id),
		} {
			resp, err := c.http.R().SetContext(ctx).Post(p)
			if err == nil && !resp.IsError() {
				return nil
			}
		}

		for _, p := range []string{
			fmt.Sprintf("/records/%s/", id),
			fmt.Sprintf("/records/%s", id),
		} {
			resp, err := c.http.R().SetContext(ctx).Delete(p)
			if err == nil && (!resp.IsError() || resp.StatusCode() == 204) {
				return nil
			}
		}
	}

	if employeeCode != "" && dateISO != "" {
		payload := map[string]any{
			"employee_code":   employeeCode,
			"date":            dateISO,
			"work_start_time": nil,
			"work_end_time":   nil,
			"supervisor_code": nil,
			"items":           []any{},
		}
		if err := c.SubmitRecord(ctx, payload); err == nil {
			return nil
		}
	}

	return fmt.Errorf("clear record: all strategies failed")
}
