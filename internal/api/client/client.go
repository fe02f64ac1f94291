package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/service"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient() (*Client, error) {
	baseURL := os.Getenv("REPORTMILL_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		baseURL: baseURL,
		token:   os.Getenv("REPORTMILL_TOKEN"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) Login(username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post("/api/v1/auth/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) ListSchedules(reportType, frequency, active string) ([]models.ReportSchedule, error) {
	query := url.Values{}
	if reportType != "" {
		query.Set("report_type", reportType)
	}
	if frequency != "" {
		query.Set("frequency", frequency)
	}
	if active != "" {
		query.Set("active", active)
	}

	var schedules []models.ReportSchedule
	if err := c.get("/api/v1/schedules?"+query.Encode(), &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *Client) GetSchedule(id uint) (*models.ReportSchedule, error) {
	var sched models.ReportSchedule
	if err := c.get(fmt.Sprintf("/api/v1/schedules/%d", id), &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

func (c *Client) CreateSchedule(input service.CreateInput) (*models.ReportSchedule, error) {
	var sched models.ReportSchedule
	if err := c.post("/api/v1/schedules", input, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

func (c *Client) DeleteSchedule(id uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/v1/schedules/%d", id), nil, nil)
}

func (c *Client) RunSchedule(id uint) (map[string]any, error) {
	var outcome map[string]any
	if err := c.post(fmt.Sprintf("/api/v1/schedules/%d/run", id), nil, &outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (c *Client) ListExecutions(scheduleID string, page, limit int) ([]models.ReportExecution, error) {
	query := url.Values{}
	if scheduleID != "" {
		query.Set("schedule_id", scheduleID)
	}
	if page > 0 {
		query.Set("page", fmt.Sprintf("%d", page))
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}

	var execs []models.ReportExecution
	if err := c.get("/api/v1/executions?"+query.Encode(), &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

func (c *Client) get(endpoint string, out interface{}) error {
	return c.do(http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(endpoint string, body, out interface{}) error {
	return c.do(http.MethodPost, endpoint, body, out)
}

func (c *Client) do(method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
