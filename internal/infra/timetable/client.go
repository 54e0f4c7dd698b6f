// Package timetable fetches the published course list of a schedule from the
// university timetable service.
package timetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"course-watch/internal/domain/entity"
	"course-watch/internal/resilience/circuitbreaker"
)

const (
	userAgent       = "course-watch/1.0"
	maxResponseSize = 4 << 20
)

// HTTPStatusError is returned when the timetable service answers with a
// non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	PlanID     int64
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("timetable plan %d: unexpected status %d", e.PlanID, e.StatusCode)
}

// ErrInvalidRecord wraps every conversion failure of a fetched record.
var ErrInvalidRecord = errors.New("invalid timetable record")

// Config configures Client.
type Config struct {
	// BaseURL is the root of the timetable API, e.g. https://plan.example.edu/api.
	BaseURL string

	// Timeout bounds each HTTP request. The caller's context may be shorter.
	Timeout time.Duration
}

// Client reads course lists over HTTP. Calls go through a circuit breaker
// so an unreachable service fails fast for the remaining schedules of a tick.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a Client with the timetable circuit breaker.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cbConfig := circuitbreaker.TimetableConfig()
	cbConfig.IsSuccessful = sourceIsHealthy
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		circuitBreaker: circuitbreaker.New(cbConfig),
	}
}

// sourceIsHealthy keeps answers that prove the service is up, such as an
// unknown plan or a malformed record, from tripping the circuit.
func sourceIsHealthy(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidRecord) || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500
	}
	return false
}

// courseRecord is the wire form of one course.
type courseRecord struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	Teachers       string `json:"teachers"`
	DayOfWeek      string `json:"dayOfWeek"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	WeekParity     string `json:"weekParity"`
	Classroom      string `json:"classroom"`
	AdditionalInfo string `json:"additionalInfo"`
}

// PlanURL renders the endpoint serving ref.
func (c *Client) PlanURL(ref entity.ExternalScheduleRef) string {
	q := url.Values{}
	if ref.Type != "" {
		q.Set("type", ref.Type)
	}
	if ref.WeekDays != "" {
		q.Set("weekDays", ref.WeekDays)
	}
	u := c.baseURL + "/plans/" + strconv.FormatInt(ref.PlanID, 10) + "/courses"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// FetchCourses returns every course the service publishes for ref.
// One record that cannot be converted fails the whole fetch; a partial
// timetable would otherwise delete the missing courses.
func (c *Client) FetchCourses(ctx context.Context, ref entity.ExternalScheduleRef) ([]entity.CourseFields, error) {
	courses, err := circuitbreaker.Do(c.circuitBreaker, func() ([]entity.CourseFields, error) {
		return c.doFetch(ctx, ref)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpenState) {
			slog.WarnContext(ctx, "timetable circuit breaker open, request rejected",
				slog.String("service", c.circuitBreaker.Name()),
				slog.String("plan", ref.String()))
		}
		return nil, err
	}
	return courses, nil
}

func (c *Client) doFetch(ctx context.Context, ref entity.ExternalScheduleRef) ([]entity.CourseFields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PlanURL(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("create timetable request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch timetable plan %d: %w", ref.PlanID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, PlanID: ref.PlanID}
	}

	var records []courseRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode timetable plan %d: %w", ref.PlanID, err)
	}

	courses := make([]entity.CourseFields, 0, len(records))
	for i, rec := range records {
		f, err := rec.toFields()
		if err != nil {
			return nil, fmt.Errorf("%w: plan %d record %d: %w", ErrInvalidRecord, ref.PlanID, i, err)
		}
		courses = append(courses, f)
	}

	slog.DebugContext(ctx, "timetable fetched",
		slog.String("plan", ref.String()),
		slog.Int("courses", len(courses)))
	return courses, nil
}

var weekdays = map[string]time.Weekday{
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
	"SUNDAY":    time.Sunday,
}

func (r courseRecord) toFields() (entity.CourseFields, error) {
	day, ok := weekdays[strings.ToUpper(strings.TrimSpace(r.DayOfWeek))]
	if !ok {
		return entity.CourseFields{}, fmt.Errorf("unknown day of week %q", r.DayOfWeek)
	}
	start, err := entity.ParseClockTime(r.StartTime)
	if err != nil {
		return entity.CourseFields{}, err
	}
	end, err := entity.ParseClockTime(r.EndTime)
	if err != nil {
		return entity.CourseFields{}, err
	}

	parity := entity.WeekParity(strings.ToUpper(strings.TrimSpace(r.WeekParity)))
	if parity == "" {
		parity = entity.ParityEvery
	}

	f := entity.CourseFields{
		Name:           strings.TrimSpace(r.Name),
		Description:    strings.TrimSpace(r.Description),
		Type:           entity.CourseType(strings.ToUpper(strings.TrimSpace(r.Type))),
		Teachers:       strings.TrimSpace(r.Teachers),
		DayOfWeek:      day,
		Start:          start,
		End:            end,
		Parity:         parity,
		Classroom:      strings.TrimSpace(r.Classroom),
		AdditionalInfo: strings.TrimSpace(r.AdditionalInfo),
	}
	if err := f.Validate(); err != nil {
		return entity.CourseFields{}, err
	}
	return f, nil
}
