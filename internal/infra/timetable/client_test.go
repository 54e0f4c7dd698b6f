package timetable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-watch/internal/domain/entity"
	"course-watch/internal/resilience/circuitbreaker"
)

var testRef = entity.ExternalScheduleRef{PlanID: 4021, Type: "full-time", WeekDays: "mon-fri"}

const planBody = `[
  {"name":"Algebra","type":"lecture","teachers":"dr A. Nowak","dayOfWeek":"MONDAY",
   "startTime":"08:15","endTime":"09:45","weekParity":"","classroom":"A-1"},
  {"name":"Physics lab","type":"LAB","dayOfWeek":"thursday","startTime":"12:00",
   "endTime":"14:00","weekParity":"ODD","additionalInfo":"bring goggles"}
]`

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, Timeout: 2 * time.Second})
}

func TestClient_PlanURL(t *testing.T) {
	c := newTestClient("https://plan.example.edu/api/")
	assert.Equal(t, "https://plan.example.edu/api/plans/4021/courses?type=full-time&weekDays=mon-fri", c.PlanURL(testRef))
	assert.Equal(t, "https://plan.example.edu/api/plans/7/courses", c.PlanURL(entity.ExternalScheduleRef{PlanID: 7}))
}

func TestClient_FetchCourses(t *testing.T) {
	t.Run("TC-1: decodes and normalizes records", func(t *testing.T) {
		var gotPath, gotQuery, gotAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			gotAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(planBody))
		}))
		defer server.Close()

		courses, err := newTestClient(server.URL).FetchCourses(context.Background(), testRef)

		require.NoError(t, err)
		assert.Equal(t, "/plans/4021/courses", gotPath)
		assert.Equal(t, "type=full-time&weekDays=mon-fri", gotQuery)
		assert.Equal(t, userAgent, gotAgent)
		require.Len(t, courses, 2)

		assert.Equal(t, entity.CourseFields{
			Name:      "Algebra",
			Type:      entity.CourseTypeLecture,
			Teachers:  "dr A. Nowak",
			DayOfWeek: time.Monday,
			Start:     entity.NewClockTime(8, 15),
			End:       entity.NewClockTime(9, 45),
			Parity:    entity.ParityEvery,
			Classroom: "A-1",
		}, courses[0])
		assert.Equal(t, time.Thursday, courses[1].DayOfWeek)
		assert.Equal(t, entity.ParityOdd, courses[1].Parity)
		assert.Equal(t, "bring goggles", courses[1].AdditionalInfo)
	})

	t.Run("TC-2: empty plan yields empty slice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		courses, err := newTestClient(server.URL).FetchCourses(context.Background(), testRef)
		require.NoError(t, err)
		assert.NotNil(t, courses)
		assert.Empty(t, courses)
	})

	t.Run("TC-3: non-2xx returns HTTPStatusError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCourses(context.Background(), testRef)

		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(t, int64(4021), statusErr.PlanID)
	})

	t.Run("TC-4: one bad record fails the whole fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[
			  {"name":"Algebra","type":"LECTURE","dayOfWeek":"MONDAY","startTime":"08:00","endTime":"09:30"},
			  {"name":"Broken","type":"LECTURE","dayOfWeek":"MONDAY","startTime":"10:00","endTime":"09:00"}
			]`))
		}))
		defer server.Close()

		courses, err := newTestClient(server.URL).FetchCourses(context.Background(), testRef)
		assert.ErrorIs(t, err, ErrInvalidRecord)
		assert.ErrorIs(t, err, entity.ErrInvalidInput)
		assert.Nil(t, courses)
	})

	t.Run("TC-5: malformed JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"oops"`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchCourses(context.Background(), testRef)
		assert.Error(t, err)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	t.Run("TC-1: server errors open the circuit", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		minRequests := int(circuitbreaker.TimetableConfig().ConsecutiveFailures)
		for i := 0; i < minRequests; i++ {
			_, err := client.FetchCourses(context.Background(), testRef)
			require.Error(t, err)
		}

		_, err := client.FetchCourses(context.Background(), testRef)
		assert.True(t, errors.Is(err, circuitbreaker.ErrOpenState), "err=%v", err)
		assert.Equal(t, int32(minRequests), atomic.LoadInt32(&calls))
	})

	t.Run("TC-2: unknown plans keep the circuit closed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		for i := 0; i < 10; i++ {
			_, err := client.FetchCourses(context.Background(), testRef)
			var statusErr *HTTPStatusError
			require.ErrorAs(t, err, &statusErr)
		}
		assert.False(t, client.circuitBreaker.IsOpen())
	})
}

func TestSourceIsHealthy(t *testing.T) {
	assert.True(t, sourceIsHealthy(nil))
	assert.True(t, sourceIsHealthy(&HTTPStatusError{StatusCode: 404}))
	assert.True(t, sourceIsHealthy(ErrInvalidRecord))
	assert.False(t, sourceIsHealthy(&HTTPStatusError{StatusCode: 502}))
	assert.False(t, sourceIsHealthy(errors.New("connection refused")))
}
