package notify

import (
	"fmt"
	"strings"
	"time"

	"course-watch/internal/domain/entity"
)

const messageFooter = "course-watch"

// BuildMessage renders the notification for event. scheduleName is used as
// the embed title; the caller falls back to the schedule id when the
// schedule is gone.
func BuildMessage(scheduleName string, event entity.CoursesChangedEvent, now time.Time) entity.WebhookMessage {
	var lines []string
	if n := len(event.Created); n > 0 {
		lines = append(lines, fmt.Sprintf("%s added", plural(n, "course")))
	}
	if n := len(event.Updated); n > 0 {
		lines = append(lines, fmt.Sprintf("%s changed", plural(n, "course")))
	}
	if n := len(event.Deleted); n > 0 {
		lines = append(lines, fmt.Sprintf("%s removed", plural(n, "course")))
	}
	if len(lines) == 0 {
		lines = append(lines, "The timetable was refreshed.")
	}

	return entity.WebhookMessage{
		Content:     fmt.Sprintf("Courses updated for **%s**", scheduleName),
		Title:       scheduleName,
		Description: strings.Join(lines, "\n"),
		Footer:      messageFooter,
		Timestamp:   now,
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
