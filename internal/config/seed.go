package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"course-watch/internal/domain/entity"
	scheduleUC "course-watch/internal/usecase/schedule"
)

// ScheduleSeed is one entry of the schedule seed file.
type ScheduleSeed struct {
	Name        string                     `yaml:"name"`
	Semester    int                        `yaml:"semester"`
	GroupNumber int                        `yaml:"group"`
	ExternalRef entity.ExternalScheduleRef `yaml:"external_ref"`
}

type seedFile struct {
	Schedules []ScheduleSeed `yaml:"schedules"`
}

// LoadScheduleSeeds reads the YAML seed file at path. An empty path or a
// missing file yields no seeds; a malformed file is an error.
//
// Example:
//
//	schedules:
//	  - name: Computer Science
//	    semester: 3
//	    group: 2
//	    external_ref: {plan_id: 1042, type: full, week_days: "1,2,3,4,5"}
func LoadScheduleSeeds(path string) ([]scheduleUC.CreateInput, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseScheduleSeeds(data)
}

// ParseScheduleSeeds decodes seed YAML. Unknown keys are rejected so a
// typo does not silently produce a half-empty schedule.
func ParseScheduleSeeds(data []byte) ([]scheduleUC.CreateInput, error) {
	var file seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seeds := make([]scheduleUC.CreateInput, 0, len(file.Schedules))
	for _, s := range file.Schedules {
		seeds = append(seeds, scheduleUC.CreateInput{
			Name:        s.Name,
			Semester:    s.Semester,
			GroupNumber: s.GroupNumber,
			ExternalRef: s.ExternalRef,
		})
	}
	return seeds, nil
}
