// Package schedule turns the relay's maintenance schedules, such as directory refreshes and image sweeps,
// into gocron jobs
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcsantiago/gocron"
	"github.com/pkg/errors"
)

// ScheduleDefinition represents when a maintenance task runs
type ScheduleDefinition struct {
	// Interval value (every 1 minute is expressed with an interval of 1). Ignored when Weekday is set
	Interval uint64

	// One of "weeks", "hours", "days", "minutes" or "seconds". Ignored when Weekday is set
	Unit string

	// Optional day of the week. When set, the task runs every week on that day
	Weekday string

	// Optional "at time" value (i.e. "10:30")
	AtTime string
}

// Unit values
const (
	Weeks   = "weeks"
	Hours   = "hours"
	Days    = "days"
	Minutes = "minutes"
	Seconds = "seconds"
)

var units = map[string]func(j *gocron.Job) *gocron.Job{
	Weeks:   (*gocron.Job).Weeks,
	Hours:   (*gocron.Job).Hours,
	Days:    (*gocron.Job).Days,
	Minutes: (*gocron.Job).Minutes,
	Seconds: (*gocron.Job).Seconds,
}

var weekdays = map[string]func(j *gocron.Job) *gocron.Job{
	time.Monday.String():    (*gocron.Job).Monday,
	time.Tuesday.String():   (*gocron.Job).Tuesday,
	time.Wednesday.String(): (*gocron.Job).Wednesday,
	time.Thursday.String():  (*gocron.Job).Thursday,
	time.Friday.String():    (*gocron.Job).Friday,
	time.Saturday.String():  (*gocron.Job).Saturday,
	time.Sunday.String():    (*gocron.Job).Sunday,
}

// Every returns the definition running every d, expressed in the largest unit dividing it. Sub-second
// remainders are dropped
func Every(d time.Duration) (sd ScheduleDefinition) {
	secs := uint64(d / time.Second)

	switch {
	case secs == 0:
		return ScheduleDefinition{}
	case secs%(7*24*3600) == 0:
		return ScheduleDefinition{Interval: secs / (7 * 24 * 3600), Unit: Weeks}
	case secs%(24*3600) == 0:
		return ScheduleDefinition{Interval: secs / (24 * 3600), Unit: Days}
	case secs%3600 == 0:
		return ScheduleDefinition{Interval: secs / 3600, Unit: Hours}
	case secs%60 == 0:
		return ScheduleDefinition{Interval: secs / 60, Unit: Minutes}
	default:
		return ScheduleDefinition{Interval: secs, Unit: Seconds}
	}
}

// Validate returns an error when the definition has no usable interval, unit or weekday
func (s ScheduleDefinition) Validate() error {
	if s.Weekday != "" {
		if _, ok := weekdays[s.Weekday]; !ok {
			return fmt.Errorf("unknown weekday [%s]", s.Weekday)
		}

		return nil
	}

	if s.Interval == 0 {
		return fmt.Errorf("interval must be greater than zero")
	}

	if _, ok := units[s.Unit]; !ok {
		return fmt.Errorf("unknown unit [%s]", s.Unit)
	}

	return nil
}

// String returns a human-friendly string for the ScheduleDefinition
func (s ScheduleDefinition) String() string {
	var b strings.Builder

	b.WriteString("Every ")

	switch {
	case s.Weekday != "":
		b.WriteString(s.Weekday)
	case s.Interval == 1:
		b.WriteString(strings.TrimSuffix(s.Unit, "s"))
	default:
		fmt.Fprintf(&b, "%d %s", s.Interval, s.Unit)
	}

	if s.AtTime != "" {
		fmt.Fprintf(&b, " at %s", s.AtTime)
	}

	return b.String()
}

// NewJob sets up the gocron.Job with the schedule and leaves the task undefined for the caller to set up
func NewJob(s *gocron.Scheduler, sd ScheduleDefinition) (j *gocron.Job, err error) {
	if err = sd.Validate(); err != nil {
		return nil, err
	}

	if day, ok := weekdays[sd.Weekday]; ok {
		j = day(s.Every(1, false))
	} else {
		j = units[sd.Unit](s.Every(sd.Interval, false))
	}

	if sd.AtTime != "" {
		j = j.At(sd.AtTime)
	}

	if j.Err() != nil {
		return nil, j.Err()
	}

	return j, nil
}

// Run schedules task according to sd
func Run(s *gocron.Scheduler, sd ScheduleDefinition, task func()) (err error) {
	j, err := NewJob(s, sd)
	if err != nil {
		return errors.Wrapf(err, "invalid schedule [%s]", sd)
	}

	j.Do(task)

	return nil
}
