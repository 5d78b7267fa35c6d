// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package models

import "fmt"

// TimetableFormatVersion is the wire format version stamped on every
// TimetableData payload. Consumers should reject anything else.
const TimetableFormatVersion = 2

// StudentInfo identifies the student a timetable belongs to.
type StudentInfo struct {
	StudentName string `json:"studentName"`
	Class       string `json:"class"`
}

// WeekInfo describes the ISO week a TimetableData snapshot covers.
type WeekInfo struct {
	WeekNumber int    `json:"weekNumber"`
	StartDate  string `json:"startDate"` // YYYY-MM-DD
	EndDate    string `json:"endDate"`   // YYYY-MM-DD
	Year       int    `json:"year"`
	Offset     int    `json:"offset"`
	WeekKey    string `json:"weekKey"` // "{year}-W{weekNumber:02d}"
}

// Validate checks WeekInfo invariants and derives WeekKey if it was left blank.
func (w *WeekInfo) Validate() error {
	if w.WeekNumber < 1 || w.WeekNumber > 53 {
		return fmt.Errorf("week number must be between 1 and 53, got %d", w.WeekNumber)
	}
	if w.WeekKey == "" {
		w.WeekKey = fmt.Sprintf("%d-W%02d", w.Year, w.WeekNumber)
	}
	return nil
}

// Event is a single scheduled lesson, cancelled class, or homework note
// extracted from a timetable cell.
type Event struct {
	Title           string `json:"title"`
	Level           string `json:"level"`
	Year            string `json:"year,omitempty"`
	Date            string `json:"date,omitempty"` // YYYY-MM-DD
	DayOfWeek       string `json:"dayOfWeek"`
	Teacher         string `json:"teacher"`
	TeacherShort    string `json:"teacherShort"`
	Location        string `json:"location"`
	TimeSlot        string `json:"timeSlot"`
	StartTime       string `json:"startTime,omitempty"` // HH:MM
	EndTime         string `json:"endTime,omitempty"`   // HH:MM
	TimeRange       string `json:"timeRange"`
	Cancelled       bool   `json:"cancelled"`
	LessonID        string `json:"lessonId,omitempty"`
	Description     string `json:"description,omitempty"`
	HasHomeworkNote bool   `json:"hasHomeworkNote"`
}

// TimetableData is a single student's full week, as returned by the API
// and as persisted (JSON-encoded) in weekly_timetable_states.
type TimetableData struct {
	StudentInfo   StudentInfo `json:"studentInfo"`
	Events        []Event     `json:"events"`
	WeekInfo      WeekInfo    `json:"weekInfo"`
	FormatVersion int         `json:"formatVersion"`
}

// Validate checks the format version and delegates to WeekInfo.Validate.
func (t *TimetableData) Validate() error {
	if t.FormatVersion == 0 {
		t.FormatVersion = TimetableFormatVersion
	}
	if t.FormatVersion != TimetableFormatVersion {
		return fmt.Errorf("unsupported timetable format version %d", t.FormatVersion)
	}
	return t.WeekInfo.Validate()
}
