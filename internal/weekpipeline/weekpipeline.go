// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package weekpipeline runs the single-week fetch/parse/homework-merge
// sequence that produces one TimetableData snapshot from an offset.
package weekpipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/glasirsync/glasirsync/internal/apperr"
	"github.com/glasirsync/glasirsync/internal/extractor"
	"github.com/glasirsync/glasirsync/internal/htmlparse"
	"github.com/glasirsync/glasirsync/internal/metrics"
	"github.com/glasirsync/glasirsync/internal/models"
)

// Outcome classifies a Result.
type Outcome int

const (
	// SuccessWithData means the week parsed with one or more events.
	SuccessWithData Outcome = iota
	// SuccessNoData means the week parsed but carried no events (a
	// genuinely empty week, e.g. a holiday).
	SuccessNoData
	// FetchFailed means the HTTP fetch itself did not produce a usable page.
	FetchFailed
	// ParseFailed means the page was fetched but did not parse.
	ParseFailed
)

// Result is the outcome of running the pipeline for one offset.
type Result struct {
	Outcome    Outcome
	Data       models.TimetableData
	Classifier string
	HTTPStatus int
	Message    string
	Warnings   []string
}

// Run fetches and parses the week at offset, merging in homework text for
// any lesson flagged has_homework_note. Homework fetch/merge failures
// degrade to warnings; only the grid fetch and grid parse can fail the
// whole result.
func Run(ctx context.Context, ex *extractor.Extractor, offset int, teacherMap map[string]string) Result {
	fetched, err := ex.WeekHTML(ctx, offset)
	if err != nil {
		kind := apperr.KindOf(err)
		return Result{
			Outcome:    FetchFailed,
			Classifier: string(kind),
			Message:    err.Error(),
		}
	}
	if fetched.StatusCode >= 300 && fetched.StatusCode < 400 {
		return Result{
			Outcome:    FetchFailed,
			Classifier: "redirected_to_login",
			HTTPStatus: fetched.StatusCode,
			Message:    "upstream redirected the week request, session is no longer authenticated",
		}
	}
	if fetched.StatusCode != 200 {
		return Result{
			Outcome:    FetchFailed,
			Classifier: "upstream_http_error",
			HTTPStatus: fetched.StatusCode,
			Message:    "upstream returned a non-success status for the week request",
		}
	}

	parsed := htmlparse.ParseTimetableGrid(fetched.Body, teacherMap)
	metrics.RecordParseOutcome("timetable_grid", outcomeLabel(parsed.Outcome, parsed.Warnings))
	if parsed.Outcome == htmlparse.ParseFailed {
		return Result{
			Outcome:    ParseFailed,
			Classifier: "grid_parse_failed",
			Message:    parsed.Message,
			Warnings:   parsed.Warnings,
		}
	}
	if parsed.Outcome == htmlparse.StructureError {
		return Result{
			Outcome:    ParseFailed,
			Classifier: "grid_structure_error",
			Message:    parsed.Message,
			Warnings:   parsed.Warnings,
		}
	}

	grid := parsed.Data
	warnings := append([]string(nil), parsed.Warnings...)

	homeworkLessonIDs := make([]string, 0)
	for _, ev := range grid.Events {
		if ev.HasHomeworkNote && ev.LessonID != "" {
			homeworkLessonIDs = append(homeworkLessonIDs, ev.LessonID)
		}
	}
	if len(homeworkLessonIDs) > 0 {
		warnings = mergeHomework(ctx, ex, grid.Events, homeworkLessonIDs, warnings)
	}

	weekInfo := grid.WeekInfo
	weekInfo.Offset = offset
	if err := weekInfo.Validate(); err != nil {
		return Result{
			Outcome:    ParseFailed,
			Classifier: "invalid_week_info",
			Message:    err.Error(),
			Warnings:   warnings,
		}
	}

	data := models.TimetableData{
		StudentInfo:   grid.StudentInfo,
		Events:        grid.Events,
		WeekInfo:      weekInfo,
		FormatVersion: models.TimetableFormatVersion,
	}

	outcome := SuccessWithData
	if len(data.Events) == 0 {
		outcome = SuccessNoData
	}
	return Result{Outcome: outcome, Data: data, Warnings: warnings}
}

// maxHomeworkFanOut bounds concurrent homework fetches per week, mirroring
// the orchestrator's week-level fan-out cap.
const maxHomeworkFanOut = 10

// mergeHomework fetches homework text for each flagged lesson id
// concurrently and merges it into the matching event's Description in
// place. Fetch or merge failures for an individual lesson never fail the
// pipeline; they accumulate as warnings.
func mergeHomework(ctx context.Context, ex *extractor.Extractor, events []models.Event, lessonIDs []string, warnings []string) []string {
	sem := make(chan struct{}, maxHomeworkFanOut)
	var wg sync.WaitGroup
	texts := make([]string, len(lessonIDs))

	for i, lessonID := range lessonIDs {
		wg.Add(1)
		go func(i int, lessonID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			homework := ex.Homework(ctx, lessonID)
			texts[i] = homework[lessonID]
		}(i, lessonID)
	}
	wg.Wait()

	for i, lessonID := range lessonIDs {
		text := texts[i]
		if text == "" {
			warnings = append(warnings, "no homework text returned for lesson "+lessonID)
			continue
		}
		for j := range events {
			if events[j].LessonID == lessonID {
				events[j].Description = text
			}
		}
	}
	return warnings
}

func outcomeLabel(o htmlparse.Outcome, warnings []string) string {
	switch o {
	case htmlparse.Success:
		for _, w := range warnings {
			if strings.HasPrefix(w, "degraded:") {
				return "degraded"
			}
		}
		return "success"
	case htmlparse.StructureError:
		return "structure_error"
	default:
		return "parse_failed"
	}
}
