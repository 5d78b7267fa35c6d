// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package diff computes per-week event deltas between a previously
// synced TimetableData snapshot and a freshly fetched one.
package diff

import "github.com/glasirsync/glasirsync/internal/models"

// WeekDiff is the outcome of comparing two TimetableData snapshots for
// the same week: events newly present, events present in both but
// changed, and the lesson ids of events that disappeared.
type WeekDiff struct {
	Added   []models.Event `json:"added"`
	Updated []models.Event `json:"updated"`
	Removed []string       `json:"removed"`
}

// Compute builds a WeekDiff between old (the previously stored
// snapshot, or nil if this is the first sync of the week) and new.
// Events without a lesson id are excluded entirely, since they cannot
// be tracked across syncs.
func Compute(old, new *models.TimetableData) WeekDiff {
	oldIndex := indexByLessonID(old)
	newIndex := indexByLessonID(new)

	var result WeekDiff
	for id, ev := range newIndex {
		oldEv, existed := oldIndex[id]
		if !existed {
			result.Added = append(result.Added, ev)
			continue
		}
		if oldEv != ev {
			result.Updated = append(result.Updated, ev)
		}
	}
	for id := range oldIndex {
		if _, stillPresent := newIndex[id]; !stillPresent {
			result.Removed = append(result.Removed, id)
		}
	}
	return result
}

func indexByLessonID(data *models.TimetableData) map[string]models.Event {
	index := make(map[string]models.Event)
	if data == nil {
		return index
	}
	for _, ev := range data.Events {
		if ev.LessonID == "" {
			continue
		}
		index[ev.LessonID] = ev
	}
	return index
}
