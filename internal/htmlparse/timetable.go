// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package htmlparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/glasirsync/glasirsync/internal/dateutil"
	"github.com/glasirsync/glasirsync/internal/models"
)

const studentInfoMarker = "Næmingatímatalva"

var (
	dateRangePattern  = regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})\s*-\s*(\d{1,2}\.\d{1,2}\.\d{4})`)
	weekAnchorPattern = regexp.MustCompile(`Vika\s+(\d+)`)
	dayHeaderPattern  = regexp.MustCompile(`(\S+dagur)\s+(\d{1,2}/\d{1,2})`)
	lessonCellPattern = regexp.MustCompile(`^lektionslinje_lesson\d+$`)
	lessonIDPattern   = regexp.MustCompile(`^MyWindow(.+)Main$`)
	arityThreePattern = regexp.MustCompile(`^([A-Za-zÁÐÍÓÚÝÆØÅáðíóúýæøå]+)(\d+)$`)
	classTokenPattern = regexp.MustCompile(`^\w+`)
	noClassPhrases    = []string{"ongi skeið", "frídagur", "eingin undirvísing"}

	classInfoCoursePattern = regexp.MustCompile(`([a-zæøåA-ZÆØÅ]+-[A-Z]-\d+-\d{4}-\w+)\s+([A-Z]{2,4})\s+st\.\s+(\d+)`)
)

var cancelledClasses = map[string]struct{}{
	"lektionslinje_lesson1":       {},
	"lektionslinje_lesson2":       {},
	"lektionslinje_lesson3":       {},
	"lektionslinje_lesson4":       {},
	"lektionslinje_lesson5":       {},
	"lektionslinje_lesson7":       {},
	"lektionslinje_lesson10":      {},
	"lektionslinje_lessoncancelled": {},
}

var faroeseDayNames = map[string]string{
	"Mánadagur":   "Monday",
	"Týsdagur":    "Tuesday",
	"Mikudagur":   "Wednesday",
	"Hósdagur":    "Thursday",
	"Fríggjadagur": "Friday",
	"Leygardagur": "Saturday",
	"Sunnudagur":  "Sunday",
}

// TimetableGrid is the combined output of ParseTimetableGrid.
type TimetableGrid struct {
	StudentInfo models.StudentInfo
	WeekInfo    models.WeekInfo
	Events      []models.Event
}

// ParseTimetableGrid parses a full week page into its student info, week
// info, and lesson events, resolving teacher initials via teacherMap.
func ParseTimetableGrid(htmlStr string, teacherMap map[string]string) Result[TimetableGrid] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return Failed[TimetableGrid]("timetable: " + err.Error())
	}

	var warnings []string

	studentInfo, _ := parseStudentInfo(doc)

	weekInfo, ok := parseWeekInfo(doc, &warnings)
	if !ok {
		return StructErr[TimetableGrid]("timetable: could not locate a date range")
	}

	table := doc.Find("table.time_8_16").First()
	if table.Length() == 0 {
		if containsAny(htmlStr, noClassPhrases) {
			return Ok(TimetableGrid{StudentInfo: studentInfo, WeekInfo: weekInfo, Events: nil})
		}
		if events := extractEventsFromClassInfo(studentInfo.Class, weekInfo, teacherMap, &warnings); len(events) > 0 {
			return Ok(TimetableGrid{StudentInfo: studentInfo, WeekInfo: weekInfo, Events: events}, warnings...)
		}
		return Failed[TimetableGrid]("timetable: no time_8_16 table and no no-class marker present")
	}

	events := parseGridRows(table, teacherMap, weekInfo, &warnings)
	if len(events) == 0 {
		if fallback := extractEventsFromClassInfo(studentInfo.Class, weekInfo, teacherMap, &warnings); len(fallback) > 0 {
			events = fallback
		}
	}

	return Ok(TimetableGrid{StudentInfo: studentInfo, WeekInfo: weekInfo, Events: events}, warnings...)
}

// extractEventsFromClassInfo recovers best-effort events from the
// student-info class text when the grid walk produced nothing. The upstream
// occasionally renders a week with no real time_8_16 table but still inlines
// day headers and course codes into the same text the student's class comes
// from; this scans that text directly instead of giving up. Because there is
// no table structure to read a real column from, the time slot assigned to
// each match is a positional estimate within its day, not a derived one.
func extractEventsFromClassInfo(classInfo string, weekInfo models.WeekInfo, teacherMap map[string]string, warnings *[]string) []models.Event {
	if classInfo == "" {
		return nil
	}

	dayMatches := dayHeaderPattern.FindAllStringSubmatchIndex(classInfo, -1)
	if len(dayMatches) == 0 {
		return nil
	}

	var events []models.Event
	for i, dm := range dayMatches {
		dayFo := classInfo[dm[2]:dm[3]]
		dayDate := classInfo[dm[4]:dm[5]]

		dayEnd := len(classInfo)
		if i+1 < len(dayMatches) {
			dayEnd = dayMatches[i+1][0]
		}
		dayText := classInfo[dm[1]:dayEnd]

		for slotIdx, cm := range classInfoCoursePattern.FindAllStringSubmatch(dayText, -1) {
			title, level, yearCode := parseSubjectCode(cm[1])
			teacherShort := cm[2]
			location := cm[3]

			teacherFull := teacherShort
			if full, ok := teacherMap[teacherShort]; ok {
				teacherFull = full
			}
			if idx := strings.Index(teacherFull, " ("); idx >= 0 {
				teacherFull = teacherFull[:idx]
			}

			date := dateutil.ToISODate(dayDate, weekInfo.Year)
			timeSlot, timeRange := timeSlotFor((slotIdx + 1) * 10)
			startTime, endTime, _ := dateutil.ParseTimeRange(timeRange)

			events = append(events, models.Event{
				Title:        title,
				Level:        level,
				Year:         dateutil.FormatAcademicYear(yearCode),
				Date:         date,
				DayOfWeek:    faroeseDayNames[dayFo],
				Teacher:      teacherFull,
				TeacherShort: teacherShort,
				Location:     location,
				TimeSlot:     timeSlot,
				StartTime:    startTime,
				EndTime:      endTime,
				TimeRange:    timeRange,
			})
		}
	}

	if len(events) > 0 {
		*warnings = append(*warnings, fmt.Sprintf(
			"degraded: recovered %d event(s) from student-info text, grid walk produced none", len(events)))
	}
	return events
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func parseStudentInfo(doc *goquery.Document) (models.StudentInfo, bool) {
	var info models.StudentInfo
	found := false
	doc.Find("td").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, studentInfoMarker)
		if idx < 0 {
			return true
		}
		rest := text[idx+len(studentInfoMarker):]
		rest = strings.TrimSpace(rest)
		rest = strings.TrimPrefix(rest, ":")
		rest = strings.TrimSpace(rest)
		lastComma := strings.LastIndex(rest, ",")
		if lastComma < 0 {
			return true
		}
		name := strings.TrimSpace(rest[:lastComma])
		classPart := strings.TrimSpace(rest[lastComma+1:])
		class := classTokenPattern.FindString(classPart)
		if class == "" {
			class = classPart
		}
		info = models.StudentInfo{StudentName: name, Class: class}
		found = true
		return false
	})
	return info, found
}

func parseWeekInfo(doc *goquery.Document, warnings *[]string) (models.WeekInfo, bool) {
	m := dateRangePattern.FindStringSubmatch(doc.Text())
	if m == nil {
		return models.WeekInfo{}, false
	}
	start, ok := dateutil.ParseDate(m[1], 0)
	if !ok {
		return models.WeekInfo{}, false
	}
	end, _ := dateutil.ParseDate(m[2], 0)

	isoYear, isoWeek := dateutil.ISOWeek(start)

	if anchorText := strings.TrimSpace(doc.Find("a.UgeKnapValgt").First().Text()); anchorText != "" {
		if wm := weekAnchorPattern.FindStringSubmatch(anchorText); wm != nil {
			if anchorWeek, err := strconv.Atoi(wm[1]); err == nil && anchorWeek != isoWeek {
				*warnings = append(*warnings, fmt.Sprintf(
					"selected week anchor says week %d but ISO derivation from %s says week %d; using ISO",
					anchorWeek, m[1], isoWeek))
			}
		}
	}

	info := models.WeekInfo{
		WeekNumber: isoWeek,
		StartDate:  start.Format("2006-01-02"),
		Year:       isoYear,
	}
	if !end.IsZero() {
		info.EndDate = end.Format("2006-01-02")
	}
	info.WeekKey = dateutil.WeekKey(isoYear, isoWeek)
	return info, true
}

func parseGridRows(table *goquery.Selection, teacherMap map[string]string, weekInfo models.WeekInfo, warnings *[]string) []models.Event {
	var events []models.Event
	currentDayFo := ""
	currentDayDate := ""

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		firstCell := row.Find("td, th").First()
		firstClass, _ := firstCell.Attr("class")
		if hasClassToken(firstClass, "lektionslinje_1") || hasClassToken(firstClass, "lektionslinje_1_aktuel") {
			if m := dayHeaderPattern.FindStringSubmatch(strings.TrimSpace(firstCell.Text())); m != nil {
				currentDayFo = m[1]
				currentDayDate = m[2]
			} else {
				currentDayFo = ""
				currentDayDate = ""
			}
			return
		}
		if currentDayFo == "" {
			return
		}

		col := 1
		row.Find("td").Each(func(cellIdx int, cell *goquery.Selection) {
			colspan := 1
			if v, ok := cell.Attr("colspan"); ok {
				if n, err := strconv.Atoi(v); err == nil && n > 0 {
					colspan = n
				}
			}
			startCol := col
			col += colspan
			if cellIdx == 0 {
				return
			}

			class, _ := cell.Attr("class")
			if !lessonCellClassPresent(class) {
				return
			}

			event, ok := parseLessonCell(cell, class, startCol, colspan, currentDayFo, currentDayDate, teacherMap, weekInfo, warnings)
			if ok {
				events = append(events, event)
			}
		})
	})

	return events
}

func hasClassToken(classAttr, token string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == token {
			return true
		}
	}
	return false
}

func lessonCellClassPresent(classAttr string) bool {
	for _, c := range strings.Fields(classAttr) {
		if lessonCellPattern.MatchString(c) {
			return true
		}
	}
	return false
}

func isCancelled(classAttr string) bool {
	for _, c := range strings.Fields(classAttr) {
		if _, bad := cancelledClasses[c]; bad {
			return true
		}
	}
	return false
}

func parseLessonCell(cell *goquery.Selection, class string, startCol, colspan int, dayFo, dayDate string, teacherMap map[string]string, weekInfo models.WeekInfo, warnings *[]string) (models.Event, bool) {
	anchors := cell.Find("a")
	if anchors.Length() < 3 {
		*warnings = append(*warnings, fmt.Sprintf("lesson cell on %s %s has fewer than 3 anchors, skipping", dayFo, dayDate))
		return models.Event{}, false
	}

	rawCode := strings.TrimSpace(anchors.Eq(0).Text())
	teacherInitials := strings.TrimSpace(anchors.Eq(1).Text())
	roomText := strings.TrimSpace(anchors.Eq(2).Text())

	title, level, yearCode := parseSubjectCode(rawCode)

	teacherFull := teacherInitials
	if full, ok := teacherMap[teacherInitials]; ok {
		teacherFull = full
	}

	location := strings.TrimPrefix(roomText, "st.")
	location = strings.TrimSpace(location)

	var timeSlot, timeRange string
	if colspan >= 90 {
		timeSlot, timeRange = "All day", "08:10-15:25"
	} else {
		timeSlot, timeRange = timeSlotFor(startCol)
	}
	startTime, endTime, _ := dateutil.ParseTimeRange(timeRange)

	date := dateutil.ToISODate(dayDate, weekInfo.Year)
	if date == "" || startTime == "" || endTime == "" {
		*warnings = append(*warnings, fmt.Sprintf("lesson cell %q missing date/time after derivation, skipping", rawCode))
		return models.Event{}, false
	}

	lessonID := ""
	cell.Find(`span[id^="MyWindow"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		idAttr, _ := s.Attr("id")
		if m := lessonIDPattern.FindStringSubmatch(idAttr); m != nil {
			lessonID = m[1]
			return false
		}
		return true
	})
	if lessonID == "" {
		*warnings = append(*warnings, fmt.Sprintf("lesson cell %q missing lesson id span", rawCode))
	}

	hasHomework := false
	cell.Find(`input[type="image"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.Contains(src, "note.gif") {
			hasHomework = true
			return false
		}
		return true
	})

	dayOfWeek := faroeseDayNames[dayFo]

	event := models.Event{
		Title:           title,
		Level:           level,
		Year:            dateutil.FormatAcademicYear(yearCode),
		Date:            date,
		DayOfWeek:       dayOfWeek,
		Teacher:         teacherFull,
		TeacherShort:    teacherInitials,
		Location:        location,
		TimeSlot:        timeSlot,
		StartTime:       startTime,
		EndTime:         endTime,
		TimeRange:       timeRange,
		Cancelled:       isCancelled(class),
		LessonID:        lessonID,
		HasHomeworkNote: hasHomework,
	}
	return event, true
}

// parseSubjectCode splits a raw subject code into title, level, and
// academic-year code. The upstream's format varies by part count; a
// fragile, explicitly-branched parser is the whole point here, since new
// formats show up without notice.
func parseSubjectCode(raw string) (title, level, yearCode string) {
	parts := strings.Split(raw, "-")
	switch {
	case parts[0] == "Várroynd" && len(parts) >= 5:
		return parts[0] + "-" + parts[1], parts[2], parts[4]
	case len(parts) >= 4:
		return parts[0], parts[1], parts[3]
	case len(parts) == 3:
		if m := arityThreePattern.FindStringSubmatch(parts[0]); m != nil {
			return m[1], m[2], parts[1]
		}
		return parts[0], "", parts[1]
	default:
		return raw, "", ""
	}
}

func timeSlotFor(col int) (slot, timeRange string) {
	switch {
	case col >= 2 && col <= 25:
		return "1", "08:10-09:40"
	case col >= 26 && col <= 50:
		return "2", "10:05-11:35"
	case col >= 51 && col <= 71:
		return "3", "12:10-13:40"
	case col >= 72 && col <= 90:
		return "4", "13:55-15:25"
	case col >= 91 && col <= 111:
		return "5", "15:30-17:00"
	case col >= 112 && col <= 131:
		return "6", "17:15-18:45"
	default:
		return "N/A", "N/A"
	}
}
