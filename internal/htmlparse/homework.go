// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package htmlparse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	spaceBeforeNewline = regexp.MustCompile(`[ \t]+\n`)
	spaceAfterNewline  = regexp.MustCompile(`\n[ \t]+`)
)

const homeworkHeaderText = "Heimaarbeiði"

// ParseHomework extracts the lesson_id -> homework note text map from a
// note page. Bold/italic formatting is converted to a lightweight
// markdown-ish convention; an empty map is a valid, successful result.
func ParseHomework(htmlStr string) Result[map[string]string] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return Failed[map[string]string]("homework: " + err.Error())
	}

	lessonID, ok := findLessonID(doc)
	if !ok {
		return Ok(map[string]string{})
	}

	header := findHomeworkHeader(doc)
	if header == nil {
		return Ok(map[string]string{})
	}
	para := header.Closest("p")
	if para.Length() == 0 {
		return Ok(map[string]string{})
	}

	var sb strings.Builder
	skippedHeader := false
	skippedBrAfterHeader := false
	for c := para.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		walkHomeworkNode(c, &sb, &skippedHeader, &skippedBrAfterHeader)
	}

	text := sb.String()
	text = spaceBeforeNewline.ReplaceAllString(text, "\n")
	text = spaceAfterNewline.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return Ok(map[string]string{})
	}
	return Ok(map[string]string{lessonID: text})
}

func findLessonID(doc *goquery.Document) (string, bool) {
	var id string
	found := false
	doc.Find(`input[type="hidden"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		idAttr, ok := s.Attr("id")
		if !ok || !strings.HasPrefix(idAttr, "LektionsID") {
			return true
		}
		val, ok := s.Attr("value")
		if !ok {
			return true
		}
		id = val
		found = true
		return false
	})
	return id, found
}

func findHomeworkHeader(doc *goquery.Document) *goquery.Selection {
	var header *goquery.Selection
	doc.Find("b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == homeworkHeaderText {
			header = s
			return false
		}
		return true
	})
	return header
}

// walkHomeworkNode recursively renders a node tree into sb, converting
// <b> to **bold**, <i> to *italic*, and <br> to a newline. The header
// bold tag itself and the first <br> immediately following it at the
// top level are skipped, since they're the section label rather than
// the note body.
func walkHomeworkNode(n *html.Node, sb *strings.Builder, skippedHeader, skippedBrAfterHeader *bool) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "b":
			if !*skippedHeader && strings.TrimSpace(textOf(n)) == homeworkHeaderText {
				*skippedHeader = true
				return
			}
			sb.WriteString("**")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walkHomeworkNode(c, sb, skippedHeader, skippedBrAfterHeader)
			}
			sb.WriteString("**")
			return
		case "i":
			sb.WriteString("*")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walkHomeworkNode(c, sb, skippedHeader, skippedBrAfterHeader)
			}
			sb.WriteString("*")
			return
		case "br":
			if *skippedHeader && !*skippedBrAfterHeader {
				*skippedBrAfterHeader = true
				return
			}
			sb.WriteString("\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHomeworkNode(c, sb, skippedHeader, skippedBrAfterHeader)
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
