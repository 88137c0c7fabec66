package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/arturoeanton/certify-ai/internal/domain"
)

var (
	phaseRe     = regexp.MustCompile(`(?i)^phase\s+(\d+)(?:\s*[:.\-–—)]\s*(.*)|\s*)$`)
	phaseHeadRe = regexp.MustCompile(`(?i)^phase\s+(\d+)\s*(.*)$`)
	durationRe  = regexp.MustCompile(`^(.*?)\s*\(([^()]+)\)\s*$`)
	bulletRe    = regexp.MustCompile(`^(?:[-*•✓]|\d+[.)])\s+(.+)$`)
	milestoneRe = regexp.MustCompile(`(?i)^(?:key\s+)?milestones?\b`)
)

// ParseRoadmap extracts phases and milestones from free-form model output.
// When no phase header is found the whole text becomes a single low
// confidence "Overview" phase.
func ParseRoadmap(goal, raw string) *domain.Roadmap {
	rm := &domain.Roadmap{
		Goal:       goal,
		Raw:        raw,
		Phases:     []domain.RoadmapPhase{},
		Milestones: []string{},
		Confidence: domain.ConfidenceHigh,
	}

	var current *domain.RoadmapPhase
	inMilestones := false

	for _, line := range strings.Split(raw, "\n") {
		text := stripMarkdown(line)
		if text == "" {
			continue
		}

		if m := matchPhase(line, text); m != nil {
			n, _ := strconv.Atoi(m[1])
			title, duration := splitDuration(strings.TrimSpace(m[2]))
			if title == "" {
				title = "Phase " + m[1]
			}
			rm.Phases = append(rm.Phases, domain.RoadmapPhase{Number: n, Title: title, Duration: duration, Items: []string{}})
			current = &rm.Phases[len(rm.Phases)-1]
			inMilestones = false
			continue
		}

		if isHeading(line) || !bulletRe.MatchString(text) {
			if milestoneRe.MatchString(text) {
				inMilestones = true
				current = nil
			}
			continue
		}

		item := stripMarkdown(bulletRe.FindStringSubmatch(text)[1])
		switch {
		case inMilestones:
			rm.Milestones = append(rm.Milestones, item)
		case current != nil:
			current.Items = append(current.Items, item)
		}
	}

	if len(rm.Phases) == 0 {
		return fallbackRoadmap(goal, raw)
	}
	return rm
}

func fallbackRoadmap(goal, raw string) *domain.Roadmap {
	items := []string{}
	for _, line := range strings.Split(raw, "\n") {
		text := stripMarkdown(line)
		if text == "" {
			continue
		}
		if m := bulletRe.FindStringSubmatch(text); m != nil {
			text = stripMarkdown(m[1])
		}
		items = append(items, text)
	}
	return &domain.Roadmap{
		Goal:       goal,
		Raw:        raw,
		Phases:     []domain.RoadmapPhase{{Number: 1, Title: "Overview", Items: items}},
		Milestones: []string{},
		Confidence: domain.ConfidenceLow,
	}
}

// stripMarkdown removes heading markers and bold/underline emphasis.
func stripMarkdown(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

// matchPhase accepts "Phase N" followed by a separator or nothing. Inside a
// heading or bold line the separator is optional.
func matchPhase(line, text string) []string {
	if m := phaseRe.FindStringSubmatch(text); m != nil {
		return m
	}
	if isHeading(line) || strings.HasPrefix(strings.TrimSpace(line), "**") {
		return phaseHeadRe.FindStringSubmatch(text)
	}
	return nil
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func splitDuration(title string) (string, string) {
	if m := durationRe.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return title, ""
}
