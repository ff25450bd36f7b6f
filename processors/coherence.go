package processors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ChugThaJug/hellfast/core"
)

// Patterns that identify a step-like item regardless of how the model chose
// to mark it up.
var stepMarkerPattern = regexp.MustCompile(`^(Step\s*\d+:|#\s*Step\s*\d+:|\d+\.\s*|\*\s*Step\s*\d+:)`)

// Introductions the model tends to repeat at the top of every section.
var introductionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^#+\s*introduction`),
	regexp.MustCompile(`(?i)^introduction`),
	regexp.MustCompile(`(?i)welcome to`),
	regexp.MustCompile(`(?i)^getting started`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Reconcile is the deterministic cross-section cleanup pass. It never calls
// the generation service and never fails; styles without a defined repair
// pass through untouched.
func Reconcile(sections []core.Section, style core.OutputStyle) []core.Section {
	switch style {
	case core.StyleStepByStep:
		return reconcileSteps(sections)
	case core.StyleBulletPoints:
		return reconcileBullets(sections)
	default:
		return sections
	}
}

// reconcileSteps drops repeated introductions from non-first sections and
// renumbers every step-like item with one counter running across all
// sections. Sections emptied by filtering are dropped.
func reconcileSteps(sections []core.Section) []core.Section {
	stepCounter := 1
	var out []core.Section

	for i, section := range sections {
		var items []string
		for _, item := range section.Items {
			if i > 0 && matchesIntroduction(item) {
				continue
			}
			if stepMarkerPattern.MatchString(item) {
				item = stepMarkerPattern.ReplaceAllString(item, fmt.Sprintf("Step %d:", stepCounter))
				stepCounter++
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			out = append(out, core.Section{Title: section.Title, Items: items})
		}
	}
	return out
}

// reconcileBullets removes bullets whose normalized form already appeared in
// any earlier section. Sections emptied by deduplication are dropped.
func reconcileBullets(sections []core.Section) []core.Section {
	seen := make(map[string]struct{})
	var out []core.Section

	for _, section := range sections {
		var items []string
		for _, bullet := range section.Items {
			normalized := normalizeBullet(bullet)
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			items = append(items, bullet)
		}
		if len(items) > 0 {
			out = append(out, core.Section{Title: section.Title, Items: items})
		}
	}
	return out
}

func matchesIntroduction(item string) bool {
	for _, pattern := range introductionPatterns {
		if pattern.MatchString(item) {
			return true
		}
	}
	return false
}

func normalizeBullet(bullet string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(bullet)), " ")
}
