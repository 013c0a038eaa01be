package minutes

import (
	"regexp"
	"strings"
	"time"
)

// Record is the fixed-schema minutes. Every field is always populated.
type Record struct {
	MeetingName  string   `json:"meetingName"`
	Date         string   `json:"date"`
	Participants string   `json:"participants"`
	Agenda       string   `json:"agenda"`
	MainPoints   []string `json:"mainPoints"`
	Decisions    string   `json:"decisions"`
	Todos        string   `json:"todos"`
}

const dateLayout = "2006-01-02"

var bulletPrefix = regexp.MustCompile(`^\s*(?:[・\-*•●◦▪]|\d+[.)．、])\s*`)

// Extractor turns a free-form draft into a Record with a section-anchored
// heuristic. It never fails: a section it cannot find gets its default.
type Extractor struct {
	grammar  Grammar
	now      func() time.Time
	patterns map[Section]*regexp.Regexp
}

// NewExtractor compiles the label patterns of g. now supplies the default
// date; nil means time.Now.
func NewExtractor(g Grammar, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	e := &Extractor{
		grammar:  g,
		now:      now,
		patterns: make(map[Section]*regexp.Regexp, len(allSections)),
	}
	for _, s := range allSections {
		e.patterns[s] = labelPattern(g.Labels[s])
	}
	return e
}

// labelPattern matches "<label><:|：><content>" at the start of a line,
// tolerating markdown headings, list markers and bold around the label.
func labelPattern(labels []string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?i)^\s*(?:#+\s*)?(?:[-*・•●]\s+)?(?:【)?\**\s*(?:` +
		strings.Join(quoted, "|") + `)\s*(?:】)?\**\s*[:：]\s*\**\s*(.*?)\s*$`)
}

func (e *Extractor) Grammar() Grammar {
	return e.grammar
}

// Extract is total and deterministic for a fixed clock.
func (e *Extractor) Extract(draft string) Record {
	lines := strings.Split(strings.ReplaceAll(draft, "\r\n", "\n"), "\n")

	// First line index and inline content per section
	type hit struct {
		line    int
		content string
	}
	hits := make(map[Section]hit)
	isLabel := make([]bool, len(lines))
	for i, line := range lines {
		for _, s := range allSections {
			m := e.patterns[s].FindStringSubmatch(line)
			if m == nil {
				continue
			}
			isLabel[i] = true
			if _, seen := hits[s]; !seen {
				hits[s] = hit{line: i, content: m[1]}
			}
			break
		}
	}

	// span returns the inline content plus the following lines up to the
	// next labelled line.
	span := func(s Section) ([]string, bool) {
		h, ok := hits[s]
		if !ok {
			return nil, false
		}
		var out []string
		if strings.TrimSpace(h.content) != "" {
			out = append(out, h.content)
		}
		for i := h.line + 1; i < len(lines) && !isLabel[i]; i++ {
			out = append(out, lines[i])
		}
		return out, true
	}

	single := func(s Section, fallback string) string {
		if h, ok := hits[s]; ok {
			if v := strings.TrimSpace(h.content); v != "" {
				return v
			}
			body, _ := span(s)
			var items []string
			for _, l := range body {
				if v := strings.TrimSpace(bulletPrefix.ReplaceAllString(l, "")); v != "" {
					items = append(items, v)
				}
			}
			if len(items) > 0 {
				return strings.Join(items, e.grammar.ListSeparator)
			}
		}
		return fallback
	}

	block := func(s Section) string {
		body, ok := span(s)
		if !ok {
			return e.grammar.Defaults.None
		}
		v := strings.TrimSpace(strings.Join(body, "\n"))
		if v == "" {
			return e.grammar.Defaults.None
		}
		return v
	}

	mainPoints := []string{}
	if body, ok := span(SectionMainPoints); ok {
		for _, l := range body {
			if item := strings.TrimSpace(bulletPrefix.ReplaceAllString(l, "")); item != "" {
				mainPoints = append(mainPoints, item)
			}
		}
	}

	return Record{
		MeetingName:  single(SectionMeetingName, e.grammar.Defaults.MeetingName),
		Date:         single(SectionDate, e.now().Format(dateLayout)),
		Participants: single(SectionParticipants, e.grammar.Defaults.Participants),
		Agenda:       single(SectionAgenda, e.grammar.Defaults.Agenda),
		MainPoints:   mainPoints,
		Decisions:    block(SectionDecisions),
		Todos:        block(SectionTodos),
	}
}
