package minutes

// Section is one field of a minutes record.
type Section int

const (
	SectionMeetingName Section = iota
	SectionDate
	SectionParticipants
	SectionAgenda
	SectionMainPoints
	SectionDecisions
	SectionTodos
)

var allSections = []Section{
	SectionMeetingName,
	SectionDate,
	SectionParticipants,
	SectionAgenda,
	SectionMainPoints,
	SectionDecisions,
	SectionTodos,
}

// Defaults are the values used when a section is missing from the draft.
type Defaults struct {
	MeetingName  string
	Participants string
	Agenda       string
	None         string
}

// Grammar is the label set the extractor looks for together with the prompt
// that asks the model to emit exactly those labels. The two are versioned as
// one unit: changing a label without changing the prompt (or the reverse)
// makes extraction silently fall back to defaults.
type Grammar struct {
	Language string
	Version  string
	// Labels per section. The first label is the one the prompt asks for;
	// the rest are variants models commonly produce.
	Labels   map[Section][]string
	Defaults Defaults
	// ListSeparator joins a single-line field that the model spread over
	// several bullet lines.
	ListSeparator string
}

// Label returns the canonical label for s.
func (g Grammar) Label(s Section) string {
	if l := g.Labels[s]; len(l) > 0 {
		return l[0]
	}
	return ""
}

var Japanese = Grammar{
	Language: "ja",
	Version:  "ja-2025.1",
	Labels: map[Section][]string{
		SectionMeetingName:  {"会議名", "会議タイトル", "件名"},
		SectionDate:         {"日時", "日付", "開催日"},
		SectionParticipants: {"参加者", "出席者"},
		SectionAgenda:       {"議題", "アジェンダ"},
		SectionMainPoints:   {"主な発言", "主な議論", "議論内容", "主な内容"},
		SectionDecisions:    {"決定事項"},
		SectionTodos:        {"TODO", "ToDo", "アクションアイテム", "宿題事項"},
	},
	Defaults: Defaults{
		MeetingName:  "会議",
		Participants: "不明",
		Agenda:       "不明",
		None:         "なし",
	},
	ListSeparator: "、",
}

var English = Grammar{
	Language: "en",
	Version:  "en-2025.1",
	Labels: map[Section][]string{
		SectionMeetingName:  {"Meeting name", "Meeting title", "Title"},
		SectionDate:         {"Date"},
		SectionParticipants: {"Participants", "Attendees"},
		SectionAgenda:       {"Agenda"},
		SectionMainPoints:   {"Discussion points", "Main points", "Key points"},
		SectionDecisions:    {"Decisions"},
		SectionTodos:        {"Action items", "TODO"},
	},
	Defaults: Defaults{
		MeetingName:  "Meeting",
		Participants: "Unknown",
		Agenda:       "Unknown",
		None:         "None",
	},
	ListSeparator: ", ",
}

// GrammarFor returns the grammar for a language code, falling back to
// Japanese for anything it does not know.
func GrammarFor(lang string) Grammar {
	switch lang {
	case "en":
		return English
	default:
		return Japanese
	}
}
