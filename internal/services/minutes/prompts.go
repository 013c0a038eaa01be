package minutes

import (
	"fmt"
	"strings"
)

const roleSectionJA = `<ROLE>
あなたは会議の文字起こしから正確な議事録を作成する専門のアシスタントです。
</ROLE>`

const roleSectionEN = `<ROLE>
You are an assistant that writes accurate meeting minutes from a raw meeting transcript.
</ROLE>`

const dedupeSectionJA = `<DEDUPLICATION>
- 文字起こしには言い直し、繰り返し、聞き間違いの訂正が含まれます。同じ内容は一度だけ記載してください。
- 発言が後で訂正された場合は、訂正後の内容だけを採用してください。
- フィラー（えー、あのー など）は削除してください。
</DEDUPLICATION>`

const dedupeSectionEN = `<DEDUPLICATION>
- The transcript contains restatements, repetitions and self-corrections. State each point once.
- When a statement is corrected later, keep only the corrected version.
- Drop filler words.
</DEDUPLICATION>`

const ownersSectionJA = `<ACTION_ITEMS>
- 各TODOには、文脈から推定できる場合は担当者名を必ず残してください（例：「山田：資料を送付」）。
- 期限が述べられている場合は期限も記載してください。
- 担当者が推定できない場合は担当者を書かずに内容だけを記載してください。
</ACTION_ITEMS>`

const ownersSectionEN = `<ACTION_ITEMS>
- Keep the owner of each action item whenever it can be inferred from context (e.g. "Yamada: send the slides").
- Include a due date when one was mentioned.
- When no owner can be inferred, write the task without one.
</ACTION_ITEMS>`

const outputRulesJA = `<RULES>
- 上記のラベルをそのまま、この順番で使い、ラベルの直後に全角コロン「：」を付けてください。
- 見出し記号（#）や太字（**）は使わないでください。
- 該当する内容がない項目は「%s」と書いてください。
- 出力は議事録本文のみとし、前置きや説明は書かないでください。
</RULES>`

const outputRulesEN = `<RULES>
- Use the labels above verbatim and in this order, each followed by a colon.
- Do not use markdown headings or bold text.
- Write "%s" for a section with no content.
- Output only the minutes, with no preamble or explanation.
</RULES>`

// BuildMinutesPrompt builds the system prompt for g. The output format it
// requests is exactly what Extractor with the same grammar parses.
func BuildMinutesPrompt(g Grammar) string {
	role, dedupe, owners, rules := roleSectionJA, dedupeSectionJA, ownersSectionJA, outputRulesJA
	if g.Language == "en" {
		role, dedupe, owners, rules = roleSectionEN, dedupeSectionEN, ownersSectionEN, outputRulesEN
	}

	var sb strings.Builder
	sb.WriteString(role)
	sb.WriteString("\n\n")
	sb.WriteString(outputFormatSection(g))
	sb.WriteString("\n\n")
	sb.WriteString(dedupe)
	sb.WriteString("\n\n")
	sb.WriteString(owners)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(rules, g.Defaults.None))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "<!-- template %s -->", g.Version)

	return sb.String()
}

func outputFormatSection(g Grammar) string {
	sep := "："
	bullet := "・"
	hint := map[Section]string{
		SectionMeetingName:  "会議の名称",
		SectionDate:         "YYYY-MM-DD",
		SectionParticipants: "参加者名を「、」区切りで",
		SectionAgenda:       "議題",
		SectionMainPoints:   "",
		SectionDecisions:    "決まったこと",
		SectionTodos:        "担当者：タスク",
	}
	itemHint := "発言の要点"
	if g.Language == "en" {
		sep = ": "
		bullet = "- "
		hint = map[Section]string{
			SectionMeetingName:  "meeting title",
			SectionDate:         "YYYY-MM-DD",
			SectionParticipants: "comma-separated names",
			SectionAgenda:       "agenda",
			SectionMainPoints:   "",
			SectionDecisions:    "what was decided",
			SectionTodos:        "owner: task",
		}
		itemHint = "key point"
	}

	var sb strings.Builder
	sb.WriteString("<OUTPUT_FORMAT>\n")
	for _, s := range allSections {
		sb.WriteString(g.Label(s))
		sb.WriteString(sep)
		switch s {
		case SectionMainPoints:
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "%s%s\n%s%s\n", bullet, itemHint, bullet, itemHint)
		case SectionDecisions, SectionTodos:
			sb.WriteString("\n")
			sb.WriteString(hint[s])
			sb.WriteString("\n")
		default:
			sb.WriteString(hint[s])
			sb.WriteString("\n")
		}
	}
	sb.WriteString("</OUTPUT_FORMAT>")
	return sb.String()
}

// buildUserContent wraps the transcript for the user turn.
func buildUserContent(g Grammar, transcript string) string {
	if g.Language == "en" {
		return "Write the minutes for the following meeting transcript.\n\n<TRANSCRIPT>\n" + transcript + "\n</TRANSCRIPT>"
	}
	return "以下の会議の文字起こしから議事録を作成してください。\n\n<TRANSCRIPT>\n" + transcript + "\n</TRANSCRIPT>"
}
