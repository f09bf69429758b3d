package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
)

// Section is the transport-neutral shape of one course section heading for
// sanitization: a name, a rich-text summary and an ordered activity list.
type Section struct {
	Name       string
	Summary    string
	Activities []Activity
}

// Activity is one content unit inside a section. Type decides which content
// pipeline applies: file-like types get conservative stripping, rendered
// types get HTML-aware stripping.
type Activity struct {
	Type     string
	Name     string
	Content  string
	Filename string
}

// Limits holds the payload ceilings. The zero value of any field selects the
// default; the ceilings are empirical tunables, not documented API limits.
type Limits struct {
	// MaxPayloadBytes bounds the estimated serialized size of a whole batch.
	MaxPayloadBytes int
	// MaxFieldBytes bounds a single activity's estimated serialized size.
	MaxFieldBytes int
	// MaxTextRunes caps plain-text fields such as names and summaries.
	MaxTextRunes int
	// MaxFilenameRunes caps sanitized upload names.
	MaxFilenameRunes int
}

// DefaultLimits returns the ceilings observed to keep the remote API
// reliable: 32 KiB per payload, 4 KiB per activity, 250 runes of plain text.
func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes:  32 * 1024,
		MaxFieldBytes:    4 * 1024,
		MaxTextRunes:     250,
		MaxFilenameRunes: 100,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxPayloadBytes <= 0 {
		l.MaxPayloadBytes = d.MaxPayloadBytes
	}
	if l.MaxFieldBytes <= 0 {
		l.MaxFieldBytes = d.MaxFieldBytes
	}
	if l.MaxFieldBytes < 4*len(TruncationMarker) {
		l.MaxFieldBytes = 4 * len(TruncationMarker)
	}
	if l.MaxTextRunes <= 0 {
		l.MaxTextRunes = d.MaxTextRunes
	}
	if l.MaxFilenameRunes <= 0 {
		l.MaxFilenameRunes = d.MaxFilenameRunes
	}
	return l
}

// Report aggregates what one batch run did. It is informational output for
// logs and dry-run previews; nothing downstream branches on it.
type Report struct {
	SectionsIn      int
	SectionsOut     int
	SectionsDropped int
	// FieldsTruncated counts content fields cut at the byte ceiling.
	FieldsTruncated int
	// TextFieldsCapped counts names and summaries cut at the rune limit.
	TextFieldsCapped int
	// EmojiStripped counts fields that contained emoji before sanitization.
	EmojiStripped  int
	OriginalBytes  int
	SanitizedBytes int
	// ReductionPct is the byte-size reduction in percent. Escaping can make
	// small payloads grow, so the value may be negative.
	ReductionPct float64
	// SuccessEstimate is the banded acceptance heuristic for the sanitized
	// payload size.
	SuccessEstimate float64
}

// Sections sanitizes an ordered section batch.
//
// Every section is processed in order: name and summary through Text(),
// each activity through the type-appropriate content pipeline, filenames
// through Filename(). Activities whose estimated serialized size exceeds
// the per-field ceiling have their content (and only their content)
// truncated at a markup or line boundary with a visible marker.
//
// A running estimate of the serialized batch size is kept; once including
// the next section would cross MaxPayloadBytes, that section and everything
// after it are dropped whole and counted in the report. The prefix that was
// already admitted is returned unchanged, so identical input always yields
// identical output.
func Sections(in []Section, lim Limits) ([]Section, Report) {
	lim = lim.withDefaults()

	report := Report{
		SectionsIn:    len(in),
		OriginalBytes: BatchSize(in),
	}

	out := make([]Section, 0, len(in))
	total := 0
	for _, sec := range in {
		saved := report
		clean := sanitizeSection(sec, lim, &report)
		size := sectionSize(clean)
		if total+size > lim.MaxPayloadBytes {
			// the dropped section's field counts must not leak into the report
			report = saved
			break
		}
		total += size
		out = append(out, clean)
	}

	report.SectionsOut = len(out)
	report.SectionsDropped = len(in) - len(out)
	report.SanitizedBytes = BatchSize(out)
	if report.OriginalBytes > 0 {
		report.ReductionPct = float64(report.OriginalBytes-report.SanitizedBytes) /
			float64(report.OriginalBytes) * 100
	}
	report.SuccessEstimate = SuccessEstimate(report.SanitizedBytes)
	return out, report
}

func sanitizeSection(sec Section, lim Limits, report *Report) Section {
	clean := Section{
		Name:    textField(sec.Name, lim.MaxTextRunes, report),
		Summary: textField(sec.Summary, lim.MaxTextRunes, report),
	}
	if len(sec.Activities) == 0 {
		return clean
	}
	clean.Activities = make([]Activity, 0, len(sec.Activities))
	for _, act := range sec.Activities {
		clean.Activities = append(clean.Activities, sanitizeActivity(act, lim, report))
	}
	return clean
}

func sanitizeActivity(act Activity, lim Limits, report *Report) Activity {
	clean := Activity{
		Type: normalizeType(act.Type),
		Name: textField(act.Name, lim.MaxTextRunes, report),
	}
	if act.Filename != "" {
		clean.Filename = Filename(act.Filename, lim.MaxFilenameRunes)
	}

	if gomoji.ContainsEmoji(act.Content) {
		report.EmojiStripped++
	}
	conservative := conservativeType(clean.Type)
	if conservative {
		clean.Content = Code(act.Content)
	} else {
		clean.Content = HTML(act.Content)
	}

	if size := activitySize(clean); size > lim.MaxFieldBytes {
		budget := lim.MaxFieldBytes - (size - len(clean.Content))
		if budget < 2*len(TruncationMarker) {
			budget = 2 * len(TruncationMarker)
		}
		clean.Content = truncateContent(clean.Content, budget, !conservative)
		report.FieldsTruncated++
	}
	return clean
}

// textField runs the plain-text pipeline while keeping the report's cap and
// emoji counters accurate.
func textField(s string, maxRunes int, report *Report) string {
	if gomoji.ContainsEmoji(s) {
		report.EmojiStripped++
	}
	full := Text(s, 0)
	if utf8.RuneCountInString(full) > maxRunes {
		report.TextFieldsCapped++
	}
	return capRunes(full, maxRunes)
}

// conservativeType reports whether content of the given module type must
// not be HTML-rewritten (file bodies, code, raw resources).
func conservativeType(modType string) bool {
	switch modType {
	case "file", "code", "resource":
		return true
	}
	return false
}

// normalizeType lowers an activity type to a bare identifier token.
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateContent cuts s to at most max bytes ending with TruncationMarker.
// html selects tag-boundary cuts and rebalances the clipped markup so the
// cut cannot leave elements open; otherwise whole lines are preferred. Cuts
// never split a UTF-8 sequence or a character entity.
func truncateContent(s string, max int, html bool) string {
	if len(s) <= max {
		return s
	}
	if max <= len(TruncationMarker) {
		return TruncationMarker[:max]
	}
	budget := max - len(TruncationMarker)
	candidate := clip(s, budget, html)
	if html {
		candidate = htmlPolicy.Sanitize(candidate)
		// rebalancing appends closing tags, which can push the clipped
		// prefix back over budget; shrink until it fits
		for len(candidate) > budget && budget > 0 {
			budget -= len(candidate) - budget
			if budget < 0 {
				budget = 0
			}
			candidate = htmlPolicy.Sanitize(clip(s, budget, html))
		}
	}
	return candidate + TruncationMarker
}

// clip returns a prefix of s no longer than budget bytes, preferring a tag
// or line boundary when one lands in the second half of the budget.
func clip(s string, budget int, html bool) string {
	if len(s) <= budget {
		return s
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	cut = backoffEntity(s, cut)
	candidate := s[:cut]

	var boundary int
	if html {
		boundary = strings.LastIndexByte(candidate, '>') + 1
	} else {
		boundary = strings.LastIndexByte(candidate, '\n') + 1
	}
	if boundary > budget/2 {
		candidate = candidate[:boundary]
	}
	return candidate
}

const fieldOverhead = 24 // rough per-field key/encoding overhead on the wire

func activitySize(a Activity) int {
	return len(a.Type) + len(a.Name) + len(a.Content) + len(a.Filename) + 4*fieldOverhead
}

func sectionSize(s Section) int {
	n := len(s.Name) + len(s.Summary) + 2*fieldOverhead
	for _, a := range s.Activities {
		n += activitySize(a)
	}
	return n
}

// BatchSize estimates the serialized wire size of a section batch. The
// estimate mirrors what the positional form encoding will produce closely
// enough for ceiling decisions; it is not an exact byte count.
func BatchSize(in []Section) int {
	n := 0
	for _, s := range in {
		n += sectionSize(s)
	}
	return n
}
