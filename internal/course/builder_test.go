package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"coursemill/internal/logging"
	"coursemill/internal/moodle"
	"coursemill/pkg/sanitize"
)

const lessonText = `# Getting Started
Welcome to the course.

# Protocols
Read https://example.com/guide.pdf before class.

# Wrap Up
Final notes.
`

// wsCall is one captured web service request.
type wsCall struct {
	Function string
	Form     url.Values
}

// newTestBuilder stands up a fake endpoint driven by respond, which maps
// each request to a JSON body. Every request is captured in order.
func newTestBuilder(t *testing.T, respond func(fn string, form url.Values) string) (*Builder, *[]wsCall) {
	t.Helper()

	var calls []wsCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fn := r.PostForm.Get("wsfunction")
		calls = append(calls, wsCall{Function: fn, Form: r.PostForm})
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, respond(fn, r.PostForm))
	}))
	t.Cleanup(srv.Close)

	logger, _ := logging.NewTestLogger()
	client := moodle.New(moodle.Config{BaseURL: srv.URL, Token: "tok"}, logger)
	return NewBuilder(client, logger, sanitize.Limits{}), &calls
}

// happyResponses answers every function with a plausible success body.
// Section ids count up from 40 so tests can tell creations apart.
func happyResponses() func(fn string, form url.Values) string {
	var sections int
	return func(fn string, form url.Values) string {
		switch fn {
		case "core_course_create_courses":
			return `[{"id":700,"shortname":"net101"}]`
		case "local_wsmanagesections_create_sections":
			sections++
			return fmt.Sprintf(`[{"sectionid":%d,"sectionnumber":%d}]`, 40+sections, sections)
		case "local_modmanager_create_modules":
			return `[{"id":9000}]`
		}
		return "null"
	}
}

func functionNames(calls []wsCall) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Function
	}
	return names
}

func buildReq() BuildRequest {
	return BuildRequest{
		FullName:  "Networking 101",
		ShortName: "net101",
		Content:   lessonText,
	}
}

func TestBuildCourseFullRun(t *testing.T) {
	b, calls := newTestBuilder(t, happyResponses())

	result, err := b.BuildCourse(context.Background(), buildReq())
	if err != nil {
		t.Fatalf("BuildCourse() error = %v", err)
	}

	if result.CourseID != 700 {
		t.Errorf("CourseID = %d, want 700", result.CourseID)
	}
	if result.SectionsPlanned != 3 || result.SectionsCreated != 3 {
		t.Errorf("sections = %d of %d, want 3 of 3", result.SectionsCreated, result.SectionsPlanned)
	}
	// Three page bodies plus the one extracted link.
	if result.ModulesCreated != 4 {
		t.Errorf("ModulesCreated = %d, want 4", result.ModulesCreated)
	}
	if !result.FullySuccessful() {
		t.Errorf("FullySuccessful() = false, failures: %v", result.Failures)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}

	want := "3 of 3 sections created, 4 modules attached"
	if got := result.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	// The course comes first, then each section is created and named before
	// its modules attach.
	got := functionNames(*calls)
	wantSeq := []string{
		"core_course_create_courses",
		"local_wsmanagesections_create_sections",
		"local_wsmanagesections_update_sections",
		"local_modmanager_create_modules",
		"local_wsmanagesections_create_sections",
		"local_wsmanagesections_update_sections",
		"local_modmanager_create_modules",
		"local_modmanager_create_modules",
		"local_wsmanagesections_create_sections",
		"local_wsmanagesections_update_sections",
		"local_modmanager_create_modules",
	}
	if len(got) != len(wantSeq) {
		t.Fatalf("call sequence = %v, want %v", got, wantSeq)
	}
	for i := range wantSeq {
		if got[i] != wantSeq[i] {
			t.Fatalf("call %d = %s, want %s (full sequence %v)", i, got[i], wantSeq[i], got)
		}
	}

	// The extracted link rides the section it was found in.
	urlCall := (*calls)[7]
	if got := urlCall.Form.Get("modules[0][modulename]"); got != "url" {
		t.Errorf("link module type = %q, want url", got)
	}
	if got := urlCall.Form.Get("modules[0][options][0][value]"); got != "https://example.com/guide.pdf" {
		t.Errorf("external url = %q", got)
	}
	if got := urlCall.Form.Get("modules[0][name]"); got != "guide.pdf" {
		t.Errorf("link name = %q, want guide.pdf", got)
	}
}

func TestBuildCourseSectionFailureIsolation(t *testing.T) {
	inner := happyResponses()
	var sectionCalls int
	b, calls := newTestBuilder(t, func(fn string, form url.Values) string {
		if fn == "local_wsmanagesections_create_sections" {
			sectionCalls++
			if sectionCalls == 2 {
				return `{"exception":"moodle_exception","errorcode":"sectionlimit","message":"No more sections"}`
			}
		}
		return inner(fn, form)
	})

	result, err := b.BuildCourse(context.Background(), buildReq())
	if err != nil {
		t.Fatalf("BuildCourse() error = %v", err)
	}

	if result.SectionsCreated != 2 || result.SectionsPlanned != 3 {
		t.Errorf("sections = %d of %d, want 2 of 3", result.SectionsCreated, result.SectionsPlanned)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want exactly one", result.Failures)
	}
	f := result.Failures[0]
	if f.Stage != "section" || f.Section != "Protocols" {
		t.Errorf("failure = %+v, want section Protocols", f)
	}
	var remoteErr *moodle.RemoteError
	if !errors.As(f.Err, &remoteErr) {
		t.Errorf("failure error = %v, want RemoteError", f.Err)
	}

	if !strings.HasPrefix(result.Summary(), "2 of 3 sections created") {
		t.Errorf("Summary() = %q", result.Summary())
	}

	// The failed section's page and link must never be attempted, and the
	// third section still runs.
	names := functionNames(*calls)
	modules := 0
	for _, n := range names {
		if n == "local_modmanager_create_modules" {
			modules++
		}
	}
	if modules != 2 {
		t.Errorf("module calls = %d, want 2 (failed section skips its modules)", modules)
	}
	if sectionCalls != 3 {
		t.Errorf("section create calls = %d, want 3", sectionCalls)
	}
}

func TestBuildCoursePageFallsBackToLabel(t *testing.T) {
	inner := happyResponses()
	b, calls := newTestBuilder(t, func(fn string, form url.Values) string {
		if fn == "local_modmanager_create_modules" && form.Get("modules[0][modulename]") == "page" {
			return `{"exception":"moodle_exception","errorcode":"modulenotsupported","message":"Page disabled"}`
		}
		return inner(fn, form)
	})

	result, err := b.BuildCourse(context.Background(), BuildRequest{
		FullName:  "Fallback",
		ShortName: "fb",
		Content:   "# Only Section\nBody text here.",
	})
	if err != nil {
		t.Fatalf("BuildCourse() error = %v", err)
	}

	if result.ModulesCreated != 1 {
		t.Errorf("ModulesCreated = %d, want 1", result.ModulesCreated)
	}
	if result.FallbacksUsed != 1 {
		t.Errorf("FallbacksUsed = %d, want 1", result.FallbacksUsed)
	}
	if !result.FullySuccessful() {
		t.Errorf("fallback should not count as failure: %v", result.Failures)
	}
	if !strings.Contains(result.Summary(), "1 as simplified fallback") {
		t.Errorf("Summary() = %q, want fallback note", result.Summary())
	}

	var moduleTypes []string
	for _, c := range *calls {
		if c.Function == "local_modmanager_create_modules" {
			moduleTypes = append(moduleTypes, c.Form.Get("modules[0][modulename]"))
		}
	}
	want := []string{"page", "label"}
	if len(moduleTypes) != 2 || moduleTypes[0] != want[0] || moduleTypes[1] != want[1] {
		t.Errorf("module attempts = %v, want %v", moduleTypes, want)
	}
}

func TestBuildCourseFallbackExhausted(t *testing.T) {
	inner := happyResponses()
	b, _ := newTestBuilder(t, func(fn string, form url.Values) string {
		if fn == "local_modmanager_create_modules" {
			return `{"exception":"moodle_exception","errorcode":"nomodules","message":"All modules disabled"}`
		}
		return inner(fn, form)
	})

	result, err := b.BuildCourse(context.Background(), BuildRequest{
		FullName:  "Fallback",
		ShortName: "fb",
		Content:   "# Only Section\nBody text here.",
	})
	if err != nil {
		t.Fatalf("BuildCourse() error = %v", err)
	}

	if result.ModulesCreated != 0 || result.FallbacksUsed != 0 {
		t.Errorf("modules = %d, fallbacks = %d, want 0 and 0", result.ModulesCreated, result.FallbacksUsed)
	}
	if len(result.Failures) != 1 || result.Failures[0].Stage != "module" {
		t.Fatalf("Failures = %v, want one module failure", result.Failures)
	}
	msg := result.Failures[0].Err.Error()
	if !strings.Contains(msg, "label fallback failed") {
		t.Errorf("failure error = %q, want both attempts mentioned", msg)
	}
}

func TestBuildCourseCreateFailureAborts(t *testing.T) {
	b, calls := newTestBuilder(t, func(fn string, form url.Values) string {
		return `{"exception":"moodle_exception","errorcode":"shortnametaken","message":"Short name in use"}`
	})

	result, err := b.BuildCourse(context.Background(), buildReq())
	if err == nil {
		t.Fatal("BuildCourse() error = nil, want remote failure")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on hard failure", result)
	}
	if len(*calls) != 1 {
		t.Errorf("calls after hard failure = %v, want just the course attempt", functionNames(*calls))
	}
}

func TestBuildCourseResourceFailureIsolation(t *testing.T) {
	inner := happyResponses()
	b, _ := newTestBuilder(t, func(fn string, form url.Values) string {
		if fn == "local_modmanager_create_modules" && form.Get("modules[0][modulename]") == "url" {
			return `{"exception":"moodle_exception","errorcode":"urlblocked","message":"External URLs disabled"}`
		}
		return inner(fn, form)
	})

	result, err := b.BuildCourse(context.Background(), buildReq())
	if err != nil {
		t.Fatalf("BuildCourse() error = %v", err)
	}

	if result.SectionsCreated != 3 {
		t.Errorf("SectionsCreated = %d, want 3", result.SectionsCreated)
	}
	// Pages land, only the link fails.
	if result.ModulesCreated != 3 {
		t.Errorf("ModulesCreated = %d, want 3", result.ModulesCreated)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want one", result.Failures)
	}
	f := result.Failures[0]
	if f.Stage != "resource" || f.Section != "Protocols" || f.Resource != "guide.pdf" {
		t.Errorf("failure = %+v", f)
	}
}

func TestBuildCourseFrontmatterFillsGaps(t *testing.T) {
	b, calls := newTestBuilder(t, happyResponses())

	text := "---\ntitle: Ignored\nsummary: From the document\ncategory: 7\n---\n# One\nBody."
	_, err := b.BuildCourse(context.Background(), BuildRequest{
		FullName:  "Explicit Name",
		ShortName: "exp",
		Content:   text,
	})
	if err != nil {
		t.Fatalf("BuildCourse() error = %v", err)
	}

	courseCall := (*calls)[0]
	if got := courseCall.Form.Get("courses[0][categoryid]"); got != "7" {
		t.Errorf("categoryid = %q, want 7 (from frontmatter)", got)
	}
	if got := courseCall.Form.Get("courses[0][summary]"); got != "From the document" {
		t.Errorf("summary = %q", got)
	}
	if got := courseCall.Form.Get("courses[0][fullname]"); got != "Explicit Name" {
		t.Errorf("fullname = %q, explicit field must win", got)
	}
}

func TestApplySectionLayout(t *testing.T) {
	b, calls := newTestBuilder(t, func(fn string, form url.Values) string {
		return "null"
	})

	if got := b.ApplySectionLayout(context.Background(), nil); got != nil {
		t.Errorf("empty layout = %v, want nil", got)
	}
	if len(*calls) != 0 {
		t.Errorf("empty layout made %d calls", len(*calls))
	}

	results := b.ApplySectionLayout(context.Background(), []moodle.SectionOp{
		{Kind: moodle.SectionOpMove, SectionID: 41, Position: 2},
	})
	if len(results) != 1 || results[0].Err != nil {
		t.Errorf("results = %+v", results)
	}
	if len(*calls) != 1 || (*calls)[0].Function != "local_wsmanagesections_move_sections" {
		t.Errorf("calls = %v", functionNames(*calls))
	}
}

func TestAttachFileNamesOrphanedDraft(t *testing.T) {
	b, _ := newTestBuilder(t, func(fn string, form url.Values) string {
		if fn == "core_files_upload" {
			return `{"itemid":55}`
		}
		return `{"exception":"moodle_exception","errorcode":"nopermission","message":"Cannot add resources"}`
	})

	_, err := b.AttachFile(context.Background(), 700, 1, "Syllabus", "syllabus.pdf", []byte("%PDF-1.4"))
	if err == nil {
		t.Fatal("AttachFile() error = nil, want attach failure")
	}
	if !strings.Contains(err.Error(), "draft item 55") {
		t.Errorf("error = %q, want orphaned draft id named", err)
	}
}

func TestAttachFileSuccess(t *testing.T) {
	b, calls := newTestBuilder(t, func(fn string, form url.Values) string {
		if fn == "core_files_upload" {
			return `{"itemid":55}`
		}
		return `[{"id":9100}]`
	})
	b.Author = "svc-account"

	id, err := b.AttachFile(context.Background(), 700, 1, "Syllabus", "syllabus.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	if id != 9100 {
		t.Errorf("module id = %d, want 9100", id)
	}
	if got := (*calls)[0].Form.Get("author"); got != "svc-account" {
		t.Errorf("author = %q, want svc-account", got)
	}
}

func TestPreviewContent(t *testing.T) {
	p := PreviewContent(lessonText, sanitize.Limits{})

	if len(p.Sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(p.Sections))
	}
	if p.Sections[0].Title != "Getting Started" {
		t.Errorf("first title = %q", p.Sections[0].Title)
	}
	if p.Sections[0].BodyBytes == 0 {
		t.Error("first section body empty in preview")
	}
	if len(p.Sections[1].Resources) != 1 || p.Sections[1].Resources[0].URL != "https://example.com/guide.pdf" {
		t.Errorf("resources = %+v", p.Sections[1].Resources)
	}
	if p.Report.SectionsOut != 3 {
		t.Errorf("report sections out = %d", p.Report.SectionsOut)
	}
}
