// Package course drives the end-to-end workflow that turns parsed content
// into a populated course. The builder tolerates partial failure: one bad
// section or resource is recorded and skipped, never fatal to the run.
package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coursemill/internal/content"
	"coursemill/internal/logging"
	"coursemill/internal/moodle"
	"coursemill/pkg/sanitize"
)

// workflow states, logged per transition
const (
	stateNotStarted    = "NotStarted"
	stateCourseCreated = "CourseCreated"
	stateSectionLoop   = "SectionLoop"
	stateCompleted     = "Completed"
)

var errPayloadDropped = errors.New("dropped to fit the payload ceiling")

// Builder composes the parser, the sanitizer and the client into course
// construction runs. Build one per workflow, with the client that workflow
// owns.
type Builder struct {
	client *moodle.Client
	logger *logging.AppLogger
	limits sanitize.Limits

	// Author is stamped on file uploads when set.
	Author string
}

// NewBuilder wires a builder to a client. The zero Limits selects the
// default ceilings.
func NewBuilder(client *moodle.Client, logger *logging.AppLogger, limits sanitize.Limits) *Builder {
	return &Builder{
		client: client,
		logger: logger,
		limits: limits,
	}
}

// BuildRequest describes one course construction run. Content is the raw
// text to parse; the explicit fields win over anything the content's
// frontmatter declares.
type BuildRequest struct {
	FullName   string
	ShortName  string
	CategoryID int64
	Summary    string
	Content    string
}

// Failure records one isolated step failure inside a run.
type Failure struct {
	Stage    string
	Section  string
	Resource string
	Err      error
}

func (f Failure) String() string {
	if f.Resource != "" {
		return fmt.Sprintf("%s %q in section %q: %v", f.Stage, f.Resource, f.Section, f.Err)
	}
	return fmt.Sprintf("%s %q: %v", f.Stage, f.Section, f.Err)
}

// BuildResult aggregates what a run achieved. The run is fully successful
// when nothing landed in Failures, partially successful while the course and
// at least one section exist.
type BuildResult struct {
	RunID           string
	CourseID        int64
	SectionsPlanned int
	SectionsCreated int
	ModulesCreated  int
	FallbacksUsed   int
	Failures        []Failure
	Report          sanitize.Report
}

// Summary renders the count-based outcome line for user-facing reports.
func (r *BuildResult) Summary() string {
	s := fmt.Sprintf("%d of %d sections created, %d modules attached",
		r.SectionsCreated, r.SectionsPlanned, r.ModulesCreated)
	if r.FallbacksUsed > 0 {
		s += fmt.Sprintf(" (%d as simplified fallback)", r.FallbacksUsed)
	}
	switch n := len(r.Failures); {
	case n == 1:
		s += ", 1 failure"
	case n > 1:
		s += fmt.Sprintf(", %d failures", n)
	}
	return s
}

// FullySuccessful reports whether every section and resource made it.
func (r *BuildResult) FullySuccessful() bool {
	return len(r.Failures) == 0
}

// BuildCourse runs the whole workflow: parse, sanitize, create the course,
// then populate sections one at a time in parsed order.
//
// Course creation is the only hard failure; without a course id nothing
// downstream can proceed. After that, failures are recorded per section and
// per resource and the loop continues, so a run that hits trouble still
// builds everything buildable. No call is retried and nothing is rolled
// back; cancelling mid-run leaves the course in whatever state the finished
// calls produced.
func (b *Builder) BuildCourse(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{RunID: uuid.NewString()}
	b.logger.Info("Course build starting", "run_id", result.RunID, "shortname", req.ShortName)
	b.logger.LogStateTransition("builder", stateNotStarted, stateCourseCreated)

	meta, parsed := content.ParseDocument(req.Content)
	result.SectionsPlanned = len(parsed)

	clean, report := sanitize.Sections(batchFromParsed(parsed), b.limits)
	result.Report = report
	b.logger.DebugObject("sanitize report", report)

	summary := req.Summary
	if summary == "" {
		summary = meta.Summary
	}
	category := req.CategoryID
	if category == 0 {
		category = meta.Category
	}
	textCap := b.limits.MaxTextRunes
	if textCap == 0 {
		textCap = sanitize.DefaultLimits().MaxTextRunes
	}

	courseID, err := b.client.CreateCourse(ctx, moodle.CourseFields{
		FullName:   sanitize.Text(req.FullName, textCap),
		ShortName:  sanitize.Text(req.ShortName, textCap),
		CategoryID: category,
		Summary:    sanitize.HTML(summary),
		Visible:    true,
	})
	if err != nil {
		b.logger.Error("Course creation failed", "run_id", result.RunID, "error", err)
		return nil, err
	}
	result.CourseID = courseID
	b.logger.Info("Course created", "run_id", result.RunID, "course_id", courseID)
	b.logger.LogStateTransition("builder", stateCourseCreated, stateSectionLoop)

	for i, sec := range clean {
		b.buildSection(ctx, result, sec, parsed[i])
	}
	for _, ps := range parsed[len(clean):] {
		result.Failures = append(result.Failures, Failure{
			Stage:   "section",
			Section: ps.Title,
			Err:     errPayloadDropped,
		})
	}

	b.logger.LogStateTransition("builder", stateSectionLoop, stateCompleted)
	b.logger.Info("Course build finished",
		"run_id", result.RunID,
		"course_id", courseID,
		"sections", result.SectionsCreated,
		"modules", result.ModulesCreated,
		"failures", len(result.Failures),
	)
	b.logger.LogPerformance("course build", start)
	return result, nil
}

// buildSection creates one section and attaches its modules. Failures are
// recorded on the result; a failed section skips its own modules and nothing
// else.
func (b *Builder) buildSection(ctx context.Context, result *BuildResult, sec sanitize.Section, ps content.ParsedSection) {
	created, err := b.client.CreateSection(ctx, result.CourseID, moodle.SectionFields{
		Name:    sec.Name,
		Summary: sec.Summary,
	})
	if err != nil {
		b.logger.Warn("Section creation failed", "section", sec.Name, "error", err)
		result.Failures = append(result.Failures, Failure{Stage: "section", Section: sec.Name, Err: err})
		return
	}
	result.SectionsCreated++

	activities := sec.Activities
	if ps.Body != "" && len(activities) > 0 {
		outcome, err := b.attachPage(ctx, result.CourseID, created.Position, activities[0])
		if err != nil {
			result.Failures = append(result.Failures, Failure{
				Stage:    "module",
				Section:  sec.Name,
				Resource: activities[0].Name,
				Err:      err,
			})
		} else {
			result.ModulesCreated++
			if outcome.UsedFallback {
				result.FallbacksUsed++
			}
		}
		activities = activities[1:]
	}

	for j, r := range ps.Resources {
		name := r.Name
		if j < len(activities) {
			name = activities[j].Name
		}
		if _, err := b.client.CreateURL(ctx, result.CourseID, created.Position, name, r.URL); err != nil {
			b.logger.Warn("Resource attachment failed", "section", sec.Name, "resource", name, "error", err)
			result.Failures = append(result.Failures, Failure{
				Stage:    "resource",
				Section:  sec.Name,
				Resource: name,
				Err:      err,
			})
			continue
		}
		result.ModulesCreated++
	}
}

// moduleOutcome tags how a module ended up existing: the id it received and
// whether the simplified representation had to stand in.
type moduleOutcome struct {
	ID           int64
	UsedFallback bool
}

// attachPage creates the section's body as a page module. When the site
// rejects the rich type, the body is retried once as a plain label; the
// fallback is an explicit branch here, not an error swallowed downstream,
// and the outcome records that it happened. Transport failures are not
// retried as labels since the second call would ride the same broken
// connection.
func (b *Builder) attachPage(ctx context.Context, courseID int64, sectionPos int, act sanitize.Activity) (moduleOutcome, error) {
	id, err := b.client.CreateModule(ctx, courseID, sectionPos, moodle.ModuleFields{
		Type:    moodle.ModulePage,
		Name:    act.Name,
		Intro:   act.Content,
		Visible: true,
	})
	if err == nil {
		return moduleOutcome{ID: id}, nil
	}

	var remoteErr *moodle.RemoteError
	if !errors.As(err, &remoteErr) {
		return moduleOutcome{}, err
	}

	b.logger.Warn("Page rejected, retrying as label", "name", act.Name, "error", err)
	id, labelErr := b.client.CreateModule(ctx, courseID, sectionPos, moodle.ModuleFields{
		Type:    moodle.ModuleLabel,
		Name:    act.Name,
		Intro:   act.Content,
		Visible: true,
	})
	if labelErr != nil {
		return moduleOutcome{}, fmt.Errorf("page failed (%v); label fallback failed: %w", err, labelErr)
	}
	return moduleOutcome{ID: id, UsedFallback: true}, nil
}

// ApplySectionLayout runs a batch of structural edits against an existing
// course's sections. It is a separate phase from creation: callers invoke it
// explicitly once section ids are known, and an empty batch is a no-op.
func (b *Builder) ApplySectionLayout(ctx context.Context, ops []moodle.SectionOp) []moodle.OpResult {
	if len(ops) == 0 {
		return nil
	}
	b.logger.Debug("Applying section layout", "operations", len(ops))
	return b.client.BulkSectionOps(ctx, ops)
}

// AttachFile uploads data and attaches it to a section as a file resource.
// When the attach step fails the uploaded draft stays behind; the error
// names the orphaned draft id so failure reports can surface it.
func (b *Builder) AttachFile(ctx context.Context, courseID int64, sectionPos int, name, filename string, data []byte) (int64, error) {
	nameCap := b.limits.MaxFilenameRunes
	if nameCap == 0 {
		nameCap = sanitize.DefaultLimits().MaxFilenameRunes
	}
	draftID, err := b.client.UploadFile(ctx, moodle.UploadRequest{
		Filename: sanitize.Filename(filename, nameCap),
		Content:  data,
		Author:   b.Author,
	})
	if err != nil {
		return 0, fmt.Errorf("upload %q: %w", filename, err)
	}

	moduleID, err := b.client.CreateFileResource(ctx, courseID, sectionPos, name, draftID)
	if err != nil {
		b.logger.Warn("Attach failed after upload, draft orphaned",
			"draft_item", draftID, "filename", filename, "error", err)
		return 0, fmt.Errorf("attach draft item %d (%q): %w", draftID, filename, err)
	}
	return moduleID, nil
}

// batchFromParsed lays parsed sections out for sanitization: the body as a
// leading page activity when present, then one url activity per extracted
// resource so their display names go through the text pipeline. The layout
// is positional and the sanitizer preserves it, which is what lets the
// builder line sanitized activities back up with the parsed resources.
func batchFromParsed(parsed []content.ParsedSection) []sanitize.Section {
	batch := make([]sanitize.Section, 0, len(parsed))
	for _, ps := range parsed {
		sec := sanitize.Section{Name: ps.Title}
		if ps.Body != "" {
			sec.Activities = append(sec.Activities, sanitize.Activity{
				Type:    "page",
				Name:    ps.Title,
				Content: ps.Body,
			})
		}
		for _, r := range ps.Resources {
			sec.Activities = append(sec.Activities, sanitize.Activity{
				Type: "url",
				Name: r.Name,
			})
		}
		batch = append(batch, sec)
	}
	return batch
}
