package moodle

import "strings"

// SiteInfo describes the remote site and the identity behind the token.
type SiteInfo struct {
	SiteName  string `json:"sitename"`
	SiteURL   string `json:"siteurl"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	UserID    int64  `json:"userid"`
	Release   string `json:"release"`
	Version   string `json:"version"`
}

// Course is a course record as the LMS reports it.
type Course struct {
	ID         int64  `json:"id"`
	FullName   string `json:"fullname"`
	ShortName  string `json:"shortname"`
	CategoryID int64  `json:"categoryid"`
	Summary    string `json:"summary"`
}

// CourseFields carries what a new course needs. Format defaults to the
// topics layout when empty.
type CourseFields struct {
	FullName   string
	ShortName  string
	CategoryID int64
	Summary    string
	Format     string
	Visible    bool
}

// Section identifies a created section. Position is the section number
// within its course, which most section operations address.
type Section struct {
	ID       int64
	Position int
	Name     string
	Summary  string
}

// SectionFields carries what a new section needs. Position zero appends at
// the end of the course.
type SectionFields struct {
	Name         string
	Summary      string
	Position     int
	Availability *AvailabilityExpr
}

// SectionUpdate is a partial section mutation; nil fields stay untouched.
type SectionUpdate struct {
	Name         *string
	Summary      *string
	Visible      *bool
	Availability *AvailabilityExpr
}

// SectionMove reassigns one section to a new position.
type SectionMove struct {
	SectionID int64
	Position  int
}

// SectionOpKind names a bulk structural operation.
type SectionOpKind string

const (
	SectionOpUpdate    SectionOpKind = "update"
	SectionOpMove      SectionOpKind = "move"
	SectionOpDuplicate SectionOpKind = "duplicate"
)

// SectionOp is one entry of a bulk structural edit.
type SectionOp struct {
	Kind      SectionOpKind
	SectionID int64

	// update payload
	Update *SectionUpdate

	// move payload
	Position int

	// duplicate payload
	TargetCourseID int64
}

// OpResult acknowledges one bulk entry. Batched entries share their batch's
// error: the protocol gives no finer-grained outcome for a combined request.
type OpResult struct {
	Kind         SectionOpKind
	SectionID    int64
	NewSectionID int64
	Err          error
}

// ModuleType is the wire-level activity module name.
type ModuleType string

const (
	ModulePage       ModuleType = "page"
	ModuleLabel      ModuleType = "label"
	ModuleURL        ModuleType = "url"
	ModuleResource   ModuleType = "resource"
	ModuleForum      ModuleType = "forum"
	ModuleAssignment ModuleType = "assign"
)

// ParseModuleType maps user-facing spellings onto wire names. Unrecognized
// names pass through untouched so site-specific plugin modules stay usable.
func ParseModuleType(s string) ModuleType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "page":
		return ModulePage
	case "label":
		return ModuleLabel
	case "url", "link":
		return ModuleURL
	case "file", "resource":
		return ModuleResource
	case "forum", "discussion":
		return ModuleForum
	case "assign", "assignment":
		return ModuleAssignment
	}
	return ModuleType(strings.ToLower(strings.TrimSpace(s)))
}

// ModuleFields carries what a new course module needs.
type ModuleFields struct {
	Type    ModuleType
	Name    string
	Intro   string
	Visible bool
	// Options are type-specific settings transmitted as name/value records.
	Options []ModuleOption
}

// ModuleOption is one type-specific module setting.
type ModuleOption struct {
	Name  string
	Value any
}

// AssignmentFields carries the assignment-specific settings layered on top
// of the common module fields.
type AssignmentFields struct {
	Name    string
	Intro   string
	DueDate int64
	Grade   int
	Visible bool
}

// ForumFields carries the forum-specific settings. Type defaults to the
// standard general forum.
type ForumFields struct {
	Name    string
	Intro   string
	Type    string
	Visible bool
}

// ContentSection is one section of a course contents listing.
type ContentSection struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Number  int             `json:"section"`
	Summary string          `json:"summary"`
	Visible int             `json:"visible"`
	Modules []ContentModule `json:"modules"`
}

// ContentModule is one activity of a course contents listing.
type ContentModule struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ModName     string `json:"modname"`
	Description string `json:"description"`
	Visible     int    `json:"visible"`
}

// warning is the web service's non-fatal diagnostic record.
type warning struct {
	Item        string `json:"item"`
	ItemID      int64  `json:"itemid"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}
