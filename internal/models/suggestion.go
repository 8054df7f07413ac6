package models

import (
	"time"

	"gorm.io/gorm"
)

// Suggestion statuses form the admin triage workflow.
const (
	SuggestionPending     = "pending"
	SuggestionInReview    = "in-review"
	SuggestionApproved    = "approved"
	SuggestionRejected    = "rejected"
	SuggestionImplemented = "implemented"
)

// SuggestionStatuses lists every valid suggestion status.
var SuggestionStatuses = []string{
	SuggestionPending, SuggestionInReview, SuggestionApproved, SuggestionRejected, SuggestionImplemented,
}

// SuggestionCategories lists every valid suggestion category.
var SuggestionCategories = []string{
	"feature", "bug", "improvement", "ui-ux", "performance", "content", "other",
}

// Suggestion priorities, lowest first.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// SuggestionPriorities lists every valid priority, lowest first.
var SuggestionPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Vote types.
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// Attachment is a file reference attached to a suggestion.
type Attachment struct {
	Filename string `json:"filename" validate:"max=255"`
	URL      string `json:"url" validate:"required,url"`
}

// Suggestion is a user-submitted feature request or bug report.
type Suggestion struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Title         string `gorm:"size:200;not null" json:"title"`
	Description   string `gorm:"type:text;not null" json:"description"`
	Category      string `gorm:"size:32;not null;index" json:"category"`
	Priority      string `gorm:"size:16;not null;default:medium;index" json:"priority"`
	Status        string `gorm:"size:16;not null;default:pending;index" json:"status"`
	SubmittedByID uint   `gorm:"not null;index" json:"submittedById"`
	SubmittedBy   User   `gorm:"foreignKey:SubmittedByID" json:"submittedBy"`
	AssignedToID  *uint  `gorm:"index" json:"assignedToId,omitempty"`
	AssignedTo    *User  `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
	AdminNotes    string `gorm:"type:text" json:"adminNotes,omitempty"`

	Attachments []Attachment        `gorm:"serializer:json;type:text" json:"attachments"`
	Tags        []string            `gorm:"-" json:"tags"`
	TagRows     []SuggestionTag     `gorm:"foreignKey:SuggestionID" json:"-"`
	Comments    []SuggestionComment `gorm:"foreignKey:SuggestionID" json:"comments"`

	// Vote tallies are computed at query time from suggestion_votes
	Upvotes   int64  `gorm:"->;-:migration" json:"upvotes"`
	Downvotes int64  `gorm:"->;-:migration" json:"downvotes"`
	UserVote  string `gorm:"->;-:migration" json:"userVote,omitempty"`
	// VoteCount (up - down) and TotalVotes (up + down) are derived from the tallies
	VoteCount  int64 `gorm:"-" json:"voteCount"`
	TotalVotes int64 `gorm:"-" json:"totalVotes"`

	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Tally recomputes the derived vote fields.
func (s *Suggestion) Tally() {
	s.VoteCount = s.Upvotes - s.Downvotes
	s.TotalVotes = s.Upvotes + s.Downvotes
}

// BeforeCreate turns Tags into child rows so they are inserted with the suggestion.
func (s *Suggestion) BeforeCreate(_ *gorm.DB) error {
	if len(s.TagRows) == 0 && len(s.Tags) > 0 {
		s.TagRows = make([]SuggestionTag, 0, len(s.Tags))
		for _, t := range s.Tags {
			s.TagRows = append(s.TagRows, SuggestionTag{Name: t})
		}
	}
	return nil
}

// AfterFind exposes the preloaded tag rows as plain names.
func (s *Suggestion) AfterFind(_ *gorm.DB) error {
	s.Tags = make([]string, 0, len(s.TagRows))
	for _, t := range s.TagRows {
		s.Tags = append(s.Tags, t.Name)
	}
	s.Tally()
	if s.Attachments == nil {
		s.Attachments = []Attachment{}
	}
	if s.Comments == nil {
		s.Comments = []SuggestionComment{}
	}
	return nil
}

// SuggestionTag stores one tag of a suggestion.
type SuggestionTag struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	SuggestionID uint   `gorm:"not null;uniqueIndex:idx_suggestion_tag" json:"-"`
	Name         string `gorm:"size:50;not null;uniqueIndex:idx_suggestion_tag" json:"name"`
}

// SuggestionComment is a discussion message on a suggestion.
type SuggestionComment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SuggestionID uint      `gorm:"not null;index" json:"suggestionId"`
	UserID       uint      `gorm:"not null" json:"userId"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SuggestionVote is a user's single vote on a suggestion. The
// (suggestion, user) pair is unique, so re-voting replaces the type.
type SuggestionVote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SuggestionID uint      `gorm:"not null;uniqueIndex:idx_suggestion_vote_user" json:"suggestionId"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_suggestion_vote_user" json:"userId"`
	Type         string    `gorm:"size:16;not null" json:"type"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VoteResult is returned by vote and remove-vote.
type VoteResult struct {
	Upvotes    int64  `json:"upvotes"`
	Downvotes  int64  `json:"downvotes"`
	VoteCount  int64  `json:"voteCount"`
	TotalVotes int64  `json:"totalVotes"`
	UserVote   string `json:"userVote,omitempty"`
}

// SuggestionStats aggregates suggestions for the stats endpoint.
type SuggestionStats struct {
	Total      int64            `json:"total"`
	TotalVotes int64            `json:"totalVotes"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByCategory map[string]int64 `json:"byCategory"`
	ByPriority map[string]int64 `json:"byPriority"`
}
