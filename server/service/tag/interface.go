package tag

import (
	"context"

	"github.com/inkwell-press/inkwell/store"
)

// Service defines the core business logic interface for tag lifecycle
// management. Domain rule violations (empty name, duplicate, not found,
// blocked deletion) are reported in the returned result, never as raw errors:
// unexpected storage failures roll back the operation and surface as a single
// opaque error string while the cause is logged.
type Service interface {
	// CreateTag creates a single tag, rejecting names too similar to an
	// existing tag and attaching warnings for near misses.
	CreateTag(ctx context.Context, req *CreateTagRequest) *CreateTagResult

	// BulkCreateTags resolves or creates a batch of names in one atomic
	// transaction.
	BulkCreateTags(ctx context.Context, req *BulkCreateTagsRequest) *BulkCreateTagsResult

	// UpdateTag renames a tag, regenerating its slug only when the name
	// actually changed or a slug was explicitly supplied.
	UpdateTag(ctx context.Context, req *UpdateTagRequest) *UpdateTagResult

	// DeleteTag deletes a tag unless posts still reference it.
	DeleteTag(ctx context.Context, req *DeleteTagRequest) *DeleteTagResult

	// MergeTags consolidates the source tag into the target tag.
	MergeTags(ctx context.Context, req *MergeTagsRequest) *MergeTagsResult

	// FindSimilarTags returns existing tags similar to name, best first.
	FindSimilarTags(ctx context.Context, name string, limit int) *FindSimilarResult

	// CheckSlugExists reports whether a slug is already taken.
	CheckSlugExists(ctx context.Context, slug string) *CheckSlugResult
}

// Result is the common outcome embedded in every operation result.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// SimilarTag describes an existing tag scored against a requested name. The
// post count is resolved only for results actually returned to a caller.
type SimilarTag struct {
	ID        int32   `json:"id"`
	UID       string  `json:"uid"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Score     float64 `json:"score"`
	PostCount int     `json:"post_count"`
}

// CreateTagRequest is the input for CreateTag. Slug is optional; when empty
// the slug is derived from Name.
type CreateTagRequest struct {
	Name      string
	Slug      string
	CreatorID *int32
}

// CreateTagResult reports the outcome of CreateTag. On a duplicate rejection
// SimilarTags carries the blocking matches so a caller can offer the existing
// tag instead; on success it carries any non-blocking near misses alongside
// Warnings.
type CreateTagResult struct {
	Result
	Tag         *store.Tag    `json:"tag,omitempty"`
	SimilarTags []*SimilarTag `json:"similar_tags,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// BulkCreateTagsRequest is the input for BulkCreateTags. Duplicate names
// within the batch collapse to a single attempt.
type BulkCreateTagsRequest struct {
	Names     []string
	CreatorID *int32
}

// SimilarityWarning flags a requested name that resembled existing tags.
type SimilarityWarning struct {
	Name       string        `json:"name"`
	SimilarTo  []*SimilarTag `json:"similar_to"`
	ResolvedTo *store.Tag    `json:"resolved_to,omitempty"`
	Message    string        `json:"message"`
}

// BulkCreateTagsResult reports the three buckets of a bulk create: tags
// created, requested names resolved to existing tags, and similarity
// warnings. The whole batch is atomic.
type BulkCreateTagsResult struct {
	Result
	Created  []*store.Tag        `json:"created"`
	Existing []*store.Tag        `json:"existing"`
	Warnings []SimilarityWarning `json:"warnings,omitempty"`
}

// UpdateTagRequest is the input for UpdateTag. Slug is optional; when empty
// the slug is regenerated only if the trimmed name differs from the stored
// name.
type UpdateTagRequest struct {
	ID   int32
	Name string
	Slug string
}

// UpdateTagResult reports the outcome of UpdateTag.
type UpdateTagResult struct {
	Result
	Tag *store.Tag `json:"tag,omitempty"`
}

// DeleteTagRequest is the input for DeleteTag.
//
// Force is accepted for API compatibility with existing callers but does not
// currently override the reference check: deletion is blocked whenever posts
// reference the tag, regardless of the flag. The flag's name is misleading;
// the blocking behavior is kept as observed in production.
type DeleteTagRequest struct {
	ID    int32
	Force bool
}

// DeleteTagResult reports the outcome of DeleteTag. HasPosts and PostCount
// explain a blocked deletion.
type DeleteTagResult struct {
	Result
	HasPosts  bool `json:"has_posts"`
	PostCount int  `json:"post_count"`
}

// MergeTagsRequest is the input for MergeTags.
type MergeTagsRequest struct {
	SourceID int32
	TargetID int32
}

// MergeTagsResult reports the outcome of MergeTags. PostsMerged is the number
// of post references the source tag held when it was consumed.
type MergeTagsResult struct {
	Result
	Target      *store.Tag `json:"target,omitempty"`
	PostsMerged int        `json:"posts_merged"`
}

// FindSimilarResult reports scored matches for a name, best first.
type FindSimilarResult struct {
	Result
	Matches []*SimilarTag `json:"matches"`
}

// CheckSlugResult reports whether a slug is taken.
type CheckSlugResult struct {
	Result
	Exists bool `json:"exists"`
}
