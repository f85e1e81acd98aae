package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	tagerrors "github.com/inkwell-press/inkwell/server/internal/errors"
	"github.com/inkwell-press/inkwell/server/internal/observability"
	"github.com/inkwell-press/inkwell/store"
)

const (
	// defaultSimilarLimit is the number of matches returned when a caller
	// does not specify one.
	defaultSimilarLimit = 5

	// enrichConcurrency bounds concurrent post-count lookups.
	enrichConcurrency = 4
)

// persistenceMessage is the only detail callers get about unexpected storage
// failures; the cause is logged for operators.
const persistenceMessage = "a storage error occurred and the operation was rolled back"

// slugConflictMessage signals a retryable loss of the slug uniqueness race.
const slugConflictMessage = "the slug was claimed concurrently, please retry"

// Store is the interface for store operations needed by the tag service.
type Store interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	GetTag(ctx context.Context, find *store.FindTag) (*store.Tag, error)
	ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error)
	UpdateTag(ctx context.Context, update *store.UpdateTag) error
	DeleteTag(ctx context.Context, delete *store.DeleteTag) error
	TagSlugExists(ctx context.Context, slug string, excludeID *int32) (bool, error)
	CountTagPosts(ctx context.Context, tagID int32) (int, error)
	EvictTagCache(ctx context.Context, slug string)
}

type service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new tag lifecycle service.
func NewService(st Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: st, logger: logger}
}

func success() Result {
	return Result{Success: true}
}

// report converts a structured error into a caller-facing Result. Domain rule
// violations are logged at info level; storage failures carry a cause and are
// logged as errors without exposing the detail to the caller.
func report(log *slog.Logger, te *tagerrors.TagError) Result {
	code := slog.String(observability.LogFieldErrorCode, string(te.Code))
	switch te.Code {
	case tagerrors.ErrCodePersistenceFailed:
		log.Error(te.Message, "error", te.Cause, code)
	case tagerrors.ErrCodeSlugConflict:
		log.Warn(te.Message, "error", te.Cause, code)
	default:
		log.Info(te.Message, code)
	}
	return Result{Success: false, Errors: []string{te.Message}}
}

// storageFailure wraps an unexpected storage error for report.
func storageFailure(cause error) *tagerrors.TagError {
	if errors.Is(cause, store.ErrSlugConflict) {
		return tagerrors.SlugConflict(slugConflictMessage, cause)
	}
	return tagerrors.PersistenceFailed(persistenceMessage, cause)
}

// CreateTag creates a single tag. Names scoring at or above
// DuplicateThreshold against an existing tag are rejected with the blocking
// matches attached; scores in the warning band create the tag but attach a
// non-blocking warning.
func (s *service) CreateTag(ctx context.Context, req *CreateTagRequest) *CreateTagResult {
	rc := observability.NewRequestContext(s.logger, "tag.create")
	log := rc.WithFields(slog.String(observability.LogFieldTagName, req.Name))

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return &CreateTagResult{Result: report(log, tagerrors.ValidationFailed("tag name cannot be empty"))}
	}

	scored, err := s.rankAgainstAll(ctx, name, defaultSimilarLimit)
	if err != nil {
		return &CreateTagResult{Result: report(log, storageFailure(err))}
	}
	if len(scored) > 0 && scored[0].score >= DuplicateThreshold {
		matches, enrichErr := s.enrich(ctx, scored)
		if enrichErr != nil {
			return &CreateTagResult{Result: report(log, storageFailure(enrichErr))}
		}
		return &CreateTagResult{
			Result: report(log, tagerrors.DuplicateTag(
				fmt.Sprintf("a tag too similar to %q already exists: %q", name, scored[0].tag.Name))),
			SimilarTags: matches,
		}
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return &CreateTagResult{Result: report(log, storageFailure(err))}
	}
	defer tx.Rollback()

	slug, err := s.resolveSlug(ctx, tx, req.Slug, name, nil)
	if err != nil {
		return &CreateTagResult{Result: report(log, storageFailure(err))}
	}

	created, err := tx.CreateTag(ctx, &store.Tag{
		UID:       shortuuid.New(),
		Name:      name,
		Slug:      slug,
		CreatorID: req.CreatorID,
	})
	if err != nil {
		return &CreateTagResult{Result: report(log, storageFailure(err))}
	}
	if err := tx.Commit(); err != nil {
		return &CreateTagResult{Result: report(log, storageFailure(err))}
	}

	result := &CreateTagResult{Result: success(), Tag: created}
	if len(scored) > 0 && scored[0].score >= WarningThreshold {
		matches, enrichErr := s.enrich(ctx, scored)
		if enrichErr != nil {
			// The tag is already committed; report it without the match detail.
			log.Warn("post count enrichment failed after commit", "error", enrichErr)
		} else {
			result.SimilarTags = matches
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"tag %q is similar to existing tag %q (score %.2f)", name, scored[0].tag.Name, scored[0].score))
	}

	log.Info("tag created",
		slog.Int(observability.LogFieldTagID, int(created.ID)),
		slog.String(observability.LogFieldTagSlug, created.Slug),
		slog.Int64(observability.LogFieldDuration, rc.Elapsed().Milliseconds()))
	return result
}

// BulkCreateTags resolves or creates every distinct, non-empty name in the
// batch inside one transaction. Names whose derived slug already exists, or
// that score at or above BulkResolveThreshold against an existing tag, resolve
// to that tag; everything else is created. Any failure rolls the whole batch
// back.
func (s *service) BulkCreateTags(ctx context.Context, req *BulkCreateTagsRequest) *BulkCreateTagsResult {
	rc := observability.NewRequestContext(s.logger, "tag.bulk_create")
	log := rc.WithFields(slog.Int("requested", len(req.Names)))

	names := make([]string, 0, len(req.Names))
	seen := make(map[string]bool)
	for _, raw := range req.Names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return &BulkCreateTagsResult{Result: report(log, tagerrors.ValidationFailed("no valid tag names in batch"))}
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return &BulkCreateTagsResult{Result: report(log, storageFailure(err))}
	}
	defer tx.Rollback()

	all, err := tx.ListTags(ctx, &store.FindTag{})
	if err != nil {
		return &BulkCreateTagsResult{Result: report(log, storageFailure(err))}
	}
	bySlug := make(map[string]*store.Tag, len(all))
	for _, t := range all {
		bySlug[t.Slug] = t
	}

	result := &BulkCreateTagsResult{
		Created:  make([]*store.Tag, 0),
		Existing: make([]*store.Tag, 0),
	}

	for _, name := range names {
		if derived := GenerateSlug(name); derived != "" {
			if existing, ok := bySlug[derived]; ok {
				result.Existing = append(result.Existing, existing)
				continue
			}
		}

		scored := rankSimilar(name, all, defaultSimilarLimit)
		if len(scored) > 0 && scored[0].score >= BulkResolveThreshold {
			match := scored[0].tag
			result.Existing = append(result.Existing, match)
			result.Warnings = append(result.Warnings, SimilarityWarning{
				Name:       name,
				SimilarTo:  toSimilarTags(scored),
				ResolvedTo: match,
				Message:    fmt.Sprintf("%q resolved to existing tag %q (score %.2f)", name, match.Name, scored[0].score),
			})
			continue
		}

		slug, err := GenerateUniqueSlug(ctx, name, tx.TagSlugExists, nil)
		if err != nil {
			return &BulkCreateTagsResult{Result: report(log, storageFailure(err))}
		}
		created, err := tx.CreateTag(ctx, &store.Tag{
			UID:       shortuuid.New(),
			Name:      name,
			Slug:      slug,
			CreatorID: req.CreatorID,
		})
		if err != nil {
			return &BulkCreateTagsResult{Result: report(log, storageFailure(err))}
		}

		result.Created = append(result.Created, created)
		all = append(all, created)
		bySlug[created.Slug] = created

		if len(scored) > 0 && scored[0].score >= WarningThreshold {
			result.Warnings = append(result.Warnings, SimilarityWarning{
				Name:      name,
				SimilarTo: toSimilarTags(scored),
				Message:   fmt.Sprintf("%q is similar to existing tag %q (score %.2f)", name, scored[0].tag.Name, scored[0].score),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return &BulkCreateTagsResult{Result: report(log, storageFailure(err))}
	}

	// Post counts are resolved only for the matches actually reported.
	s.enrichWarnings(ctx, log, result.Warnings)

	result.Result = success()
	log.Info("bulk create finished",
		slog.Int("created", len(result.Created)),
		slog.Int("existing", len(result.Existing)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Int64(observability.LogFieldDuration, rc.Elapsed().Milliseconds()))
	return result
}

// UpdateTag renames a tag. The slug is regenerated only when the trimmed name
// differs from the stored name, or when a slug is explicitly supplied; the
// uniqueness check excludes the tag's own id so an unchanged slug never
// collides with itself.
func (s *service) UpdateTag(ctx context.Context, req *UpdateTagRequest) *UpdateTagResult {
	rc := observability.NewRequestContext(s.logger, "tag.update")
	log := rc.WithFields(slog.Int(observability.LogFieldTagID, int(req.ID)))

	existing, err := s.store.GetTag(ctx, &store.FindTag{ID: &req.ID})
	if err != nil {
		return &UpdateTagResult{Result: report(log, storageFailure(err))}
	}
	if existing == nil {
		return &UpdateTagResult{Result: report(log, tagerrors.NotFound(fmt.Sprintf("tag %d not found", req.ID)))}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return &UpdateTagResult{Result: report(log, tagerrors.ValidationFailed("tag name cannot be empty"))}
	}

	newSlug := existing.Slug
	if supplied := strings.TrimSpace(req.Slug); supplied != "" {
		normalized := GenerateSlug(supplied)
		taken := true
		if normalized != "" {
			taken, err = s.store.TagSlugExists(ctx, normalized, &req.ID)
			if err != nil {
				return &UpdateTagResult{Result: report(log, storageFailure(err))}
			}
		}
		if taken {
			normalized, err = GenerateUniqueSlug(ctx, supplied, s.store.TagSlugExists, &req.ID)
			if err != nil {
				return &UpdateTagResult{Result: report(log, storageFailure(err))}
			}
		}
		newSlug = normalized
	} else if name != existing.Name {
		newSlug, err = GenerateUniqueSlug(ctx, name, s.store.TagSlugExists, &req.ID)
		if err != nil {
			return &UpdateTagResult{Result: report(log, storageFailure(err))}
		}
	}

	update := &store.UpdateTag{ID: req.ID, Name: &name}
	if newSlug != existing.Slug {
		update.Slug = &newSlug
	}
	if err := s.store.UpdateTag(ctx, update); err != nil {
		return &UpdateTagResult{Result: report(log, storageFailure(err))}
	}

	updated := *existing
	updated.Name = name
	updated.Slug = newSlug
	log.Info("tag updated",
		slog.String(observability.LogFieldTagSlug, newSlug),
		slog.Int64(observability.LogFieldDuration, rc.Elapsed().Milliseconds()))
	return &UpdateTagResult{Result: success(), Tag: &updated}
}

// DeleteTag deletes a tag with no post references. Deletion is blocked while
// any reference exists; see DeleteTagRequest.Force for the flag's caveat.
func (s *service) DeleteTag(ctx context.Context, req *DeleteTagRequest) *DeleteTagResult {
	rc := observability.NewRequestContext(s.logger, "tag.delete")
	log := rc.WithFields(slog.Int(observability.LogFieldTagID, int(req.ID)))

	existing, err := s.store.GetTag(ctx, &store.FindTag{ID: &req.ID})
	if err != nil {
		return &DeleteTagResult{Result: report(log, storageFailure(err))}
	}
	if existing == nil {
		return &DeleteTagResult{Result: report(log, tagerrors.NotFound(fmt.Sprintf("tag %d not found", req.ID)))}
	}

	count, err := s.store.CountTagPosts(ctx, req.ID)
	if err != nil {
		return &DeleteTagResult{Result: report(log, storageFailure(err))}
	}
	if count > 0 {
		if req.Force {
			log.Warn("force delete requested but tag still has posts", slog.Int("post_count", count))
		}
		return &DeleteTagResult{
			Result: report(log, tagerrors.HasReferences(
				fmt.Sprintf("tag %q is attached to %d posts and cannot be deleted", existing.Name, count))),
			HasPosts:  true,
			PostCount: count,
		}
	}

	if err := s.store.DeleteTag(ctx, &store.DeleteTag{ID: req.ID}); err != nil {
		return &DeleteTagResult{Result: report(log, storageFailure(err))}
	}

	log.Info("tag deleted",
		slog.String(observability.LogFieldTagSlug, existing.Slug),
		slog.Int64(observability.LogFieldDuration, rc.Elapsed().Milliseconds()))
	return &DeleteTagResult{Result: success()}
}

// MergeTags consolidates the source tag into the target: the source's post
// reference count is reported as PostsMerged and the source tag is deleted in
// a transaction.
//
// Known limitation: the source's post associations are dropped with the tag
// (schema cascade) rather than reassigned to the target.
func (s *service) MergeTags(ctx context.Context, req *MergeTagsRequest) *MergeTagsResult {
	rc := observability.NewRequestContext(s.logger, "tag.merge")
	log := rc.WithFields(
		slog.Int("source_id", int(req.SourceID)),
		slog.Int("target_id", int(req.TargetID)))

	if req.SourceID == req.TargetID {
		return &MergeTagsResult{Result: report(log, tagerrors.ValidationFailed("cannot merge a tag into itself"))}
	}

	source, err := s.store.GetTag(ctx, &store.FindTag{ID: &req.SourceID})
	if err != nil {
		return &MergeTagsResult{Result: report(log, storageFailure(err))}
	}
	if source == nil {
		return &MergeTagsResult{Result: report(log, tagerrors.NotFound(fmt.Sprintf("source tag %d not found", req.SourceID)))}
	}
	target, err := s.store.GetTag(ctx, &store.FindTag{ID: &req.TargetID})
	if err != nil {
		return &MergeTagsResult{Result: report(log, storageFailure(err))}
	}
	if target == nil {
		return &MergeTagsResult{Result: report(log, tagerrors.NotFound(fmt.Sprintf("target tag %d not found", req.TargetID)))}
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return &MergeTagsResult{Result: report(log, storageFailure(err))}
	}
	defer tx.Rollback()

	postsMerged, err := tx.CountTagPosts(ctx, source.ID)
	if err != nil {
		return &MergeTagsResult{Result: report(log, storageFailure(err))}
	}
	if err := tx.DeleteTag(ctx, &store.DeleteTag{ID: source.ID}); err != nil {
		return &MergeTagsResult{Result: report(log, storageFailure(err))}
	}
	if err := tx.Commit(); err != nil {
		return &MergeTagsResult{Result: report(log, storageFailure(err))}
	}
	s.store.EvictTagCache(ctx, source.Slug)

	log.Info("tags merged",
		slog.Int("posts_merged", postsMerged),
		slog.Int64(observability.LogFieldDuration, rc.Elapsed().Milliseconds()))
	return &MergeTagsResult{Result: success(), Target: target, PostsMerged: postsMerged}
}

// FindSimilarTags returns existing tags scored against name, best first, with
// post counts resolved for the returned matches only.
func (s *service) FindSimilarTags(ctx context.Context, name string, limit int) *FindSimilarResult {
	rc := observability.NewRequestContext(s.logger, "tag.find_similar")
	log := rc.WithFields(slog.String(observability.LogFieldTagName, name))

	name = strings.TrimSpace(name)
	if name == "" {
		return &FindSimilarResult{Result: report(log, tagerrors.ValidationFailed("tag name cannot be empty"))}
	}
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	scored, err := s.rankAgainstAll(ctx, name, limit)
	if err != nil {
		return &FindSimilarResult{Result: report(log, storageFailure(err))}
	}
	matches, err := s.enrich(ctx, scored)
	if err != nil {
		return &FindSimilarResult{Result: report(log, storageFailure(err))}
	}
	return &FindSimilarResult{Result: success(), Matches: matches}
}

// CheckSlugExists reports whether slug is already taken by any tag.
func (s *service) CheckSlugExists(ctx context.Context, slug string) *CheckSlugResult {
	rc := observability.NewRequestContext(s.logger, "tag.check_slug")
	log := rc.WithFields(slog.String(observability.LogFieldTagSlug, slug))

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return &CheckSlugResult{Result: report(log, tagerrors.ValidationFailed("slug cannot be empty"))}
	}
	exists, err := s.store.TagSlugExists(ctx, slug, nil)
	if err != nil {
		return &CheckSlugResult{Result: report(log, storageFailure(err))}
	}
	return &CheckSlugResult{Result: success(), Exists: exists}
}

// resolveSlug picks the slug for a new tag: a caller-supplied slug is
// normalized and kept when free, falling back to unique resolution on
// collision; otherwise the slug is derived from the name.
func (s *service) resolveSlug(ctx context.Context, tx store.Tx, supplied, name string, excludeID *int32) (string, error) {
	if supplied = strings.TrimSpace(supplied); supplied != "" {
		normalized := GenerateSlug(supplied)
		if normalized != "" {
			taken, err := tx.TagSlugExists(ctx, normalized, excludeID)
			if err != nil {
				return "", err
			}
			if !taken {
				return normalized, nil
			}
		}
		return GenerateUniqueSlug(ctx, supplied, tx.TagSlugExists, excludeID)
	}
	return GenerateUniqueSlug(ctx, name, tx.TagSlugExists, excludeID)
}

// rankAgainstAll scores name against the whole tag set. Linear scan; fine at
// moderate tag cardinality.
func (s *service) rankAgainstAll(ctx context.Context, name string, limit int) ([]scoredTag, error) {
	tags, err := s.store.ListTags(ctx, &store.FindTag{})
	if err != nil {
		return nil, err
	}
	return rankSimilar(name, tags, limit), nil
}

// enrich resolves post counts for the retained matches with bounded
// concurrency.
func (s *service) enrich(ctx context.Context, scored []scoredTag) ([]*SimilarTag, error) {
	matches := make([]*SimilarTag, len(scored))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, sc := range scored {
		i, sc := i, sc
		g.Go(func() error {
			count, err := s.store.CountTagPosts(gctx, sc.tag.ID)
			if err != nil {
				return err
			}
			matches[i] = &SimilarTag{
				ID:        sc.tag.ID,
				UID:       sc.tag.UID,
				Name:      sc.tag.Name,
				Slug:      sc.tag.Slug,
				Score:     sc.score,
				PostCount: count,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

// enrichWarnings fills post counts on warning matches after a batch commit.
// Best effort: a failure here leaves counts at zero rather than failing the
// committed batch.
func (s *service) enrichWarnings(ctx context.Context, log *slog.Logger, warnings []SimilarityWarning) {
	for _, w := range warnings {
		for _, m := range w.SimilarTo {
			count, err := s.store.CountTagPosts(ctx, m.ID)
			if err != nil {
				log.Warn("post count enrichment failed", "error", err, slog.Int(observability.LogFieldTagID, int(m.ID)))
				return
			}
			m.PostCount = count
		}
	}
}

func toSimilarTags(scored []scoredTag) []*SimilarTag {
	matches := make([]*SimilarTag, 0, len(scored))
	for _, sc := range scored {
		matches = append(matches, &SimilarTag{
			ID:    sc.tag.ID,
			UID:   sc.tag.UID,
			Name:  sc.tag.Name,
			Slug:  sc.tag.Slug,
			Score: sc.score,
		})
	}
	return matches
}
