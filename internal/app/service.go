package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"planmark/api/internal/annotation"
	"planmark/api/internal/attachments"
	"planmark/api/internal/blockdiff"
	"planmark/api/internal/blocks"
	"planmark/api/internal/config"
	"planmark/api/internal/export"
	"planmark/api/internal/feedback"
	"planmark/api/internal/gitrepo"
	"planmark/api/internal/markers"
	"planmark/api/internal/search"
	"planmark/api/internal/share"
	"planmark/api/internal/store"
	"planmark/api/internal/util"
)

type dataStore interface {
	InsertPlan(context.Context, store.Plan) error
	GetPlan(context.Context, string) (store.Plan, error)
	ListPlans(context.Context) ([]store.Plan, error)
	UpdatePlanVersion(context.Context, string, string, string, string) error
	InsertAnnotation(context.Context, string, annotation.Annotation) error
	ListAnnotations(context.Context, string) ([]annotation.Annotation, error)
	DeleteAnnotation(context.Context, string, string) (bool, error)
	InsertDecision(context.Context, store.Decision) (store.Decision, error)
	ListDecisions(context.Context, string, int) ([]store.Decision, error)
	Ping(ctx context.Context) error
}

type gitService interface {
	EnsurePlanRepo(string, string, string) (store.CommitInfo, error)
	CommitVersion(string, string, string, string) (store.CommitInfo, bool, error)
	HeadVersion(string) (string, store.CommitInfo, error)
	GetVersion(string, string) (string, store.CommitInfo, error)
	History(string, int) ([]store.CommitInfo, error)
	SaveSnapshot(string, string, string, gitrepo.Decision) (store.CommitInfo, string, error)
}

type shareStore interface {
	Save(context.Context, share.Payload) (string, string, error)
	Load(context.Context, string) (share.Payload, error)
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexPlan(search.PlanRecord, []search.BlockRecord, []string)
	IndexAnnotation(search.AnnotationRecord)
	DeleteAnnotation(string)
}

type attachmentStore interface {
	Upload(context.Context, string, string, string, io.Reader, int64) (string, error)
	Open(context.Context, string) (attachments.Object, error)
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type Service struct {
	cfg         config.Config
	store       dataStore
	git         gitService
	shares      shareStore
	search      searchService
	attachments attachmentStore
	exporter    exporter
}

func New(cfg config.Config, dataStore *store.PostgresStore, gitService *gitrepo.Service, searchService *search.Service) *Service {
	s := &Service{
		cfg:   cfg,
		store: dataStore,
		git:   gitService,
	}
	if searchService != nil {
		s.search = searchService
	}
	s.exporter = export.NewService(exportSource{service: s})
	return s
}

// WithShareStore enables share links.
func (s *Service) WithShareStore(shares *share.RedisStore) *Service {
	if shares != nil {
		s.shares = shares
	}
	return s
}

// WithAttachments enables image uploads.
func (s *Service) WithAttachments(objects *attachments.Store) *Service {
	if objects.Enabled() {
		s.attachments = objects
	}
	return s
}

type PlanSummary struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	CurrentVersion string    `json:"currentVersion"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type VersionView struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type PlanDetail struct {
	Plan        PlanSummary             `json:"plan"`
	Markdown    string                  `json:"markdown"`
	Frontmatter blocks.Frontmatter      `json:"frontmatter"`
	Blocks      []blocks.Block          `json:"blocks"`
	Annotations []annotation.Annotation `json:"annotations"`
}

type VersionResult struct {
	Plan    PlanSummary           `json:"plan"`
	Version VersionView           `json:"version"`
	Changed bool                  `json:"changed"`
	Blocks  []blocks.Block        `json:"blocks"`
	Diff    []blockdiff.BlockDiff `json:"diff"`
	Summary blockdiff.Summary     `json:"summary"`
}

type DiffResult struct {
	From    string                `json:"from"`
	To      string                `json:"to"`
	Rows    []blockdiff.BlockDiff `json:"rows"`
	Summary blockdiff.Summary     `json:"summary"`
}

type DecisionView struct {
	ID           int64     `json:"id"`
	Outcome      string    `json:"outcome"`
	Feedback     string    `json:"feedback,omitempty"`
	DecidedBy    string    `json:"decidedBy"`
	DecidedAt    time.Time `json:"decidedAt"`
	CommitHash   string    `json:"commitHash"`
	Tag          string    `json:"tag"`
	MarkersAdded int       `json:"markersAdded"`
}

type ApproveResult struct {
	markers.InjectResult
	Version  VersionView  `json:"version"`
	Decision DecisionView `json:"decision"`
}

type DenyResult struct {
	Feedback string       `json:"feedback"`
	Version  VersionView  `json:"version"`
	Decision DecisionView `json:"decision"`
}

type ShareResult struct {
	ID      string `json:"id"`
	Encoded string `json:"encoded"`
}

func (s *Service) CreatePlan(ctx context.Context, markdown, author string) (PlanDetail, error) {
	if strings.TrimSpace(markdown) == "" {
		return PlanDetail{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "markdown is required", nil)
	}

	doc := blocks.ParseDocument(markdown)
	planID := util.NewID("plan")
	info, err := s.git.EnsurePlanRepo(planID, markdown, author)
	if err != nil {
		return PlanDetail{}, fmt.Errorf("create plan repo: %w", err)
	}

	plan := store.Plan{
		ID:          planID,
		Slug:        gitrepo.GenerateSlug(markdown),
		Title:       planTitle(doc),
		Status:      store.PlanStatusInReview,
		CurrentHash: info.Hash,
		CreatedBy:   author,
		CreatedAt:   info.CreatedAt,
		UpdatedAt:   info.CreatedAt,
	}
	if err := s.store.InsertPlan(ctx, plan); err != nil {
		return PlanDetail{}, fmt.Errorf("insert plan: %w", err)
	}
	s.indexPlan(plan, doc.Blocks, nil)

	return PlanDetail{
		Plan:        toPlanSummary(plan),
		Markdown:    markdown,
		Frontmatter: doc.Frontmatter,
		Blocks:      nonNilBlocks(doc.Blocks),
		Annotations: []annotation.Annotation{},
	}, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	plans, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]PlanSummary, 0, len(plans))
	for _, plan := range plans {
		items = append(items, toPlanSummary(plan))
	}
	return items, nil
}

func (s *Service) GetPlan(ctx context.Context, planID string) (PlanDetail, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return PlanDetail{}, err
	}
	markdown, _, err := s.git.HeadVersion(planID)
	if err != nil {
		return PlanDetail{}, fmt.Errorf("read plan: %w", err)
	}
	annotations, err := s.store.ListAnnotations(ctx, planID)
	if err != nil {
		return PlanDetail{}, err
	}

	doc := blocks.ParseDocument(markdown)
	return PlanDetail{
		Plan:        toPlanSummary(plan),
		Markdown:    markdown,
		Frontmatter: doc.Frontmatter,
		Blocks:      nonNilBlocks(doc.Blocks),
		Annotations: nonNilAnnotations(annotations),
	}, nil
}

// AddVersion commits a revised plan and diffs it against the previous head.
// A revision always returns the plan to review.
func (s *Service) AddVersion(ctx context.Context, planID, markdown, author string) (VersionResult, error) {
	if strings.TrimSpace(markdown) == "" {
		return VersionResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "markdown is required", nil)
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return VersionResult{}, err
	}
	previous, _, err := s.git.HeadVersion(planID)
	if err != nil {
		return VersionResult{}, fmt.Errorf("read plan: %w", err)
	}

	info, changed, err := s.git.CommitVersion(planID, markdown, author, "Revise plan")
	if err != nil {
		return VersionResult{}, fmt.Errorf("commit version: %w", err)
	}

	oldBlocks := blocks.Parse(previous)
	doc := blocks.ParseDocument(markdown)
	rows := blockdiff.DiffWithThreshold(oldBlocks, doc.Blocks, s.modifyThreshold())

	if changed {
		plan.CurrentHash = info.Hash
		plan.Title = planTitle(doc)
		plan.Status = store.PlanStatusInReview
		plan.UpdatedAt = info.CreatedAt
		if err := s.store.UpdatePlanVersion(ctx, planID, plan.CurrentHash, plan.Title, plan.Status); err != nil {
			return VersionResult{}, err
		}
		s.indexPlan(plan, doc.Blocks, staleBlockIDs(planID, oldBlocks, doc.Blocks))
	}

	return VersionResult{
		Plan:    toPlanSummary(plan),
		Version: toVersionView(info),
		Changed: changed,
		Blocks:  nonNilBlocks(doc.Blocks),
		Diff:    rows,
		Summary: blockdiff.Summarize(rows),
	}, nil
}

func (s *Service) History(ctx context.Context, planID string) ([]VersionView, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	history, err := s.git.History(planID, 0)
	if err != nil {
		return nil, err
	}
	items := make([]VersionView, 0, len(history))
	for _, info := range history {
		items = append(items, toVersionView(info))
	}
	return items, nil
}

// Diff compares two versions. An empty to means the head version and an empty
// from means the version just before to.
func (s *Service) Diff(ctx context.Context, planID, fromHash, toHash string) (DiffResult, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return DiffResult{}, err
	}

	var toMarkdown string
	var toInfo store.CommitInfo
	var err error
	if strings.TrimSpace(toHash) == "" {
		toMarkdown, toInfo, err = s.git.HeadVersion(planID)
	} else {
		toMarkdown, toInfo, err = s.git.GetVersion(planID, toHash)
	}
	if err != nil {
		return DiffResult{}, err
	}

	if strings.TrimSpace(fromHash) == "" {
		fromHash, err = s.parentVersion(planID, toInfo.Hash)
		if err != nil {
			return DiffResult{}, err
		}
	}
	fromMarkdown, fromInfo, err := s.git.GetVersion(planID, fromHash)
	if err != nil {
		return DiffResult{}, err
	}

	rows := blockdiff.DiffWithThreshold(blocks.Parse(fromMarkdown), blocks.Parse(toMarkdown), s.modifyThreshold())
	return DiffResult{
		From:    fromInfo.Hash,
		To:      toInfo.Hash,
		Rows:    rows,
		Summary: blockdiff.Summarize(rows),
	}, nil
}

// parentVersion returns the version committed before hash, or hash itself for
// the first version.
func (s *Service) parentVersion(planID, hash string) (string, error) {
	history, err := s.git.History(planID, 0)
	if err != nil {
		return "", err
	}
	for i, info := range history {
		if info.Hash == hash {
			if i+1 < len(history) {
				return history[i+1].Hash, nil
			}
			return hash, nil
		}
	}
	return "", fmt.Errorf("%w: %s", gitrepo.ErrVersionNotFound, hash)
}

func (s *Service) ListAnnotations(ctx context.Context, planID string) ([]annotation.Annotation, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	items, err := s.store.ListAnnotations(ctx, planID)
	if err != nil {
		return nil, err
	}
	return nonNilAnnotations(items), nil
}

// AddAnnotation validates and stores reviewer feedback against the current
// version of a plan.
func (s *Service) AddAnnotation(ctx context.Context, planID string, input annotation.Annotation) (annotation.Annotation, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return annotation.Annotation{}, err
	}
	if strings.TrimSpace(input.ID) == "" {
		input.ID = util.NewID("ann")
	}
	if input.CreatedAt == 0 {
		input.CreatedAt = time.Now().UnixMilli()
	}
	if input.Type == annotation.TypeGlobalComment {
		input.BlockID = ""
	}
	if err := annotation.Validate(input); err != nil {
		return annotation.Annotation{}, err
	}

	if input.BlockID != "" {
		markdown, _, err := s.git.HeadVersion(planID)
		if err != nil {
			return annotation.Annotation{}, fmt.Errorf("read plan: %w", err)
		}
		if !hasBlock(blocks.Parse(markdown), input.BlockID) {
			return annotation.Annotation{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "blockId does not match a block of the current version", map[string]string{
				"blockId": "unknown block",
			})
		}
	}

	if err := s.store.InsertAnnotation(ctx, planID, input); err != nil {
		return annotation.Annotation{}, fmt.Errorf("insert annotation: %w", err)
	}
	if s.search != nil {
		s.search.IndexAnnotation(search.AnnotationRecord{
			ID:           search.AnnotationDocumentID(planID, input.ID),
			PlanID:       planID,
			BlockID:      input.BlockID,
			AnnotationID: input.ID,
			Type:         string(input.Type),
			Tag:          string(input.Tag),
			OriginalText: input.OriginalText,
			Text:         input.Text,
		})
	}
	return input, nil
}

func (s *Service) DeleteAnnotation(ctx context.Context, planID, annotationID string) error {
	deleted, err := s.store.DeleteAnnotation(ctx, planID, annotationID)
	if err != nil {
		return err
	}
	if !deleted {
		return sql.ErrNoRows
	}
	if s.search != nil {
		s.search.DeleteAnnotation(search.AnnotationDocumentID(planID, annotationID))
	}
	return nil
}

// Feedback renders the current annotations as the agent-facing report.
// references are images that apply to the review as a whole.
func (s *Service) Feedback(ctx context.Context, planID string, references []string) (string, error) {
	planBlocks, annotations, err := s.currentReview(ctx, planID)
	if err != nil {
		return "", err
	}
	return feedback.Export(planBlocks, annotations, references...), nil
}

func (s *Service) Markers(ctx context.Context, planID string) ([]markers.ValidationMarker, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	markdown, _, err := s.git.HeadVersion(planID)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return markers.Extract(markdown), nil
}

// Approve writes validation markers for sign-off annotations into the plan,
// commits the result as a tagged snapshot and records the decision.
func (s *Service) Approve(ctx context.Context, planID, author string) (ApproveResult, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return ApproveResult{}, err
	}
	markdown, _, err := s.git.HeadVersion(planID)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("read plan: %w", err)
	}
	annotations, err := s.store.ListAnnotations(ctx, planID)
	if err != nil {
		return ApproveResult{}, err
	}

	injected := markers.Inject(markdown, annotations)
	info, tag, err := s.git.SaveSnapshot(planID, injected.Markdown, author, gitrepo.DecisionApproved)
	if err != nil {
		return ApproveResult{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.store.UpdatePlanVersion(ctx, planID, info.Hash, plan.Title, store.PlanStatusApproved); err != nil {
		return ApproveResult{}, err
	}
	decision, err := s.store.InsertDecision(ctx, store.Decision{
		PlanID:       planID,
		Outcome:      store.PlanStatusApproved,
		DecidedBy:    author,
		CommitHash:   info.Hash,
		Tag:          tag,
		MarkersAdded: injected.MarkersAdded,
	})
	if err != nil {
		return ApproveResult{}, fmt.Errorf("record decision: %w", err)
	}

	plan.CurrentHash = info.Hash
	plan.Status = store.PlanStatusApproved
	s.indexPlan(plan, blocks.Parse(injected.Markdown), nil)

	return ApproveResult{
		InjectResult: injected,
		Version:      toVersionView(info),
		Decision:     toDecisionView(decision),
	}, nil
}

// Deny records the feedback report as the outcome of the review round.
func (s *Service) Deny(ctx context.Context, planID, author string, references []string) (DenyResult, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return DenyResult{}, err
	}
	markdown, _, err := s.git.HeadVersion(planID)
	if err != nil {
		return DenyResult{}, fmt.Errorf("read plan: %w", err)
	}
	annotations, err := s.store.ListAnnotations(ctx, planID)
	if err != nil {
		return DenyResult{}, err
	}

	report := feedback.Export(blocks.Parse(markdown), annotations, references...)
	info, tag, err := s.git.SaveSnapshot(planID, markdown, author, gitrepo.DecisionDenied)
	if err != nil {
		return DenyResult{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.store.UpdatePlanVersion(ctx, planID, info.Hash, plan.Title, store.PlanStatusDenied); err != nil {
		return DenyResult{}, err
	}
	decision, err := s.store.InsertDecision(ctx, store.Decision{
		PlanID:     planID,
		Outcome:    store.PlanStatusDenied,
		Feedback:   report,
		DecidedBy:  author,
		CommitHash: info.Hash,
		Tag:        tag,
	})
	if err != nil {
		return DenyResult{}, fmt.Errorf("record decision: %w", err)
	}

	return DenyResult{
		Feedback: report,
		Version:  toVersionView(info),
		Decision: toDecisionView(decision),
	}, nil
}

func (s *Service) Decisions(ctx context.Context, planID string) ([]DecisionView, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	decisions, err := s.store.ListDecisions(ctx, planID, 100)
	if err != nil {
		return nil, err
	}
	items := make([]DecisionView, 0, len(decisions))
	for _, decision := range decisions {
		items = append(items, toDecisionView(decision))
	}
	return items, nil
}

func (s *Service) UploadAttachment(ctx context.Context, planID, filename, contentType string, r io.Reader, size int64) (string, error) {
	if s.attachments == nil {
		return "", attachments.ErrDisabled
	}
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return "", err
	}
	return s.attachments.Upload(ctx, planID, filename, contentType, r, size)
}

func (s *Service) OpenAttachment(ctx context.Context, path string) (attachments.Object, error) {
	if s.attachments == nil {
		return attachments.Object{}, attachments.ErrDisabled
	}
	return s.attachments.Open(ctx, path)
}

func (s *Service) ExportPlan(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.exporter.Export(ctx, req)
}

// CreateShare stores a plan and its annotations under a short link.
func (s *Service) CreateShare(ctx context.Context, payload share.Payload) (ShareResult, error) {
	if s.shares == nil {
		return ShareResult{}, domainError(http.StatusServiceUnavailable, "SHARE_UNAVAILABLE", "Share links are not configured", nil)
	}
	for _, item := range payload.Annotations {
		if err := annotation.Validate(item); err != nil {
			return ShareResult{}, err
		}
	}
	id, encoded, err := s.shares.Save(ctx, payload)
	if err != nil {
		return ShareResult{}, err
	}
	return ShareResult{ID: id, Encoded: encoded}, nil
}

func (s *Service) GetShare(ctx context.Context, id string) (share.Payload, error) {
	if s.shares == nil {
		return share.Payload{}, domainError(http.StatusServiceUnavailable, "SHARE_UNAVAILABLE", "Share links are not configured", nil)
	}
	return s.shares.Load(ctx, id)
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil || strings.TrimSpace(q.Text) == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) currentReview(ctx context.Context, planID string) ([]blocks.Block, []annotation.Annotation, error) {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return nil, nil, err
	}
	markdown, _, err := s.git.HeadVersion(planID)
	if err != nil {
		return nil, nil, fmt.Errorf("read plan: %w", err)
	}
	annotations, err := s.store.ListAnnotations(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	return blocks.Parse(markdown), annotations, nil
}

func (s *Service) modifyThreshold() float64 {
	if s.cfg.ModifyThreshold <= 0 || s.cfg.ModifyThreshold > 1 {
		return blockdiff.DefaultModifyThreshold
	}
	return s.cfg.ModifyThreshold
}

func (s *Service) indexPlan(plan store.Plan, planBlocks []blocks.Block, stale []string) {
	if s.search == nil {
		return
	}
	records := make([]search.BlockRecord, 0, len(planBlocks))
	for _, block := range planBlocks {
		records = append(records, search.BlockRecord{
			ID:      search.BlockDocumentID(plan.ID, block.ID),
			PlanID:  plan.ID,
			BlockID: block.ID,
			Type:    string(block.Type),
			Content: block.Content,
			Order:   block.Order,
		})
	}
	s.search.IndexPlan(search.PlanRecord{
		ID:     plan.ID,
		Title:  plan.Title,
		Slug:   plan.Slug,
		Status: plan.Status,
	}, records, stale)
}

// exportSource reads plans for the export service.
type exportSource struct {
	service *Service
}

func (e exportSource) GetPlanInfo(ctx context.Context, planID string) (export.PlanInfo, error) {
	plan, err := e.service.store.GetPlan(ctx, planID)
	if err != nil {
		return export.PlanInfo{}, err
	}
	return export.PlanInfo{
		ID:        plan.ID,
		Title:     plan.Title,
		Status:    plan.Status,
		Author:    plan.CreatedBy,
		UpdatedAt: plan.UpdatedAt,
	}, nil
}

func (e exportSource) GetPlanMarkdown(ctx context.Context, planID, version string) (string, error) {
	if version == "" || version == "latest" {
		markdown, _, err := e.service.git.HeadVersion(planID)
		return markdown, err
	}
	markdown, _, err := e.service.git.GetVersion(planID, version)
	return markdown, err
}

func (e exportSource) ListAnnotations(ctx context.Context, planID string) ([]annotation.Annotation, error) {
	return e.service.store.ListAnnotations(ctx, planID)
}

func planTitle(doc blocks.Document) string {
	if title := strings.TrimSpace(doc.Frontmatter.String("title")); title != "" {
		return title
	}
	for _, block := range doc.Blocks {
		if block.Type == blocks.TypeHeading && strings.TrimSpace(block.Content) != "" {
			return block.Content
		}
	}
	return "Untitled plan"
}

// staleBlockIDs lists index keys of blocks that no longer exist. Block IDs are
// positional, so only the tail beyond the new length disappears.
func staleBlockIDs(planID string, oldBlocks, newBlocks []blocks.Block) []string {
	if len(oldBlocks) <= len(newBlocks) {
		return nil
	}
	ids := make([]string, 0, len(oldBlocks)-len(newBlocks))
	for _, block := range oldBlocks[len(newBlocks):] {
		ids = append(ids, search.BlockDocumentID(planID, block.ID))
	}
	return ids
}

func hasBlock(planBlocks []blocks.Block, blockID string) bool {
	for _, block := range planBlocks {
		if block.ID == blockID {
			return true
		}
	}
	return false
}

func toPlanSummary(plan store.Plan) PlanSummary {
	return PlanSummary{
		ID:             plan.ID,
		Slug:           plan.Slug,
		Title:          plan.Title,
		Status:         plan.Status,
		CurrentVersion: plan.CurrentHash,
		CreatedBy:      plan.CreatedBy,
		CreatedAt:      plan.CreatedAt,
		UpdatedAt:      plan.UpdatedAt,
	}
}

func toVersionView(info store.CommitInfo) VersionView {
	return VersionView{
		Hash:      info.Hash,
		Message:   info.Message,
		Author:    info.Author,
		CreatedAt: info.CreatedAt,
	}
}

func toDecisionView(decision store.Decision) DecisionView {
	return DecisionView{
		ID:           decision.ID,
		Outcome:      decision.Outcome,
		Feedback:     decision.Feedback,
		DecidedBy:    decision.DecidedBy,
		DecidedAt:    decision.DecidedAt,
		CommitHash:   decision.CommitHash,
		Tag:          decision.Tag,
		MarkersAdded: decision.MarkersAdded,
	}
}

func nonNilBlocks(items []blocks.Block) []blocks.Block {
	if items == nil {
		return []blocks.Block{}
	}
	return items
}

func nonNilAnnotations(items []annotation.Annotation) []annotation.Annotation {
	if items == nil {
		return []annotation.Annotation{}
	}
	return items
}
