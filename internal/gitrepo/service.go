package gitrepo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"planmark/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// PlanFile is the file every version of a plan is committed as.
const PlanFile = "plan.md"

const mainBranch = "main"

var ErrVersionNotFound = errors.New("version not found")

// Decision labels the final snapshot of a review round.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
)

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// EnsurePlanRepo creates the repository of a plan with markdown as its first
// version. It is a no-op when the repository already exists.
func (s *Service) EnsurePlanRepo(planID, markdown, author string) (store.CommitInfo, error) {
	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(planID)
	if _, err := os.Stat(path); err == nil {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
		}
		commitObj, err := headCommit(repo)
		if err != nil {
			return store.CommitInfo{}, err
		}
		return toCommitInfo(commitObj), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return store.CommitInfo{}, fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return store.CommitInfo{}, fmt.Errorf("create repo dir: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))); err != nil {
		return store.CommitInfo{}, fmt.Errorf("set HEAD to main: %w", err)
	}

	hash, err := s.commit(repo, markdown, author, "Import plan", false)
	if err != nil {
		return store.CommitInfo{}, err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// CommitVersion records markdown as the next version. When it equals the
// current head no commit is made and changed is false.
func (s *Service) CommitVersion(planID, markdown, author, message string) (info store.CommitInfo, changed bool, err error) {
	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(planID))
	if err != nil {
		return store.CommitInfo{}, false, fmt.Errorf("open repo: %w", err)
	}

	head, err := headCommit(repo)
	if err != nil {
		return store.CommitInfo{}, false, err
	}
	current, err := readPlanFromCommit(head)
	if err != nil {
		return store.CommitInfo{}, false, err
	}
	if current == markdown {
		return toCommitInfo(head), false, nil
	}

	hash, err := s.commit(repo, markdown, author, message, false)
	if err != nil {
		return store.CommitInfo{}, false, err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), true, nil
}

// HeadVersion returns the latest version of a plan.
func (s *Service) HeadVersion(planID string) (string, store.CommitInfo, error) {
	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(planID))
	if err != nil {
		return "", store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	commitObj, err := headCommit(repo)
	if err != nil {
		return "", store.CommitInfo{}, err
	}
	markdown, err := readPlanFromCommit(commitObj)
	if err != nil {
		return "", store.CommitInfo{}, err
	}
	return markdown, toCommitInfo(commitObj), nil
}

// GetVersion returns the plan text at hash, which may be abbreviated.
func (s *Service) GetVersion(planID, hash string) (string, store.CommitInfo, error) {
	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(planID))
	if err != nil {
		return "", store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return "", store.CommitInfo{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return "", store.CommitInfo{}, fmt.Errorf("%w: %s", ErrVersionNotFound, hash)
	}
	if err != nil {
		return "", store.CommitInfo{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	markdown, err := readPlanFromCommit(commitObj)
	if err != nil {
		return "", store.CommitInfo{}, err
	}
	return markdown, toCommitInfo(commitObj), nil
}

// History lists versions newest first. A limit of zero returns everything.
func (s *Service) History(planID string, limit int) ([]store.CommitInfo, error) {
	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(planID))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", mainBranch, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.CommitInfo, 0, max(limit, 0))
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// SaveSnapshot commits the final text of a review round and tags it
// "<decision>-<n>", where n counts the rounds with that decision so far.
func (s *Service) SaveSnapshot(planID, markdown, author string, decision Decision) (store.CommitInfo, string, error) {
	lock := s.planLock(planID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(planID))
	if err != nil {
		return store.CommitInfo{}, "", fmt.Errorf("open repo: %w", err)
	}

	var message string
	switch decision {
	case DecisionApproved:
		message = "Approve plan"
	case DecisionDenied:
		message = "Deny plan"
	default:
		return store.CommitInfo{}, "", fmt.Errorf("unknown decision %q", decision)
	}
	hash, err := s.commit(repo, markdown, author, message, true)
	if err != nil {
		return store.CommitInfo{}, "", err
	}

	number, err := countTags(repo, string(decision)+"-")
	if err != nil {
		return store.CommitInfo{}, "", err
	}
	tag := fmt.Sprintf("%s-%d", decision, number+1)
	_, err = repo.CreateTag(tag, hash, &git.CreateTagOptions{
		Tagger: &object.Signature{
			Name:  "Planmark",
			Email: "planmark@localhost",
			When:  time.Now(),
		},
		Message: tag,
	})
	if err != nil && !errors.Is(err, git.ErrTagExists) {
		return store.CommitInfo{}, "", fmt.Errorf("create tag: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, "", fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), tag, nil
}

func (s *Service) repoPath(planID string) string {
	return filepath.Join(s.baseDir, planID)
}

func (s *Service) planLock(planID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[planID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[planID] = lock
	return lock
}

func (s *Service) commit(repo *git.Repository, markdown, author, message string, allowEmpty bool) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, PlanFile), []byte(markdown), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", PlanFile, err)
	}
	if _, err := worktree.Add(PlanFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add plan: %w", err)
	}

	if author == "" {
		author = "reviewer"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: allowEmpty,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.planmark.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit plan: %w", err)
	}
	return hash, nil
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", mainBranch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return commitObj, nil
}

func readPlanFromCommit(commitObj *object.Commit) (string, error) {
	file, err := commitObj.File(PlanFile)
	if err != nil {
		return "", fmt.Errorf("load %s from commit: %w", PlanFile, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("read plan contents: %w", err)
	}
	return contents, nil
}

func countTags(repo *git.Repository, prefix string) (int, error) {
	iter, err := repo.Tags()
	if err != nil {
		return 0, fmt.Errorf("list tags: %w", err)
	}
	defer iter.Close()

	count := 0
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().Short(), prefix) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("iterate tags: %w", err)
	}
	return count, nil
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	bytes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			bytes = append(bytes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			bytes = append(bytes, '.')
		}
	}
	if len(bytes) == 0 {
		return "user"
	}
	return string(bytes)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	if strings.TrimSpace(hash) == "" {
		return plumbing.ZeroHash, fmt.Errorf("%w: empty hash", ErrVersionNotFound)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: resolve hash %s: %v", ErrVersionNotFound, hash, err)
	}
	return *resolved, nil
}
