// Package gitrepo keeps named checkpoints of presentations in one git
// repository per presentation.
package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"atomdeck/api/internal/document"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	contentFile = "presentation.json"
	mainBranch  = "main"
)

var ErrNoRepository = errors.New("presentation has no checkpoints")

type CommitInfo struct {
	Hash          string    `json:"hash"`
	Name          string    `json:"name"`
	Author        string    `json:"author"`
	CreatedAt     time.Time `json:"createdAt"`
	SlidesAdded   int       `json:"slidesAdded"`
	SlidesRemoved int       `json:"slidesRemoved"`
}

type Service struct {
	baseDir string
	now     func() time.Time
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Checkpoint commits p to its repository under the given name and tags the
// commit. The repository is created on first use.
func (s *Service) Checkpoint(p *document.Presentation, name, author string) (CommitInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Checkpoint " + s.now().UTC().Format(time.RFC3339)
	}

	lock := s.presentationLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(p.ID)
	if err != nil {
		return CommitInfo{}, err
	}

	var previous *document.Presentation
	if head, err := repo.Head(); err == nil {
		if parent, err := repo.CommitObject(head.Hash()); err == nil {
			previous, _ = readPresentation(parent)
		}
	}

	hash, err := s.commit(repo, p, author, name)
	if err != nil {
		return CommitInfo{}, err
	}

	if _, err := repo.CreateTag(tagName(hash), hash, &git.CreateTagOptions{
		Tagger:  signature(author, s.now()),
		Message: name,
	}); err != nil && !errors.Is(err, git.ErrTagExists) {
		return CommitInfo{}, fmt.Errorf("create tag: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	info := toCommitInfo(commitObj)
	info.SlidesAdded, info.SlidesRemoved = DiffSlides(previous, p)
	return info, nil
}

// Restore loads the presentation stored at hash.
func (s *Service) Restore(presentationID, hash string) (*document.Presentation, error) {
	lock := s.presentationLock(presentationID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(presentationID)
	if err != nil {
		return nil, err
	}
	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readPresentation(commitObj)
}

// History lists checkpoints newest first.
func (s *Service) History(presentationID string, limit int) ([]CommitInfo, error) {
	lock := s.presentationLock(presentationID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(presentationID)
	if errors.Is(err, ErrNoRepository) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, err
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

	items := make([]CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

func (s *Service) repoPath(presentationID string) string {
	return filepath.Join(s.baseDir, filepath.Base(presentationID))
}

func (s *Service) presentationLock(presentationID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[presentationID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[presentationID] = lock
	return lock
}

func (s *Service) open(presentationID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(presentationID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoRepository
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(presentationID string) (*git.Repository, error) {
	repo, err := s.open(presentationID)
	if err == nil || !errors.Is(err, ErrNoRepository) {
		return repo, err
	}

	path := s.repoPath(presentationID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", mainBranch, err)
	}
	return repo, nil
}

func (s *Service) commit(repo *git.Repository, p *document.Presentation, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal presentation: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, contentFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add presentation: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            signature(author, s.now()),
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit presentation: %w", err)
	}
	return hash, nil
}

func readPresentation(commitObj *object.Commit) (*document.Presentation, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content bytes: %w", err)
	}
	return document.Unmarshal(raw)
}

// DiffSlides counts slides present only in to (added) and only in from
// (removed), matched by id. A nil from counts every slide as added.
func DiffSlides(from, to *document.Presentation) (added, removed int) {
	before := map[string]struct{}{}
	if from != nil {
		for _, s := range from.Slides {
			before[s.ID] = struct{}{}
		}
	}
	for _, s := range to.Slides {
		if _, ok := before[s.ID]; ok {
			delete(before, s.ID)
			continue
		}
		added++
	}
	return added, len(before)
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Name:      strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func tagName(hash plumbing.Hash) string {
	return "checkpoint-" + hash.String()[:7]
}

func signature(author string, when time.Time) *object.Signature {
	return &object.Signature{
		Name:  author,
		Email: fmt.Sprintf("%s@users.atomdeck.local", sanitizeEmail(author)),
		When:  when,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
