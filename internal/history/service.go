// Package history keeps an append-only snapshot trail for each project in a
// per-project git repository. Every mutation commits the full project
// document, so any past state can be inspected or diffed with plain git
// tooling.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scopilot/api/internal/scoping"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const snapshotFile = "project.json"

type Entry struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

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

// Snapshot commits the current project state. The repository is created on
// first use.
func (s *Service) Snapshot(project scoping.Project, author, message string) (Entry, error) {
	lock := s.projectLock(project.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(project.ID)
	if err != nil {
		return Entry{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Entry{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("marshal project snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return Entry{}, fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return Entry{}, fmt.Errorf("git add snapshot: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.scopilot.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return Entry{}, fmt.Errorf("commit snapshot: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Entry{}, fmt.Errorf("read commit object: %w", err)
	}
	return toEntry(commitObj), nil
}

// History lists snapshot entries, newest first. A missing repository means
// no snapshots were taken yet.
func (s *Service) History(projectID string, limit int) ([]Entry, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(projectID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	entries := make([]Entry, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		entries = append(entries, toEntry(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

// GetSnapshot reads the project state recorded at the given commit.
func (s *Service) GetSnapshot(projectID, hash string) (scoping.Project, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(projectID))
	if err != nil {
		return scoping.Project{}, fmt.Errorf("open repo: %w", err)
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return scoping.Project{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return scoping.Project{}, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return scoping.Project{}, fmt.Errorf("load snapshot from commit: %w", err)
	}
	reader, err := file.Reader()
	if err != nil {
		return scoping.Project{}, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return scoping.Project{}, fmt.Errorf("read snapshot bytes: %w", err)
	}

	var project scoping.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return scoping.Project{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return project, nil
}

// Remove deletes a project's snapshot repository.
func (s *Service) Remove(projectID string) error {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(projectID)); err != nil {
		return fmt.Errorf("remove snapshot repo: %w", err)
	}
	return nil
}

func (s *Service) openOrInit(projectID string) (*git.Repository, error) {
	path := s.repoPath(projectID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(projectID string) string {
	return filepath.Join(s.baseDir, projectID)
}

func (s *Service) projectLock(projectID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[projectID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[projectID] = lock
	return lock
}

func toEntry(commitObj *object.Commit) Entry {
	return Entry{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
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
