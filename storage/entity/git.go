package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"

	"github.com/tonelab/venue/config"
)

const (
	defaultGitBranch      = "main"
	defaultGitAuthorName  = "venue"
	defaultGitAuthorEmail = "venue@localhost"
)

// GitEntityStore commits each record as <path>/<collection>/<id>.json on a branch of
// a remote repository. Every operation fast-forwards to the remote first and every
// mutation is pushed before it returns.
type GitEntityStore struct {
	cfg    config.GitEntityStrategy
	auth   transport.AuthMethod
	repo   *git.Repository
	tmpDir string
	mu     sync.Mutex
}

func NewGitEntityStore(cfg *config.GitEntityStrategy) (*GitEntityStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("git entities config is nil")
	}

	c := *cfg
	if c.Branch == "" {
		c.Branch = defaultGitBranch
	}
	if c.AuthorName == "" {
		c.AuthorName = defaultGitAuthorName
	}
	if c.AuthorEmail == "" {
		c.AuthorEmail = defaultGitAuthorEmail
	}

	auth, err := buildGitAuth(&c.Auth)
	if err != nil {
		return nil, err
	}

	tmpDir, repo, err := freshClone(&c, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", c.Repository, err)
	}

	return &GitEntityStore{cfg: c, auth: auth, repo: repo, tmpDir: tmpDir}, nil
}

func freshClone(cfg *config.GitEntityStrategy, auth transport.AuthMethod) (string, *git.Repository, error) {
	tmpDir, err := os.MkdirTemp("", "venue-entities-*")
	if err != nil {
		return "", nil, err
	}

	repo, err := git.PlainClone(tmpDir, &git.CloneOptions{
		URL:           cfg.Repository,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(cfg.Branch),
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", nil, err
	}

	return tmpDir, repo, nil
}

func buildGitAuth(cfg *config.GitEntityAuth) (transport.AuthMethod, error) {
	switch cfg.Method {
	case "", "none":
		return nil, nil
	case "plain":
		if cfg.Plain == nil {
			return nil, fmt.Errorf("git plain authentication requires a username and password")
		}
		return &http.BasicAuth{
			Username: cfg.Plain.Username,
			Password: cfg.Plain.Password,
		}, nil
	case "ssh":
		if cfg.Ssh == nil {
			return nil, fmt.Errorf("git ssh authentication requires a private key")
		}

		user := cfg.Ssh.Username
		if user == "" {
			user = "git"
		}

		keys, err := ssh.NewPublicKeysFromFile(user, cfg.Ssh.PrivateKeyFilePath, cfg.Ssh.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare git ssh authentication: %w", err)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("invalid git authentication method %v", cfg.Method)
	}
}

// reinit replaces the working clone with a fresh one. Local commits that never
// reached the remote are discarded.
func (s *GitEntityStore) reinit() error {
	_ = os.RemoveAll(s.tmpDir)

	tmpDir, repo, err := freshClone(&s.cfg, s.auth)
	if err != nil {
		return err
	}

	s.tmpDir = tmpDir
	s.repo = repo
	return nil
}

// Close removes the working clone.
func (s *GitEntityStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tmpDir == "" {
		return nil
	}

	if err := os.RemoveAll(s.tmpDir); err != nil {
		return fmt.Errorf("failed to remove git working copy: %w", err)
	}

	s.tmpDir = ""
	return nil
}

func (s *GitEntityStore) fetchAndFastForward(ctx context.Context) error {
	if s.tmpDir == "" {
		return fmt.Errorf("git entity store is closed")
	}

	branch := plumbing.NewBranchReferenceName(s.cfg.Branch)
	var lastErr error

	for range 3 {
		if err := s.repo.FetchContext(ctx, &git.FetchOptions{Auth: s.auth}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			lastErr = err
			s.retry()
			continue
		}

		remoteRef, err := s.repo.Reference(plumbing.NewRemoteReferenceName("origin", s.cfg.Branch), true)
		if err != nil {
			lastErr = err
			s.retry()
			continue
		}

		localRef, err := s.repo.Reference(branch, true)
		if err != nil {
			lastErr = err
			s.retry()
			continue
		}

		if localRef.Hash() == remoteRef.Hash() {
			return nil
		}

		if err := s.repo.Storer.SetReference(plumbing.NewHashReference(branch, remoteRef.Hash())); err != nil {
			lastErr = err
			s.retry()
			continue
		}

		wt, err := s.repo.Worktree()
		if err != nil {
			lastErr = err
			s.retry()
			continue
		}

		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: remoteRef.Hash()}); err != nil {
			lastErr = err
			s.retry()
			continue
		}

		return nil
	}

	return fmt.Errorf("could not fetch and fast-forward after 3 attempts: %w", lastErr)
}

func (s *GitEntityStore) retry() {
	if err := s.reinit(); err != nil {
		log.Printf("warning: failed to re-clone %s: %v", s.cfg.Repository, err)
	}
}

func (s *GitEntityStore) Insert(ctx context.Context, rec Record) error {
	name, err := s.treePath(rec.Collection, rec.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetchAndFastForward(ctx); err != nil {
		return fmt.Errorf("failed to update repo from remote: %w", err)
	}

	existing, err := s.readFile(name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s/%s", ErrConflict, rec.Collection, rec.ID)
	}

	return s.writeAndPush(ctx, name, rec, fmt.Sprintf("venue(add): create %s/%s", rec.Collection, rec.ID))
}

func (s *GitEntityStore) Update(ctx context.Context, rec Record) error {
	name, err := s.treePath(rec.Collection, rec.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetchAndFastForward(ctx); err != nil {
		return fmt.Errorf("failed to update repo from remote: %w", err)
	}

	existing, err := s.readFile(name)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	return s.writeAndPush(ctx, name, rec, fmt.Sprintf("venue(update): update %s/%s", rec.Collection, rec.ID))
}

func (s *GitEntityStore) Get(ctx context.Context, coll Collection, id string) (*Record, error) {
	name, err := s.treePath(coll, id)
	if err != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetchAndFastForward(ctx); err != nil {
		return nil, fmt.Errorf("failed to update repo from remote: %w", err)
	}

	data, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}

	return decodeEnvelope(coll, name, data)
}

func (s *GitEntityStore) List(ctx context.Context, coll Collection) ([]Record, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetchAndFastForward(ctx); err != nil {
		return nil, fmt.Errorf("failed to update repo from remote: %w", err)
	}

	tree, err := s.headTree()
	if err != nil {
		return nil, err
	}

	out := []Record{}

	dir, err := tree.Tree(s.collectionDir(coll))
	if errors.Is(err, object.ErrDirectoryNotFound) {
		return out, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", coll, err)
	}

	for _, e := range dir.Entries {
		if !e.Mode.IsFile() || path.Ext(e.Name) != ".json" {
			continue
		}

		name := path.Join(s.collectionDir(coll), e.Name)
		data, err := readTreeFile(tree, name)
		if err != nil || data == nil {
			log.Printf("warning: skipping unreadable %s: %v", name, err)
			continue
		}

		rec, err := decodeEnvelope(coll, name, data)
		if err != nil {
			log.Printf("warning: skipping %s: %v", name, err)
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *GitEntityStore) Delete(ctx context.Context, coll Collection, id string) error {
	name, err := s.treePath(coll, id)
	if err != nil {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetchAndFastForward(ctx); err != nil {
		return fmt.Errorf("failed to update repo from remote: %w", err)
	}

	existing, err := s.readFile(name)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := wt.Remove(name); err != nil {
		return fmt.Errorf("failed to remove %s from git: %w", name, err)
	}

	return s.commitAndPush(ctx, wt, fmt.Sprintf("venue(delete): delete %s/%s", coll, id))
}

func (s *GitEntityStore) writeAndPush(ctx context.Context, name string, rec Record, message string) error {
	data, err := json.MarshalIndent(fileEnvelope{ID: rec.ID, SortKey: rec.SortKey, Doc: rec.Doc}, "", "  ")
	if err != nil {
		return err
	}

	fullPath := filepath.Join(s.tmpDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create required directory structure: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := wt.Add(name); err != nil {
		return fmt.Errorf("failed to add file to git: %w", err)
	}

	return s.commitAndPush(ctx, wt, message)
}

func (s *GitEntityStore) commitAndPush(ctx context.Context, wt *git.Worktree, message string) error {
	_, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.cfg.AuthorName,
			Email: s.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		s.retry()
		return fmt.Errorf("failed to create commit: %w", err)
	}

	if err := s.repo.PushContext(ctx, &git.PushOptions{Auth: s.auth}); err != nil {
		s.retry()
		return fmt.Errorf("failed to push local: %w", err)
	}

	return nil
}

func (s *GitEntityStore) headTree() (*object.Tree, error) {
	head, err := s.repo.Head()
	if err != nil {
		return nil, err
	}

	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, err
	}

	return commit.Tree()
}

// readFile returns the committed contents of name, or nil when it does not exist.
func (s *GitEntityStore) readFile(name string) ([]byte, error) {
	tree, err := s.headTree()
	if err != nil {
		return nil, err
	}
	return readTreeFile(tree, name)
}

func readTreeFile(tree *object.Tree, name string) ([]byte, error) {
	file, err := tree.File(name)
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	r, err := file.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (s *GitEntityStore) collectionDir(coll Collection) string {
	return path.Join(strings.Trim(filepath.ToSlash(s.cfg.Path), "/"), string(coll))
}

func (s *GitEntityStore) treePath(coll Collection, id string) (string, error) {
	name, err := recordPath(coll, id)
	if err != nil {
		return "", err
	}
	return path.Join(s.collectionDir(coll), path.Base(filepath.ToSlash(name))), nil
}

func decodeEnvelope(coll Collection, name string, data []byte) (*Record, error) {
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	// Indented envelopes carry an indented document; hand back the compact form.
	var doc bytes.Buffer
	if err := json.Compact(&doc, env.Doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	return &Record{Collection: coll, ID: env.ID, SortKey: env.SortKey, Doc: doc.Bytes()}, nil
}
