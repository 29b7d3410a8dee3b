package replay

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Store persists finished replays.
type Store interface {
	Save(gameID string, content []byte) error
}

// FSStore writes gzip files under dir with owner-only permissions.
// Writes go to a temp file, fsync, then rename, so readers never see a
// partial replay.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create replay dir %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

// Path returns the final file path for a game.
func (s *FSStore) Path(gameID string) string {
	return filepath.Join(s.dir, gameID+".txt.gz")
}

func (s *FSStore) Save(gameID string, content []byte) (err error) {
	final := s.Path(gameID)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	zw := gzip.NewWriter(f)
	if _, err = zw.Write(content); err != nil {
		return fmt.Errorf("compress %s: %w", gameID, err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", gameID, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Saver offloads replay writes to one background worker. Save never
// blocks game cleanup and never reports failure to the caller; failures
// are logged.
type Saver struct {
	store Store
	log   *zap.Logger
	jobs  chan saveJob
	done  chan struct{}
}

type saveJob struct {
	gameID  string
	content []byte
}

func NewSaver(store Store, log *zap.Logger) *Saver {
	s := &Saver{
		store: store,
		log:   log,
		jobs:  make(chan saveJob, 64),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Saver) run() {
	defer close(s.done)
	for job := range s.jobs {
		if err := s.store.Save(job.gameID, job.content); err != nil {
			s.log.Error("replay save failed",
				zap.String("game_id", job.gameID), zap.Error(err))
		} else {
			s.log.Info("replay saved",
				zap.String("game_id", job.gameID), zap.Int("bytes", len(job.content)))
		}
	}
}

// Path reports where a game's replay lands when the backing store is
// file-based, and "" otherwise.
func (s *Saver) Path(gameID string) string {
	if fs, ok := s.store.(*FSStore); ok {
		return fs.Path(gameID)
	}
	return ""
}

// Save queues the replay. A full queue drops the replay rather than
// stalling the game; the drop is logged.
func (s *Saver) Save(gameID string, content []byte) {
	select {
	case s.jobs <- saveJob{gameID: gameID, content: content}:
	default:
		s.log.Error("replay queue full, dropping", zap.String("game_id", gameID))
	}
}

// Close drains pending writes and stops the worker.
func (s *Saver) Close() {
	close(s.jobs)
	<-s.done
}
