package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"supportlens/internal/model"
	"supportlens/internal/pkg/docreader"
	"supportlens/internal/platform/logger"
)

const (
	defaultEmbedBatchSize   = 100
	defaultEmbedConcurrency = 4
)

type IngestConfig struct {
	StagingDir       string
	EmbedBatchSize   int
	EmbedConcurrency int
}

// IngestResult summarises one ingestion run. Documents counts every document
// read from the staging directory, Unchanged the ones whose content matched
// the previous run and were not embedded again.
type IngestResult struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped_files"`
	Unchanged int `json:"unchanged"`
}

// Upload is a file handed to UploadAndIngest. Name is reduced to its base name.
type Upload struct {
	Name    string
	Content io.Reader
}

type IngestService struct {
	cfg      IngestConfig
	splitter TextSplitter
	embedder BatchEmbedder
	chunks   ChunkWriter
	sources  SourceDocumentStore
	lock     IngestLocker
	log      *logger.Logger
}

// NewIngestService wires the pipeline. lock may be nil when only one process
// ingests into the staging directory.
func NewIngestService(
	cfg IngestConfig,
	splitter TextSplitter,
	embedder BatchEmbedder,
	chunks ChunkWriter,
	sources SourceDocumentStore,
	lock IngestLocker,
	log *logger.Logger,
) *IngestService {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = defaultEmbedBatchSize
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = defaultEmbedConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &IngestService{
		cfg:      cfg,
		splitter: splitter,
		embedder: embedder,
		chunks:   chunks,
		sources:  sources,
		lock:     lock,
		log:      log.With("service", "ingest"),
	}
}

func (s *IngestService) StagingDir() string {
	return s.cfg.StagingDir
}

// Ingest runs the pipeline over the configured staging directory.
func (s *IngestService) Ingest(ctx context.Context) (*IngestResult, error) {
	return s.IngestDir(ctx, s.cfg.StagingDir)
}

// UploadAndIngest writes uploads into the staging directory and ingests it.
func (s *IngestService) UploadAndIngest(ctx context.Context, uploads []Upload) (*IngestResult, error) {
	if len(uploads) == 0 {
		return nil, ErrInvalidInput
	}
	if err := os.MkdirAll(s.cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir failed: %w", err)
	}
	for _, u := range uploads {
		if err := s.stage(u); err != nil {
			return nil, err
		}
	}
	s.log.Info("uploads staged", "count", len(uploads))
	return s.Ingest(ctx)
}

func (s *IngestService) stage(u Upload) error {
	name := filepath.Base(strings.TrimSpace(u.Name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return fmt.Errorf("%w: bad file name %q", ErrInvalidInput, u.Name)
	}
	f, err := os.Create(filepath.Join(s.cfg.StagingDir, name))
	if err != nil {
		return fmt.Errorf("create staged file failed: %w", err)
	}
	if _, err := io.Copy(f, u.Content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write staged file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staged file failed: %w", err)
	}
	return nil
}

// IngestDir reads every file below dir, embeds the chunks of new or changed
// documents and upserts them. File paths are stored relative to dir. Every
// file found is deleted when the run returns, whether it succeeded or not.
func (s *IngestService) IngestDir(ctx context.Context, dir string) (*IngestResult, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir failed: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrStagingDirMissing, dir)
	}

	if s.lock != nil {
		key := "ingest:" + root
		token, ok, err := s.lock.Acquire(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("acquire ingest lock failed: %w", err)
		}
		if !ok {
			return nil, ErrIngestInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.log.Warn("release ingest lock failed", "error", err)
			}
		}()
	}

	files, dirs, err := scanStaging(root)
	if err != nil {
		return nil, err
	}
	defer s.cleanup(root, files, dirs)

	result := &IngestResult{}
	var pending []model.Chunk
	var changed []model.SourceDocument
	for _, path := range files {
		if !docreader.Supported(path) {
			result.Skipped++
			s.log.Warn("skip unsupported file", "path", path)
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, fmt.Errorf("relativize %s failed: %w", path, err)
		}
		docs, err := docreader.ReadFile(path, rel)
		if err != nil {
			return nil, err
		}

		for _, doc := range docs {
			result.Documents++
			hash := contentHash(doc.Text)
			prev, err := s.sources.Get(ctx, doc.ID)
			if err != nil {
				return nil, err
			}
			if prev != nil && prev.Hash == hash {
				result.Unchanged++
				continue
			}

			pieces := s.splitter.Split(doc.Text)
			for i, piece := range pieces {
				pending = append(pending, model.Chunk{
					ID:         model.ChunkID(doc.ID, i),
					DocumentID: doc.ID,
					FilePath:   doc.FilePath,
					Position:   i,
					Content:    piece,
				})
			}
			changed = append(changed, model.SourceDocument{
				ID:         doc.ID,
				FilePath:   doc.FilePath,
				Hash:       hash,
				ChunkCount: len(pieces),
			})
		}
	}

	if err := s.embedAndUpsert(ctx, pending); err != nil {
		return nil, err
	}
	for i := range changed {
		if err := s.sources.Save(ctx, &changed[i]); err != nil {
			return nil, err
		}
	}
	result.Chunks = len(pending)

	s.log.Info("ingestion finished",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"unchanged", result.Unchanged,
		"skipped", result.Skipped,
	)
	return result, nil
}

// embedAndUpsert embeds chunks in batches, at most EmbedConcurrency batches in
// flight, and upserts each batch once its vectors are back.
func (s *IngestService) embedAndUpsert(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)

	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := start + s.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Content
			}
			vecs, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks failed: %w", err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed chunks failed: want %d vectors, got %d", len(batch), len(vecs))
			}
			for i := range batch {
				batch[i].Embedding = pgvector.NewVector(vecs[i])
			}
			return s.chunks.Upsert(gctx, batch)
		})
	}
	return g.Wait()
}

// scanStaging lists regular files and sub-directories below root in lexical order.
func scanStaging(root string) (files, dirs []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan staging dir failed: %w", err)
	}
	return files, dirs, nil
}

// cleanup deletes the consumed files, then any sub-directory left empty.
func (s *IngestService) cleanup(root string, files, dirs []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("remove staged file failed", "path", f, "error", err)
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[j], string(filepath.Separator))
	})
	for _, d := range dirs {
		if d == root {
			continue
		}
		// Non-empty directories stay.
		_ = os.Remove(d)
	}
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
