// Package store persists generated files next to their trace metadata and
// hands the previous generation back for the next run.
//
// Layout below the output directory:
//
//	<file>                         rendered content, free to edit
//	<traceDir>/<file>.trace<ext>   file trace metadata
//	<traceDir>/<file>.generated    content as last generated
//	<traceDir>/run<ext>            run trace metadata of the latest run
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/parser"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/validation"
)

const (
	traceSuffix     = ".trace"
	generatedSuffix = ".generated"
	runName         = "run"
)

// Store reads and writes one output tree.
type Store struct {
	outputDir string
	traceDir  string
	codec     Codec
	logger    logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithComponent("store")
		}
	}
}

// WithCodec sets the trace codec. JSON is the default.
func WithCodec(codec Codec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// New creates a store rooted at outputDir. traceDir is relative to
// outputDir.
func New(outputDir, traceDir string, opts ...Option) (*Store, error) {
	if outputDir == "" {
		return nil, caeerrors.ConfigurationError("generation.output_dir", "empty path", outputDir)
	}
	if _, err := validation.RelativePath(traceDir); err != nil {
		return nil, caeerrors.ConfigurationError("generation.trace_dir", err.Error(), traceDir)
	}
	s := &Store{
		outputDir: filepath.Clean(outputDir),
		traceDir:  filepath.Clean(traceDir),
		codec:     JSON{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Codec returns the trace codec.
func (s *Store) Codec() Codec { return s.codec }

// Save writes the rendered file and its trace metadata.
func (s *Store) Save(ctx context.Context, f *trace.FileTraceModel) error {
	contentPath, err := s.contentPath(f.FileName())
	if err != nil {
		return err
	}
	tracePath, err := s.tracePath(f.FileName())
	if err != nil {
		return err
	}

	content := []byte(f.Content())
	if err := writeAtomic(contentPath, content); err != nil {
		return caeerrors.FileOperationError("WRITE", contentPath, "cannot write content", err)
	}
	if err := writeAtomic(s.generatedPath(tracePath), content); err != nil {
		return caeerrors.FileOperationError("WRITE", s.generatedPath(tracePath), "cannot write generated copy", err)
	}
	if err := s.writeEncoded(tracePath, f.FileTrace()); err != nil {
		return err
	}
	s.logger.Debug(ctx, "saved generated file", "file", f.FileName(), "trace", tracePath)
	return nil
}

// SaveRun writes the run trace metadata, replacing the previous run's.
func (s *Store) SaveRun(ctx context.Context, run *trace.TraceModel) error {
	path := filepath.Join(s.outputDir, s.traceDir, runName+s.codec.Ext())
	if err := s.writeEncoded(path, run.RunTrace()); err != nil {
		return err
	}
	s.logger.Debug(ctx, "saved run trace", "run_id", run.ID(), "files", len(run.FileTraceModels()))
	return nil
}

// Load reads a file's content and trace metadata. The error matches
// os.ErrNotExist when the file was never generated. When the content was
// edited since it was generated, the trace is resynced to the edited
// content.
func (s *Store) Load(fileName string) (string, *trace.FileTrace, error) {
	contentPath, err := s.contentPath(fileName)
	if err != nil {
		return "", nil, err
	}
	tracePath, err := s.tracePath(fileName)
	if err != nil {
		return "", nil, err
	}

	content, err := os.ReadFile(contentPath)
	if err != nil {
		return "", nil, s.readError(contentPath, err)
	}
	var ft trace.FileTrace
	if err := s.readDecoded(tracePath, &ft); err != nil {
		return "", nil, err
	}

	previous, err := os.ReadFile(s.generatedPath(tracePath))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// written by another tool; the trace must match as is
	case err != nil:
		return "", nil, s.readError(s.generatedPath(tracePath), err)
	case !bytes.Equal(previous, content):
		descs, err := parser.Resync(ft.TraceSegments, string(previous), string(content))
		if err != nil {
			var ce *caeerrors.CAEError
			if errors.As(err, &ce) {
				ce.WithLocation(fileName, ce.Offset)
			}
			return "", nil, err
		}
		ft.TraceSegments = descs
		s.logger.Debug(context.Background(), "resynced edited file", "file", fileName)
	}
	return string(content), &ft, nil
}

// LoadModel rebuilds the previous generation of fileName. It reports false
// when there is none.
func (s *Store) LoadModel(fileName string, opts ...trace.Option) (*trace.FileTraceModel, bool, error) {
	content, ft, err := s.Load(fileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	model, err := trace.FromFileTrace(fileName, ft, content, opts...)
	if err != nil {
		return nil, false, err
	}
	return model, true, nil
}

// LoadRun reads the latest run trace metadata.
func (s *Store) LoadRun() (*trace.RunTrace, error) {
	var rt trace.RunTrace
	path := filepath.Join(s.outputDir, s.traceDir, runName+s.codec.Ext())
	if err := s.readDecoded(path, &rt); err != nil {
		return nil, err
	}
	return &rt, nil
}

// ReadContent reads the rendered content of fileName.
func (s *Store) ReadContent(fileName string) (string, error) {
	path, err := s.contentPath(fileName)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", s.readError(path, err)
	}
	return string(content), nil
}

// TraceJSON returns the trace metadata of fileName as JSON regardless of
// the store codec, resynced to the current content.
func (s *Store) TraceJSON(fileName string) ([]byte, error) {
	_, ft, err := s.Load(fileName)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ft)
}

// Files lists the generated files that have trace metadata, sorted.
func (s *Store) Files() ([]string, error) {
	root := filepath.Join(s.outputDir, s.traceDir)
	suffix := traceSuffix + s.codec.Ext()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, suffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(strings.TrimSuffix(rel, suffix)))
		return nil
	})
	if err != nil {
		return nil, caeerrors.FileOperationError("LIST", root, "cannot list traces", err)
	}
	sort.Strings(files)
	return files, nil
}

// ContentPath returns the on-disk path of a generated file.
func (s *Store) ContentPath(fileName string) (string, error) {
	return s.contentPath(fileName)
}

func (s *Store) contentPath(fileName string) (string, error) {
	rel, err := validation.RelativePath(fileName)
	if err != nil {
		return "", caeerrors.NewValidationError(caeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid file name %q: %v", fileName, err))
	}
	return filepath.Join(s.outputDir, rel), nil
}

func (s *Store) tracePath(fileName string) (string, error) {
	rel, err := validation.RelativePath(fileName)
	if err != nil {
		return "", caeerrors.NewValidationError(caeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid file name %q: %v", fileName, err))
	}
	return filepath.Join(s.outputDir, s.traceDir, rel+traceSuffix+s.codec.Ext()), nil
}

func (s *Store) generatedPath(tracePath string) string {
	return strings.TrimSuffix(tracePath, traceSuffix+s.codec.Ext()) + generatedSuffix
}

func (s *Store) writeEncoded(path string, v any) error {
	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, v); err != nil {
		return caeerrors.NewInternalError(caeerrors.ErrCodeInternalError,
			fmt.Sprintf("cannot encode %s", path), err)
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return caeerrors.FileOperationError("WRITE", path, "cannot write trace", err)
	}
	return nil
}

func (s *Store) readDecoded(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return s.readError(path, err)
	}
	defer f.Close()
	if err := s.codec.Decode(f, v); err != nil {
		return caeerrors.TraceDecode(path, err)
	}
	return nil
}

// readError keeps the cause so missing files match fs.ErrNotExist.
func (s *Store) readError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return caeerrors.NewIOError(caeerrors.ErrCodeFileNotFound,
			fmt.Sprintf("%s does not exist", path), err).WithLocation(path, 0)
	}
	return caeerrors.FileOperationError("READ", path, "cannot read", err)
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
