package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"srpack/internal/assetbundle"
	"srpack/internal/config"
	"srpack/internal/fileutil"
	"srpack/internal/history"
	"srpack/internal/manifest"
	"srpack/internal/modelsource"
	"srpack/internal/preflight"
	"srpack/internal/srmodel"
)

// Request describes one asset build. Unset fields fall back to the
// configuration defaults.
type Request struct {
	ModelNames []string
	OutputPath string
	CNWakeWord string
	ENWakeWord string
	// Threshold overrides the configured detection threshold. Nil means
	// unset; an explicit zero is honored.
	Threshold *float64
}

// Result reports a finished build.
type Result struct {
	OutputPath string
	Size       int64
	Checksum   uint32
	TotalFiles uint32
	Models     []string
	Languages  []string
	Elapsed    time.Duration
}

// Orchestrator runs builds against a configuration. The history store is
// optional; when present, finished builds are recorded in it.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *history.Store
}

// New constructs an orchestrator.
func New(cfg *config.Config, logger *slog.Logger, store *history.Store) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{cfg: cfg, logger: logger, store: store}
}

// buildState carries intermediate artifacts between steps. It lives for one
// Build call and is never shared.
type buildState struct {
	req Request

	scratchDir  string
	srmodelsDir string
	assetsDir   string

	resolved  modelsource.Resolution
	manifest  manifest.Manifest
	languages []string

	bundlePath string
	result     Result
}

type step struct {
	name string
	run  func(context.Context, *buildState) error
}

// Build runs the full pipeline for req. The scratch workspace is created in
// the first step and removed exactly once on every exit path.
func (o *Orchestrator) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	st := &buildState{req: o.applyDefaults(req)}

	if len(st.req.ModelNames) == 0 {
		return nil, fmt.Errorf("%w: no model names supplied", ErrUserInput)
	}
	if err := o.runPreflight(st); err != nil {
		return nil, err
	}

	lock := flock.New(st.req.OutputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, st.req.OutputPath)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	defer o.teardown(st)

	steps := []step{
		{"init", o.stepInit},
		{"collect-models", o.stepCollectModels},
		{"build-model-container", o.stepBuildContainer},
		{"generate-manifest", o.stepGenerateManifest},
		{"build-asset-bundle", o.stepBuildBundle},
		{"finalize", o.stepFinalize},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, wrapStep(s.name, err)
		}
		stepStart := time.Now()
		o.logger.Debug("step started", slog.String("step", s.name))
		if err := s.run(ctx, st); err != nil {
			o.logger.Error("step failed",
				slog.String("step", s.name),
				slog.String("category", Classify(err)),
				slog.Any("error", err))
			return nil, wrapStep(s.name, err)
		}
		o.logger.Debug("step finished",
			slog.String("step", s.name),
			slog.Duration("elapsed", time.Since(stepStart)))
	}

	st.result.Elapsed = time.Since(start)
	o.recordHistory(ctx, st)
	o.logger.Info("build finished",
		slog.String("output", st.result.OutputPath),
		slog.Int64("size", st.result.Size),
		slog.Duration("elapsed", st.result.Elapsed))
	return &st.result, nil
}

func (o *Orchestrator) applyDefaults(req Request) Request {
	if len(req.ModelNames) == 0 {
		req.ModelNames = o.cfg.Assets.Models
	}
	if req.OutputPath == "" {
		req.OutputPath = filepath.Join(o.cfg.Paths.OutputDir, o.cfg.Assets.BundleName)
	}
	if req.CNWakeWord == "" {
		req.CNWakeWord = o.cfg.Assets.CNWakeWord
	}
	if req.ENWakeWord == "" {
		req.ENWakeWord = o.cfg.Assets.ENWakeWord
	}
	if req.Threshold == nil {
		threshold := o.cfg.Assets.Threshold
		req.Threshold = &threshold
	}
	return req
}

func (o *Orchestrator) runPreflight(st *buildState) error {
	results := []preflight.Result{
		preflight.CheckModelDir(o.cfg.Paths.ModelDir),
		preflight.CheckOutputDir(filepath.Dir(st.req.OutputPath)),
	}
	if failure := preflight.FirstFailure(results); failure != nil {
		return fmt.Errorf("%w: %s: %s", ErrUserInput, failure.Name, failure.Detail)
	}
	return nil
}

func (o *Orchestrator) stepInit(_ context.Context, st *buildState) error {
	parent := o.cfg.Paths.ScratchDir
	if parent == "" {
		parent = os.TempDir()
	}
	st.scratchDir = filepath.Join(parent, "srpack-build-"+uuid.NewString())
	st.srmodelsDir = filepath.Join(st.scratchDir, "srmodels")
	st.assetsDir = filepath.Join(st.scratchDir, "assets")
	for _, dir := range []string{st.srmodelsDir, st.assetsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create scratch workspace: %w", err)
		}
	}
	o.logger.Debug("scratch workspace created", slog.String("path", st.scratchDir))
	return nil
}

func (o *Orchestrator) stepCollectModels(_ context.Context, st *buildState) error {
	resolved, err := modelsource.Resolve(o.cfg.Paths.ModelDir, st.req.ModelNames, o.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserInput, err)
	}
	st.resolved = resolved

	var need int64
	for _, model := range resolved.Models {
		size, err := fileutil.TreeSize(model.Path)
		if err != nil {
			return err
		}
		need += size
	}
	// Scratch holds the staged copies plus the packed container and bundle.
	if res := preflight.CheckFreeSpace(st.scratchDir, uint64(need)*3); !res.Passed {
		return fmt.Errorf("%w: %s: %s", ErrUserInput, res.Name, res.Detail)
	}

	for _, model := range resolved.Models {
		dst := filepath.Join(st.srmodelsDir, model.Name)
		if err := fileutil.CopyDir(model.Path, dst); err != nil {
			return fmt.Errorf("stage model %s: %w", model.Name, err)
		}
		o.logger.Info("model staged", slog.String("model", model.Name))
	}
	st.result.Models = resolved.Names()
	return nil
}

func (o *Orchestrator) stepBuildContainer(_ context.Context, st *buildState) error {
	builder := srmodel.NewBuilder(o.logger)
	containerPath, size, err := builder.PackDir(st.srmodelsDir, o.cfg.Assets.ContainerName)
	if err != nil {
		if errors.Is(err, srmodel.ErrLayout) {
			// A layout mismatch is a defect in the offset algorithm; it
			// must surface as an internal failure, never be retried.
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return err
	}
	o.logger.Info("model container packed",
		slog.String("path", containerPath),
		slog.Int64("size", size))
	return fileutil.CopyFile(containerPath, filepath.Join(st.assetsDir, o.cfg.Assets.ContainerName))
}

func (o *Orchestrator) stepGenerateManifest(_ context.Context, st *buildState) error {
	st.languages = manifest.DetectLanguages(st.result.Models)
	st.manifest = manifest.Generate(manifest.Params{
		ModelNames: st.result.Models,
		SRModels:   o.cfg.Assets.ContainerName,
		WakePhrases: map[string]string{
			manifest.LangChinese: st.req.CNWakeWord,
			manifest.LangEnglish: st.req.ENWakeWord,
		},
		Threshold:  *st.req.Threshold,
		DurationMS: o.cfg.Assets.DurationMS,
	})
	st.result.Languages = st.languages

	path, err := manifest.Write(st.manifest, st.assetsDir, o.cfg.Assets.ManifestName)
	if err != nil {
		return err
	}
	o.logger.Info("manifest generated",
		slog.String("path", path),
		slog.Any("languages", st.languages))
	return nil
}

func (o *Orchestrator) stepBuildBundle(_ context.Context, st *buildState) error {
	builder := assetbundle.NewBuilder(o.logger, o.cfg.Assets.Exclude)
	st.bundlePath = filepath.Join(st.scratchDir, "output", o.cfg.Assets.BundleName)
	size, err := builder.WriteFile(st.assetsDir, st.bundlePath)
	if err != nil {
		return err
	}

	image, err := os.ReadFile(st.bundlePath)
	if err != nil {
		return fmt.Errorf("read back bundle: %w", err)
	}
	parsed, err := assetbundle.Parse(image)
	if err != nil {
		return fmt.Errorf("%w: built bundle fails verification: %v", ErrInternal, err)
	}
	st.result.Size = size
	st.result.Checksum = parsed.Checksum
	st.result.TotalFiles = parsed.TotalFiles
	o.logger.Info("asset bundle packed",
		slog.Int64("size", size),
		slog.Int("files", int(parsed.TotalFiles)))
	return nil
}

func (o *Orchestrator) stepFinalize(_ context.Context, st *buildState) error {
	if _, err := os.Stat(st.bundlePath); err != nil {
		// The previous step reported success, so a missing bundle here is
		// pipeline inconsistency, not an input or I/O problem.
		return fmt.Errorf("%w: bundle missing before finalize: %v", ErrInternal, err)
	}
	if err := fileutil.CopyFileVerified(st.bundlePath, st.req.OutputPath); err != nil {
		return fmt.Errorf("copy bundle to destination: %w", err)
	}
	st.result.OutputPath = st.req.OutputPath
	return nil
}

// teardown removes the scratch workspace. It is registered once per build and
// tolerates a workspace that was never created.
func (o *Orchestrator) teardown(st *buildState) {
	if st.scratchDir == "" {
		return
	}
	if err := os.RemoveAll(st.scratchDir); err != nil {
		o.logger.Warn("scratch workspace cleanup failed",
			slog.String("path", st.scratchDir),
			slog.Any("error", err))
		return
	}
	o.logger.Debug("scratch workspace removed", slog.String("path", st.scratchDir))
}

func (o *Orchestrator) recordHistory(ctx context.Context, st *buildState) {
	if o.store == nil {
		return
	}
	_, err := o.store.Add(ctx, history.Record{
		OutputPath: st.result.OutputPath,
		Size:       st.result.Size,
		Checksum:   st.result.Checksum,
		Models:     st.result.Models,
		Languages:  st.result.Languages,
		Elapsed:    st.result.Elapsed,
	})
	if err != nil {
		// History is bookkeeping; a failed insert must not fail the build.
		o.logger.Warn("history record failed", slog.Any("error", err))
	}
}
