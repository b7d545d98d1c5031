// Package deploy sequences a full project export into a deployment directory
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cryexport/cryexport/pkg/archive"
	"github.com/cryexport/cryexport/pkg/assets"
	pcontext "github.com/cryexport/cryexport/pkg/context"
	"github.com/cryexport/cryexport/pkg/copier"
	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/project"
	"github.com/cryexport/cryexport/pkg/quirks"
	"github.com/cryexport/cryexport/pkg/sysconfig"
	"github.com/cryexport/cryexport/pkg/types"
	"github.com/cryexport/cryexport/pkg/utils"
)

const (
	// EngineAssetDir holds the engine's shipped archives, relative to the install and the deployment
	EngineAssetDir = "engine"
	// SecondaryRuntimeDir is the managed runtime support tree copied for C# projects
	SecondaryRuntimeDir = "bin/common"
	// ManagedAssemblyPattern matches the engine's managed assemblies, which the binary filter excludes
	ManagedAssemblyPattern = "CryEngine.*.dll"
	// EntryBinaryExt is the extension of the project's game library
	EntryBinaryExt = ".dll"
)

var (
	// ErrEngineAssetsMissing is returned when the engine install has no shippable archives
	ErrEngineAssetsMissing = errors.New("engine assets missing")
	// ErrEntryBinaryMissing is returned when the project has no built game library
	ErrEntryBinaryMissing = errors.New("entry binary missing")
	// ErrUnsafeDestination is returned when the destination would delete a source tree
	ErrUnsafeDestination = errors.New("unsafe destination")
)

// EngineResolver resolves an engine tag to an installation
type EngineResolver interface {
	Resolve(ctx context.Context, tag string) (*types.EngineMetadata, error)
}

// Options configures an Orchestrator
type Options struct {
	// DestRoot is deleted and rebuilt on every run
	DestRoot string
	// Parallelism bounds per-file and per-unit workers; <= 0 means one per CPU
	Parallelism int
	// PluginManifest is the project file copied by the 5.2/5.3 quirk
	PluginManifest string
	// Quirks overrides quirks.DefaultTable
	Quirks quirks.Table
}

// Result describes a completed export. Binaries lists every project
// library shipped, entry binary first.
type Result struct {
	Project     *types.ProjectDescriptor `json:"project" yaml:"project"`
	Engine      *types.EngineMetadata    `json:"engine" yaml:"engine"`
	DestRoot    string                   `json:"destRoot" yaml:"destRoot"`
	EntryBinary string                   `json:"entryBinary" yaml:"entryBinary"`
	Binaries    []string                 `json:"binaries" yaml:"binaries"`
	Units       []types.ArchiveUnit      `json:"units" yaml:"units"`
	LevelFiles  int                      `json:"levelFiles" yaml:"levelFiles"`
	ConfigPath  string                   `json:"configPath" yaml:"configPath"`
	Operations  []types.Operation        `json:"operations" yaml:"operations"`
	BytesCopied int64                    `json:"bytesCopied" yaml:"bytesCopied"`
	Duration    time.Duration            `json:"duration" yaml:"duration"`
}

// Plan describes what Run would do, computed without writing anything
type Plan struct {
	Project      *types.ProjectDescriptor `json:"project" yaml:"project"`
	Engine       *types.EngineMetadata    `json:"engine" yaml:"engine"`
	DestRoot     string                   `json:"destRoot" yaml:"destRoot"`
	EngineAssets []string                 `json:"engineAssets" yaml:"engineAssets"`
	EntryBinary  string                   `json:"entryBinary" yaml:"entryBinary"`
	Binaries     []string                 `json:"binaries" yaml:"binaries"`
	Units        []types.ArchiveUnit      `json:"units" yaml:"units"`
	Quirks       []string                 `json:"quirks" yaml:"quirks"`
}

// Orchestrator runs the export pipeline
type Orchestrator struct {
	resolver EngineResolver
	builder  archive.Builder
	logger   logger.Logger
	opts     Options
}

// New creates an orchestrator
func New(resolver EngineResolver, builder archive.Builder, log logger.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = logger.Discard()
	}
	if opts.PluginManifest == "" {
		opts.PluginManifest = quirks.DefaultPluginManifest
	}
	return &Orchestrator{
		resolver: resolver,
		builder:  builder,
		logger:   log,
		opts:     opts,
	}
}

// Run exports p into the configured destination. The destination is removed
// first; a failed run may leave it partially populated.
func (o *Orchestrator) Run(ctx context.Context, p *types.ProjectDescriptor) (*Result, error) {
	ctx = pcontext.EnrichContext(pcontext.WithOperation(ctx, "export"))
	log := logger.WithContext(ctx, o.logger)

	if err := validateProject(p); err != nil {
		return nil, err
	}

	meta, err := o.resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	dest, err := o.destination(p, meta)
	if err != nil {
		return nil, err
	}

	manifest := &types.Manifest{}
	result := &Result{Project: p, Engine: meta, DestRoot: dest}
	destAssetRoot := filepath.Join(dest, p.AssetDir)

	log.Info("Exporting project",
		logger.WithField("project", p.Name),
		logger.WithField("engine", meta.Version),
		logger.WithField("dest", dest))

	err = o.step(ctx, "prepare", func(log logger.Logger) error {
		if err := utils.RecreateDirectory(dest); err != nil {
			return fmt.Errorf("failed to recreate %s: %w", dest, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, "engine-assets", func(log logger.Logger) error {
		paks, err := engineArchives(meta.Path)
		if err != nil {
			return err
		}
		for _, name := range paks {
			src := filepath.Join(meta.Path, EngineAssetDir, name)
			if err := utils.CopyFile(src, filepath.Join(dest, EngineAssetDir, name)); err != nil {
				return err
			}
			manifest.Record(types.OperationCopyFile, src, filepath.Join(EngineAssetDir, name))
		}
		log.Info("Copied engine assets", logger.WithField("files", len(paks)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, "engine-binaries", func(log logger.Logger) error {
		n, err := copier.New(log, o.opts.Parallelism, manifest).
			CopyTree(ctx, meta.Path, dest, filepath.FromSlash(utils.EngineBinaryDir), utils.NewEngineBinaryFilter())
		if err != nil {
			return err
		}
		log.Info("Copied engine binaries", logger.WithField("files", n))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.HasSecondaryRuntime {
		err = o.step(ctx, "secondary-runtime", func(log logger.Logger) error {
			return o.copySecondaryRuntime(ctx, log, meta.Path, dest, manifest)
		})
		if err != nil {
			return nil, err
		}
	}

	err = o.step(ctx, "project-binaries", func(log logger.Logger) error {
		dlls, err := ProjectBinaries(p.BinaryDir())
		if err != nil {
			return err
		}
		for _, name := range dlls {
			src := filepath.Join(p.BinaryDir(), name)
			rel := filepath.Join(filepath.FromSlash(utils.EngineBinaryDir), name)
			if err := utils.CopyFile(src, filepath.Join(dest, rel)); err != nil {
				return err
			}
			manifest.Record(types.OperationCopyFile, src, rel)
		}
		result.EntryBinary = dlls[0]
		result.Binaries = dlls
		log.Info("Copied project binaries",
			logger.WithField("entry", dlls[0]),
			logger.WithField("files", len(dlls)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, "package-assets", func(log logger.Logger) error {
		units, err := assets.NewPackager(o.builder, log, o.opts.Parallelism, manifest).
			PackageAssets(ctx, p.AssetRoot(), destAssetRoot)
		if err != nil {
			return err
		}
		result.Units = units
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, "copy-levels", func(log logger.Logger) error {
		n, err := assets.NewPackager(o.builder, log, o.opts.Parallelism, manifest).
			CopyLevels(ctx, p.AssetRoot(), destAssetRoot)
		if err != nil {
			return err
		}
		result.LevelFiles = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, "write-config", func(log logger.Logger) error {
		path, err := sysconfig.Write(dest, sysconfig.Config{AssetFolder: p.AssetDir, EntryBinary: result.EntryBinary})
		if err != nil {
			return err
		}
		result.ConfigPath = path
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, "quirks", func(log logger.Logger) error {
		entry, err := quirks.NewApplier(o.opts.Quirks, log).Apply(ctx, meta.Version, quirks.Target{
			ProjectRoot:    p.Root,
			DestRoot:       dest,
			EntryBinary:    result.EntryBinary,
			PluginManifest: o.opts.PluginManifest,
		})
		if err != nil {
			return err
		}
		if entry == result.EntryBinary {
			return nil
		}

		log.Info("Entry binary renamed", logger.WithField("from", result.EntryBinary), logger.WithField("to", entry))
		result.EntryBinary = entry
		result.Binaries[0] = entry
		_, err = sysconfig.Write(dest, sysconfig.Config{AssetFolder: p.AssetDir, EntryBinary: entry})
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Operations = manifest.Operations()
	if size, err := utils.GetDirectorySize(dest); err == nil {
		result.BytesCopied = size
	} else {
		log.Warn("Could not measure export size", logger.WithField("error", err))
	}
	result.Duration = pcontext.GetDuration(ctx)
	log.Success("Export complete",
		logger.WithField("dest", dest),
		logger.WithField("operations", len(result.Operations)),
		logger.WithField("size", utils.FormatBytes(result.BytesCopied)),
		logger.WithField("duration", result.Duration.Round(time.Millisecond)))

	return result, nil
}

// Plan resolves the engine and lists what Run would copy and archive,
// without modifying anything
func (o *Orchestrator) Plan(ctx context.Context, p *types.ProjectDescriptor) (*Plan, error) {
	ctx = pcontext.EnrichContext(pcontext.WithOperation(ctx, "plan"))

	if err := validateProject(p); err != nil {
		return nil, err
	}

	meta, err := o.resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	dest, err := o.destination(p, meta)
	if err != nil {
		return nil, err
	}

	paks, err := engineArchives(meta.Path)
	if err != nil {
		return nil, err
	}

	dlls, err := ProjectBinaries(p.BinaryDir())
	if err != nil {
		return nil, err
	}

	units, err := assets.NewPackager(o.builder, logger.WithContext(ctx, o.logger), o.opts.Parallelism, nil).Plan(p.AssetRoot())
	if err != nil {
		return nil, err
	}

	var names []string
	for _, q := range quirks.NewApplier(o.opts.Quirks, o.logger).For(meta.Version) {
		names = append(names, q.Name())
	}

	return &Plan{
		Project:      p,
		Engine:       meta,
		DestRoot:     dest,
		EngineAssets: paks,
		EntryBinary:  dlls[0],
		Binaries:     dlls,
		Units:        units,
		Quirks:       names,
	}, nil
}

func (o *Orchestrator) step(ctx context.Context, name string, fn func(log logger.Logger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log := logger.WithContext(ctx, o.logger).WithStep(name)
	log.Debug("Starting step")
	if err := fn(log); err != nil {
		log.Error("Step failed", logger.WithField("error", err))
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (o *Orchestrator) resolve(ctx context.Context, p *types.ProjectDescriptor) (*types.EngineMetadata, error) {
	if o.resolver == nil {
		return nil, fmt.Errorf("no engine resolver configured")
	}
	meta, err := o.resolver.Resolve(ctx, p.EngineTag)
	if err != nil {
		return nil, fmt.Errorf("resolve engine: %w", err)
	}
	return meta, nil
}

func (o *Orchestrator) copySecondaryRuntime(ctx context.Context, log logger.Logger, enginePath, dest string, manifest *types.Manifest) error {
	n, err := copier.New(log, o.opts.Parallelism, manifest).
		CopyTree(ctx, enginePath, dest, filepath.FromSlash(SecondaryRuntimeDir), nil)
	if err != nil {
		return err
	}

	binDir := filepath.FromSlash(utils.EngineBinaryDir)
	names, err := utils.ListFiles(filepath.Join(enginePath, binDir))
	if err != nil {
		return &utils.CopyError{Src: filepath.Join(enginePath, binDir), Err: err}
	}

	assemblies := 0
	for _, name := range names {
		if ok, _ := utils.MatchGlob(ManagedAssemblyPattern, name); !ok {
			continue
		}
		src := filepath.Join(enginePath, binDir, name)
		if err := utils.CopyFile(src, filepath.Join(dest, binDir, name)); err != nil {
			return err
		}
		manifest.Record(types.OperationCopyFile, src, filepath.Join(binDir, name))
		assemblies++
	}

	log.Info("Copied secondary runtime",
		logger.WithField("files", n),
		logger.WithField("assemblies", assemblies))
	return nil
}

// destination returns the cleaned destination, refusing paths whose removal
// would delete the project or the engine install
func (o *Orchestrator) destination(p *types.ProjectDescriptor, meta *types.EngineMetadata) (string, error) {
	if o.opts.DestRoot == "" {
		return "", fmt.Errorf("%w: no destination configured", ErrUnsafeDestination)
	}

	dest, err := filepath.Abs(o.opts.DestRoot)
	if err != nil {
		return "", err
	}
	for _, protected := range []string{p.Root, meta.Path} {
		abs, err := filepath.Abs(protected)
		if err != nil {
			continue
		}
		if isWithin(abs, dest) {
			return "", fmt.Errorf("%w: %s contains %s", ErrUnsafeDestination, dest, abs)
		}
	}
	return dest, nil
}

// isWithin reports whether path equals dir or lies below it
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func validateProject(p *types.ProjectDescriptor) error {
	if p == nil {
		return &project.InvalidProjectError{Field: "project"}
	}
	if err := p.Validate(); err != nil {
		var mfe *types.MissingFieldError
		if errors.As(err, &mfe) {
			return &project.InvalidProjectError{Path: p.Root, Field: mfe.Field}
		}
		return &project.InvalidProjectError{Path: p.Root, Err: err}
	}
	return nil
}

// engineArchives lists the shippable archives in the engine's asset directory
func engineArchives(enginePath string) ([]string, error) {
	dir := filepath.Join(enginePath, EngineAssetDir)
	names, err := utils.ListFiles(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, &utils.CopyError{Src: dir, Err: err}
	}

	var paks []string
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), archive.Extension) && !assets.IsEditorArchive(name) {
			paks = append(paks, name)
		}
	}
	if len(paks) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrEngineAssetsMissing, archive.Extension, dir)
	}
	return paks, nil
}

// ProjectBinaries returns every game library in binDir in name order. The
// first one is the entry binary named in system.cfg; the rest are plugins.
func ProjectBinaries(binDir string) ([]string, error) {
	names, err := utils.ListFiles(binDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryBinaryMissing, err)
	}
	var dlls []string
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), EntryBinaryExt) {
			dlls = append(dlls, name)
		}
	}
	if len(dlls) == 0 {
		return nil, fmt.Errorf("%w: no %s in %s", ErrEntryBinaryMissing, EntryBinaryExt, binDir)
	}
	return dlls, nil
}

// FindEntryBinary returns the first game library, in name order, in binDir
func FindEntryBinary(binDir string) (string, error) {
	dlls, err := ProjectBinaries(binDir)
	if err != nil {
		return "", err
	}
	return dlls[0], nil
}
