package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/metronome/internal/analysis"
	"github.com/handiism/metronome/internal/audio"
	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/format"
	ioutils "github.com/handiism/metronome/internal/io"
	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/model"
)

var log = logger.Get("Dispatcher")

// ErrOutputUnwritable is returned by Run when the output root cannot be
// created or written to. It aborts the whole run.
var ErrOutputUnwritable = errors.New("output directory is not writable")

// MetadataReader reads the tags of a source file.
type MetadataReader interface {
	Read(ctx context.Context, path string) (model.Metadata, error)
}

// Transcoder encodes job.Source into output.
type Transcoder interface {
	Convert(ctx context.Context, job *model.Job, output string) error
}

// Tagger writes tags and embedded art into a converted MP3.
type Tagger interface {
	SaveTags(path string, meta model.Metadata, artwork []byte) error
}

// CoverFinder returns the album art of a source file, or nil.
type CoverFinder interface {
	Find(ctx context.Context, source string) (*audio.Cover, error)
}

// Deps are the collaborators of a Dispatcher. Reader and Transcoder are
// required; the others enable optional features when not nil.
type Deps struct {
	Reader     MetadataReader
	Transcoder Transcoder
	Identifier analysis.Identifier
	Tagger     Tagger
	Cover      CoverFinder
	Playlist   *audio.PlaylistCreator
}

// Dispatcher converts every eligible file of an input tree.
//
// A run has four phases:
//  1. Enumerate the input directory.
//  2. Plan: read metadata, optionally identify the track and render its
//     destination. Files are planned concurrently.
//  3. Resolve collisions sequentially, in enumeration order, so the
//     outcome does not depend on scheduling.
//  4. Dispatch the jobs to at most settings.Threads concurrent workers.
//
// A failing job never stops its siblings.
type Dispatcher struct {
	settings *config.Settings
	deps     Deps
	template *format.Template

	onProgress func(ProgressEvent)

	total     atomic.Int32
	converted atomic.Int32
	skipped   atomic.Int32
	failed    atomic.Int32
	bytes     atomic.Int64

	mu        sync.Mutex
	failures  []model.Failure
	written   map[string][]*model.Job
	coverDirs map[string]bool
}

// NewDispatcher creates a Dispatcher for settings. onProgress may be nil.
func NewDispatcher(settings *config.Settings, deps Deps, onProgress func(ProgressEvent)) (*Dispatcher, error) {
	if deps.Reader == nil || deps.Transcoder == nil {
		return nil, errors.New("dispatcher needs a metadata reader and a transcoder")
	}

	if !settings.Target().Valid() {
		return nil, &config.ConfigError{Field: "convert", Reason: fmt.Sprintf("unsupported target format %q", settings.Convert)}
	}

	tmpl, err := settings.Template()
	if err != nil {
		return nil, &config.ConfigError{Field: "format", Reason: "cannot parse naming template", Err: err}
	}

	if onProgress == nil {
		onProgress = func(ProgressEvent) {}
	}

	return &Dispatcher{
		settings:   settings,
		deps:       deps,
		template:   tmpl,
		onProgress: onProgress,
		written:    map[string][]*model.Job{},
		coverDirs:  map[string]bool{},
	}, nil
}

// Progress returns the number of files finished (converted, skipped or
// failed) and the number of files found.
func (d *Dispatcher) Progress() (done, total int) {
	return int(d.converted.Load() + d.skipped.Load() + d.failed.Load()), int(d.total.Load())
}

func (d *Dispatcher) progress(level ProgressLevel, msg string, args ...any) {
	d.onProgress(ProgressEvent{Message: fmt.Sprintf(msg, args...), Level: level})
}

// Run performs the conversion and returns its summary.
//
// Cancelling ctx stops planning and the submission of new jobs and kills
// running transcoder processes; files already converted are kept. The
// partial summary is returned together with ctx's error.
func (d *Dispatcher) Run(ctx context.Context) (*model.Summary, error) {
	if !d.settings.DryRun {
		if err := ioutils.EnsureDir(d.settings.Output); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutputUnwritable, err)
		}
		if err := ioutils.CheckWritable(d.settings.Output); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutputUnwritable, err)
		}
	}

	sources, err := Enumerate(d.settings.Input, d.settings.Extensions(), []string{d.settings.Output}, func(e *EnumerationError) {
		d.progress(LevelWarning, "%v", e)
	})
	if err != nil {
		return nil, err
	}
	d.total.Store(int32(len(sources)))
	d.progress(LevelInfo, "Found %d files to convert in %s", len(sources), d.settings.Input)

	plans := d.plan(ctx, sources)
	if err := ctx.Err(); err != nil {
		return d.summary(0), err
	}

	jobs := d.resolve(plans)

	if d.settings.DryRun {
		for _, job := range jobs {
			d.progress(LevelInfo, "Would convert %s -> %s", job.RelSource, job.Destination)
		}
		return d.summary(len(jobs)), nil
	}

	d.dispatch(ctx, jobs)

	if d.deps.Playlist != nil && d.settings.Playlist {
		d.writePlaylists(ctx)
	}

	summary := d.summary(len(jobs))
	if err := ctx.Err(); err != nil {
		d.progress(LevelWarning, "Interrupted: %d of %d files done", summary.Total(), len(sources))
		return summary, err
	}

	return summary, nil
}

// plan holds the outcome of planning one source.
type plan struct {
	source      Source
	meta        model.Metadata
	enriched    bool
	destination string
	err         error
}

func (d *Dispatcher) plan(ctx context.Context, sources []Source) []*plan {
	plans := make([]*plan, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.settings.Threads)

	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			plans[i] = d.planOne(gctx, src)
			return nil // a failed file must not cancel its siblings
		})
	}
	_ = g.Wait()

	return plans
}

func (d *Dispatcher) planOne(ctx context.Context, src Source) *plan {
	p := &plan{source: src}

	if err := ctx.Err(); err != nil {
		p.err = err
		return p
	}

	meta, err := d.deps.Reader.Read(ctx, src.Path)
	if err != nil {
		p.err = fmt.Errorf("read metadata: %w", err)
		return p
	}

	if d.deps.Identifier != nil {
		if extra, ok := d.deps.Identifier.Identify(ctx, src.Path, meta); ok {
			meta = meta.Merge(extra)
			p.enriched = true
			d.progress(LevelVerbose, "Identified %s as %s - %s", src.Rel, extra[model.KeyArtistName], extra[model.KeyTrackTitle])
		}
	}

	meta = meta.With(model.KeyExtension, d.settings.Target().Extension())
	if _, ok := meta[model.KeySourceName]; !ok {
		meta = meta.With(model.KeySourceName, strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path)))
	}
	p.meta = meta

	rel, err := format.ForSource(d.template, src.Rel).Render(meta)
	if err != nil {
		p.err = fmt.Errorf("render destination: %w", err)
		return p
	}
	p.destination = filepath.Join(d.settings.Output, rel)

	return p
}

// resolve applies the collision policy in enumeration order and returns
// the jobs to run.
func (d *Dispatcher) resolve(plans []*plan) []*model.Job {
	claimed := map[string]bool{}
	jobs := make([]*model.Job, 0, len(plans))

	for _, p := range plans {
		if p == nil {
			continue
		}
		if p.err != nil {
			if !errors.Is(p.err, context.Canceled) {
				d.fail(p.source.Path, p.destination, p.err)
			}
			continue
		}

		dest, ok := d.claim(claimed, p)
		if !ok {
			d.skipped.Add(1)
			continue
		}

		jobs = append(jobs, model.NewJob(p.source.Path, p.source.Rel, p.meta, p.enriched, d.settings.Target(), dest))
	}

	return jobs
}

// claim returns the destination p may write to under the collision
// policy, or false when p is skipped.
func (d *Dispatcher) claim(claimed map[string]bool, p *plan) (string, bool) {
	key := func(path string) string { return strings.ToLower(path) }
	dest := p.destination

	switch d.settings.Collision {
	case config.CollisionOverwrite:
		if claimed[key(dest)] {
			d.progress(LevelWarning, "Skipping %s: %s is already produced by another file", p.source.Rel, dest)
			return "", false
		}

	case config.CollisionSuffix:
		dir, name := filepath.Split(p.destination)
		for n := 1; claimed[key(dest)] || ioutils.Exists(dest); n++ {
			dest = filepath.Join(dir, ioutils.SuffixFileName(name, fmt.Sprintf(" (%d)", n)))
		}

	default:
		if claimed[key(dest)] {
			d.progress(LevelWarning, "Skipping %s: %s is already produced by another file", p.source.Rel, dest)
			return "", false
		}
		if ioutils.Exists(dest) {
			d.progress(LevelVerbose, "Skipping %s: %s exists", p.source.Rel, dest)
			return "", false
		}
	}

	claimed[key(dest)] = true
	return dest, true
}

func (d *Dispatcher) dispatch(ctx context.Context, jobs []*model.Job) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.settings.Threads)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := d.runJob(gctx, job); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				d.fail(job.Source, job.Destination, err)
				d.progress(LevelError, "Failed %s: %v", job.RelSource, err)
				return nil // Continue with other files
			}
			d.converted.Add(1)
			d.progress(LevelSuccess, "Converted %s", job.RelSource)
			return nil
		})
	}

	_ = g.Wait()
}

// runJob converts one file into a temporary file next to its destination
// and renames it into place once every step succeeded.
func (d *Dispatcher) runJob(ctx context.Context, job *model.Job) error {
	dir := filepath.Dir(job.Destination)
	if err := ioutils.EnsureDir(dir); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp := ioutils.TempPath(job.Destination, job.ID.String())
	committed := false
	defer func() {
		if !committed {
			_ = ioutils.RemoveQuietly(tmp)
		}
	}()

	log.Emit(logger.DEBUG, "%v\n", job)
	if err := d.deps.Transcoder.Convert(ctx, job, tmp); err != nil {
		return err
	}

	var cover *audio.Cover
	if d.settings.CoverArt && d.deps.Cover != nil {
		var err error
		if cover, err = d.deps.Cover.Find(ctx, job.Source); err != nil {
			d.progress(LevelWarning, "Cover art for %s: %v", job.RelSource, err)
		}
	}

	if err := d.tag(job, tmp, cover); err != nil {
		return err
	}

	if err := ioutils.Commit(tmp, job.Destination); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	committed = true

	if info, err := os.Stat(job.Destination); err == nil {
		d.bytes.Add(info.Size())
	}

	d.mu.Lock()
	d.written[dir] = append(d.written[dir], job)
	d.mu.Unlock()

	if cover != nil {
		d.writeCover(ctx, dir, cover)
	}

	return nil
}

// tag writes enriched metadata and folder art into MP3 outputs. ffmpeg
// already carried over the source's own tags and embedded picture.
func (d *Dispatcher) tag(job *model.Job, path string, cover *audio.Cover) error {
	if d.deps.Tagger == nil || job.Target != model.TargetMP3 || d.settings.Strip {
		return nil
	}

	var artwork []byte
	if cover != nil && !cover.Embedded {
		artwork = cover.Data
	}

	var meta model.Metadata
	if job.Enriched {
		meta = job.Metadata
	}

	if meta == nil && artwork == nil {
		return nil
	}

	if err := d.deps.Tagger.SaveTags(path, meta, artwork); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}

// writeCover writes cover.jpg into dir once per run. An existing file is
// left alone.
func (d *Dispatcher) writeCover(ctx context.Context, dir string, cover *audio.Cover) {
	d.mu.Lock()
	if d.coverDirs[dir] {
		d.mu.Unlock()
		return
	}
	d.coverDirs[dir] = true
	d.mu.Unlock()

	path := filepath.Join(dir, audio.CoverFileName)
	if ioutils.Exists(path) {
		return
	}

	var err error
	if cover.Path != "" {
		err = ioutils.CopyFile(ctx, cover.Path, path)
	} else {
		err = ioutils.WriteFile(ctx, path, cover.Data)
	}
	if err != nil {
		d.progress(LevelWarning, "Cannot write %s: %v", path, err)
	}
}

// writePlaylists writes one playlist into every directory that received
// converted files in this run.
func (d *Dispatcher) writePlaylists(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dirs := make([]string, 0, len(d.written))
	for dir := range d.written {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	creator := d.deps.Playlist
	for _, dir := range dirs {
		entries := make([]audio.PlaylistEntry, 0, len(d.written[dir]))
		for _, job := range d.written[dir] {
			entries = append(entries, audio.EntryFromJob(job))
		}

		pl := audio.NewPlaylist(filepath.Base(dir), entries)
		name := ioutils.SanitizeFileName(pl.Title + "." + creator.Format().Extension())
		path := filepath.Join(dir, name)

		if err := ioutils.WriteFile(ctx, path, []byte(creator.CreatePlaylist(pl))); err != nil {
			d.progress(LevelWarning, "Cannot write playlist %s: %v", path, err)
			continue
		}
		d.progress(LevelSuccess, "Created playlist %s", path)
	}
}

func (d *Dispatcher) fail(source, destination string, err error) {
	d.failed.Add(1)

	d.mu.Lock()
	d.failures = append(d.failures, model.Failure{Source: source, Destination: destination, Err: err})
	d.mu.Unlock()
}

func (d *Dispatcher) summary(planned int) *model.Summary {
	d.mu.Lock()
	failures := make([]model.Failure, len(d.failures))
	copy(failures, d.failures)
	d.mu.Unlock()

	sort.SliceStable(failures, func(i, j int) bool { return failures[i].Source < failures[j].Source })

	return &model.Summary{
		Converted: int(d.converted.Load()),
		Skipped:   int(d.skipped.Load()),
		Failed:    int(d.failed.Load()),
		Planned:   planned,
		Failures:  failures,
		Bytes:     d.bytes.Load(),
	}
}
