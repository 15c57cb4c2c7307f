package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/internal/render"
	"github.com/felitsch/postforge/internal/service/persist"
	"github.com/felitsch/postforge/pkg/errors"
	"github.com/felitsch/postforge/pkg/util"
)

// Job describes one export invocation. It is transient and not
// retained after completion.
type Job struct {
	Platforms    []draft.Platform `json:"platforms"`
	SlideCount   int              `json:"slideCount"`
	Quality      render.Quality   `json:"quality"`
	AdaptContent bool             `json:"adaptContent"`
}

// Result is the produced artifact plus the persistence outcome.
// Warnings carry non-fatal sub-step failures (episode linkage, export
// records) that must not abort an otherwise successful export.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
	PostIDs     map[draft.Platform]string
	Warnings    []string
}

// Persister is the backend boundary the orchestrator coordinates with.
type Persister interface {
	SavePost(ctx context.Context, rec persist.PostRecord) (string, error)
	SaveMultiPlatform(ctx context.Context, req persist.MultiPlatformRequest) ([]persist.SavedPost, error)
	RecordExport(ctx context.Context, rec persist.ExportRecord) error
	UpsertEpisode(ctx context.Context, ep persist.Episode) error
}

// Orchestrator drives the render pipeline across the selected
// platforms and slides, packages the output, and coordinates the
// backend save/export calls. Persistence and rendering are independent:
// a failed save is reported but never skips rendering.
type Orchestrator struct {
	pipeline *render.Pipeline
	persist  Persister
	brand    string
	log      *logger.Logger
	now      func() time.Time
}

func New(pipeline *render.Pipeline, persister Persister, brand string, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		pipeline: pipeline,
		persist:  persister,
		brand:    brand,
		log:      log,
		now:      time.Now,
	}
}

// ExportDraft validates, persists, renders and packages one export.
func (o *Orchestrator) ExportDraft(ctx context.Context, d draft.Draft, job Job) (*Result, error) {
	if job.Quality == "" {
		job.Quality = render.Quality1080
	}
	if err := o.validate(d, job); err != nil {
		return nil, err
	}

	if len(job.Platforms) == 1 {
		return o.exportSingle(ctx, d, job)
	}
	return o.exportMultiPlatform(ctx, d, job)
}

func (o *Orchestrator) validate(d draft.Draft, job Job) error {
	if len(job.Platforms) == 0 {
		return errors.New(errors.ErrCodeValidation, "select at least one platform")
	}
	for _, p := range job.Platforms {
		if !p.Valid() {
			return errors.New(errors.ErrCodeValidation, "unknown platform "+string(p))
		}
	}
	if !job.Quality.Valid() {
		return errors.New(errors.ErrCodeValidation, "unknown quality "+string(job.Quality))
	}
	if job.SlideCount < 1 || job.SlideCount > len(d.Slides) {
		return errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("slide count %d out of range (draft has %d)", job.SlideCount, len(d.Slides)))
	}
	if d.Category == "" {
		return errors.New(errors.ErrCodeValidation, "category is required before export")
	}
	if d.Slides[0].Headline == "" {
		return errors.New(errors.ErrCodeValidation, "first slide needs a headline before export")
	}
	return nil
}

func (o *Orchestrator) exportSingle(ctx context.Context, d draft.Draft, job Job) (*Result, error) {
	platform := job.Platforms[0]
	result := &Result{PostIDs: map[draft.Platform]string{}}
	date := util.DateStamp(o.now())

	// Persist first: "saved" and "exported" are distinct backend states.
	rec, err := persist.RecordFromDraft(d, platform)
	if err != nil {
		return nil, err
	}
	postID, err := o.persist.SavePost(ctx, rec)
	if err != nil {
		o.log.Warn("post save failed, continuing with render", "platform", platform, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("post not saved for %s: %v", platform, err))
	} else {
		result.PostIDs[platform] = postID
	}

	pngs, err := o.renderPlatform(d, platform, job)
	if err != nil {
		return nil, err
	}

	base := o.artifactBase(d.Category, string(platform), date)
	if job.SlideCount == 1 {
		result.Filename = fmt.Sprintf("%s_01.png", base)
		result.ContentType = "image/png"
		result.Data = pngs[0]
	} else {
		var names []string
		for i := range pngs {
			names = append(names, fmt.Sprintf("%s_%s.png", base, util.PadIndex(i+1)))
		}
		data, err := zipFiles(names, pngs)
		if err != nil {
			return nil, err
		}
		result.Filename = fmt.Sprintf("%s_carousel.zip", base)
		result.ContentType = "application/zip"
		result.Data = data
	}

	o.recordExports(ctx, result, job)
	o.upsertEpisode(ctx, d, result, job.Platforms)
	return result, nil
}

func (o *Orchestrator) exportMultiPlatform(ctx context.Context, d draft.Draft, job Job) (*Result, error) {
	result := &Result{PostIDs: map[draft.Platform]string{}}
	date := util.DateStamp(o.now())

	source := d.Platform
	if !source.Valid() {
		source = job.Platforms[0]
	}
	rec, err := persist.RecordFromDraft(d, source)
	if err != nil {
		return nil, err
	}
	platforms := make([]string, len(job.Platforms))
	for i, p := range job.Platforms {
		platforms[i] = string(p)
	}
	saved, err := o.persist.SaveMultiPlatform(ctx, persist.MultiPlatformRequest{
		PostData:       rec,
		Platforms:      platforms,
		AdaptContent:   job.AdaptContent,
		SourcePlatform: string(source),
	})
	if err != nil {
		o.log.Warn("sibling persistence failed, continuing with render", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("posts not saved: %v", err))
	}
	for _, sp := range saved {
		result.PostIDs[draft.Platform(sp.Platform)] = sp.ID
	}

	var names []string
	var files [][]byte
	for _, platform := range job.Platforms {
		pngs, err := o.renderPlatform(d, platform, job)
		if err != nil {
			return nil, err
		}
		base := o.artifactBase(d.Category, string(platform), date)
		for i, png := range pngs {
			names = append(names, fmt.Sprintf("%s/%s_%s.png", platform, base, util.PadIndex(i+1)))
			files = append(files, png)
		}
	}

	data, err := zipFiles(names, files)
	if err != nil {
		return nil, err
	}
	result.Filename = o.artifactBase(d.Category, "all_platforms", date) + ".zip"
	result.ContentType = "application/zip"
	result.Data = data

	o.recordExports(ctx, result, job)
	o.upsertEpisode(ctx, d, result, job.Platforms)
	return result, nil
}

func (o *Orchestrator) renderPlatform(d draft.Draft, platform draft.Platform, job Job) ([][]byte, error) {
	out := make([][]byte, 0, job.SlideCount)
	for i := 0; i < job.SlideCount; i++ {
		img, err := o.pipeline.RenderSlide(d.Slides[i], render.Options{
			Platform:   platform,
			Quality:    job.Quality,
			SlideIndex: i,
			SlideCount: job.SlideCount,
			Arc:        d.Arc,
		})
		if err != nil {
			return nil, err
		}
		png, err := render.EncodePNG(img)
		if err != nil {
			return nil, err
		}
		out = append(out, png)
	}
	return out, nil
}

func (o *Orchestrator) recordExports(ctx context.Context, result *Result, job Job) {
	for _, platform := range job.Platforms {
		postID, ok := result.PostIDs[platform]
		if !ok {
			continue
		}
		err := o.persist.RecordExport(ctx, persist.ExportRecord{
			PostID:     postID,
			Platform:   string(platform),
			Resolution: string(job.Quality),
			SlideCount: job.SlideCount,
		})
		if err != nil {
			o.log.Warn("export record failed", "post_id", postID, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("export not recorded for %s: %v", platform, err))
		}
	}
}

// upsertEpisode links an arc draft to its episode record. Failure here
// is non-fatal: the artifact and post records already exist.
func (o *Orchestrator) upsertEpisode(ctx context.Context, d draft.Draft, result *Result, order []draft.Platform) {
	if d.Arc == nil || len(result.PostIDs) == 0 {
		return
	}
	postID := ""
	for _, p := range order {
		if id, ok := result.PostIDs[p]; ok {
			postID = id
			break
		}
	}
	if postID == "" {
		return
	}
	title := ""
	if len(d.Slides) > 0 {
		title = d.Slides[0].Headline
	}
	err := o.persist.UpsertEpisode(ctx, persist.Episode{
		ArcID:         d.Arc.ID,
		EpisodeNumber: d.Arc.EpisodeNumber,
		PostID:        postID,
		Title:         title,
	})
	if err != nil {
		o.log.Warn("episode upsert failed", "arc_id", d.Arc.ID, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("episode not updated: %v", err))
	}
}

func (o *Orchestrator) artifactBase(category, platform, date string) string {
	return fmt.Sprintf("%s_%s_%s_%s", o.brand, util.Slug(category), platform, date)
}

func zipFiles(names []string, files [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to create archive entry")
		}
		if _, err := w.Write(files[i]); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to write archive entry")
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to finalize archive")
	}
	return buf.Bytes(), nil
}
