package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	mhttp "github.com/handiism/metronome/internal/http"
	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/model"
	"github.com/handiism/metronome/internal/tool"
)

var log = logger.Get("Analysis")

const (
	DefaultAcoustIDURL    = "https://api.acoustid.org/v2/lookup"
	DefaultMusicBrainzURL = "https://musicbrainz.org/ws/2"

	// DefaultMinScore is the lowest AcoustID match score accepted.
	DefaultMinScore = 0.5

	acoustIDRate    = 3
	musicBrainzRate = 1

	// MusicBrainz answers 503 when its global rate limit is exceeded.
	musicBrainzRetries = 2
)

// ErrAnalysisUnavailable marks every reason enrichment could not happen:
// a missing key or binary, a tool or network failure, or no match.
var ErrAnalysisUnavailable = errors.New("analysis unavailable")

// NoMatchError is returned when AcoustID knows no recording for a
// fingerprint with a good enough score.
type NoMatchError struct {
	Path string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no acoustid match for %s", e.Path)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrAnalysisUnavailable
}

// Identifier enriches track metadata from the audio content itself.
//
// Identify is best-effort: on any failure it returns (nil, false) and the
// caller carries on with the metadata it already has. hint holds that
// metadata and is used to break ties between candidate recordings.
type Identifier interface {
	Identify(ctx context.Context, path string, hint model.Metadata) (model.Metadata, bool)
}

// Config holds the lookup settings.
type Config struct {
	// APIKey is the AcoustID application key.
	APIKey string

	AcoustIDURL    string
	MusicBrainzURL string
	MinScore       float64

	// UserAgent is sent to both services. MusicBrainz asks for
	// "Application/Version ( contact )"; empty uses mhttp.DefaultUserAgent.
	UserAgent string
}

// Client identifies tracks with fpcalc, AcoustID and MusicBrainz.
type Client struct {
	fpcalc      tool.Tool
	acoustid    *mhttp.Client
	musicbrainz *mhttp.Client
	cfg         Config
	metric      *metrics.Levenshtein
}

// NewClient returns a Client. It fails with ErrAnalysisUnavailable when
// fpcalc was not found or no API key is configured.
func NewClient(fpcalc tool.Tool, cfg Config) (*Client, error) {
	if fpcalc == nil {
		return nil, fmt.Errorf("fpcalc not found: %w", ErrAnalysisUnavailable)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("no AcoustID API key configured: %w", ErrAnalysisUnavailable)
	}
	if cfg.AcoustIDURL == "" {
		cfg.AcoustIDURL = DefaultAcoustIDURL
	}
	if cfg.MusicBrainzURL == "" {
		cfg.MusicBrainzURL = DefaultMusicBrainzURL
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = mhttp.DefaultUserAgent
	}

	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	acoustid := mhttp.NewClient(
		mhttp.WithUserAgent(cfg.UserAgent),
		mhttp.WithRateLimit(acoustIDRate),
	)
	musicbrainz := mhttp.NewClient(
		mhttp.WithUserAgent(cfg.UserAgent),
		mhttp.WithRateLimit(musicBrainzRate),
		mhttp.WithRetries(musicBrainzRetries),
	)

	return &Client{
		fpcalc:      fpcalc,
		acoustid:    acoustid,
		musicbrainz: musicbrainz,
		cfg:         cfg,
		metric:      metric,
	}, nil
}

// Identify implements Identifier.
func (c *Client) Identify(ctx context.Context, path string, hint model.Metadata) (model.Metadata, bool) {
	meta, err := c.Lookup(ctx, path, hint)
	if err != nil {
		if ctx.Err() == nil {
			log.Emit(logger.DEBUG, "no enrichment for %s: %v\n", path, err)
		}
		return nil, false
	}
	return meta, true
}

// Lookup is Identify with the failure reason. Every error it returns
// matches ErrAnalysisUnavailable.
func (c *Client) Lookup(ctx context.Context, path string, hint model.Metadata) (model.Metadata, error) {
	fp, err := c.fingerprint(ctx, path)
	if err != nil {
		return nil, unavailable(err)
	}

	results, err := c.lookupAcoustID(ctx, fp)
	if err != nil {
		return nil, unavailable(err)
	}

	rec, ok := c.bestRecording(results, hint[model.KeyTrackTitle])
	if !ok {
		return nil, &NoMatchError{Path: path}
	}

	meta := rec.metadata()

	year, err := c.firstReleaseYear(ctx, rec.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, unavailable(ctx.Err())
		}
		log.Emit(logger.DEBUG, "musicbrainz lookup for %s failed: %v\n", rec.ID, err)
	} else {
		meta.SetIfPresent(model.KeyAlbumYear, year)
	}

	return meta, nil
}

func unavailable(err error) error {
	if errors.Is(err, ErrAnalysisUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
}

type fingerprint struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

func (c *Client) fingerprint(ctx context.Context, path string) (*fingerprint, error) {
	res, err := c.fpcalc.Invoke(ctx, "-json", path)
	if err != nil {
		return nil, fmt.Errorf("fpcalc: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("fpcalc exited with status %d: %s", res.ExitCode, res.Diagnostic())
	}

	var fp fingerprint
	if err := json.Unmarshal(res.Stdout, &fp); err != nil {
		return nil, fmt.Errorf("decode fpcalc output: %w", err)
	}
	if strings.TrimSpace(fp.Fingerprint) == "" || fp.Duration <= 0 {
		return nil, errors.New("fpcalc returned an empty fingerprint")
	}
	return &fp, nil
}

type artist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
}

func joinArtists(artists []artist) string {
	var sb strings.Builder
	for i, a := range artists {
		sb.WriteString(a.Name)
		if a.JoinPhrase != "" {
			sb.WriteString(a.JoinPhrase)
		} else if i < len(artists)-1 {
			sb.WriteString(", ")
		}
	}
	return strings.TrimSpace(sb.String())
}

type releaseGroup struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Artists []artist `json:"artists"`
}

type recording struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Artists       []artist       `json:"artists"`
	ReleaseGroups []releaseGroup `json:"releasegroups"`
}

// metadata converts the recording to metadata keys, preferring an album
// release group over singles and compilations.
func (r *recording) metadata() model.Metadata {
	meta := model.Metadata{}
	meta.SetIfPresent(model.KeyTrackTitle, r.Title)
	meta.SetIfPresent(model.KeyArtistName, joinArtists(r.Artists))

	if len(r.ReleaseGroups) > 0 {
		group := r.ReleaseGroups[0]
		for _, g := range r.ReleaseGroups {
			if strings.EqualFold(g.Type, "album") {
				group = g
				break
			}
		}
		meta.SetIfPresent(model.KeyAlbumTitle, group.Title)
		meta.SetIfPresent(model.KeyAlbumArtist, joinArtists(group.Artists))
	}

	return meta
}

type lookupResult struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Recordings []recording `json:"recordings"`
}

type lookupResponse struct {
	Status  string         `json:"status"`
	Results []lookupResult `json:"results"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) lookupAcoustID(ctx context.Context, fp *fingerprint) ([]lookupResult, error) {
	q := url.Values{}
	q.Set("client", c.cfg.APIKey)
	q.Set("meta", "recordings releasegroups")
	q.Set("duration", strconv.Itoa(int(fp.Duration)))
	q.Set("fingerprint", fp.Fingerprint)

	var resp lookupResponse
	if err := c.acoustid.GetJSON(ctx, c.cfg.AcoustIDURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("acoustid lookup: %w", err)
	}
	if resp.Status != "ok" {
		if resp.Error != nil {
			return nil, fmt.Errorf("acoustid lookup: %s (code %d)", resp.Error.Message, resp.Error.Code)
		}
		return nil, fmt.Errorf("acoustid lookup: status %q", resp.Status)
	}

	return resp.Results, nil
}

// bestRecording picks the result with the highest score and, among its
// recordings, the one whose title is closest to title.
func (c *Client) bestRecording(results []lookupResult, title string) (*recording, bool) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	for _, res := range results {
		if res.Score < c.cfg.MinScore {
			break
		}

		var (
			best      *recording
			bestScore = -1.0
		)
		for i := range res.Recordings {
			rec := &res.Recordings[i]
			if rec.ID == "" || rec.Title == "" {
				continue
			}
			score := 0.0
			if title != "" {
				score = strutil.Similarity(rec.Title, title, c.metric)
			}
			if score > bestScore {
				best, bestScore = rec, score
			}
		}
		if best != nil {
			return best, true
		}
	}

	return nil, false
}

type mbRecording struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	FirstReleaseDate string `json:"first-release-date"`
	Releases         []struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"releases"`
}

func (c *Client) firstReleaseYear(ctx context.Context, recordingID string) (string, error) {
	u := fmt.Sprintf("%s/recording/%s?inc=artist-credits+releases&fmt=json",
		strings.TrimRight(c.cfg.MusicBrainzURL, "/"),
		url.PathEscape(recordingID))

	var rec mbRecording
	if err := c.musicbrainz.GetJSON(ctx, u, &rec); err != nil {
		return "", err
	}

	date := rec.FirstReleaseDate
	if date == "" {
		for _, r := range rec.Releases {
			if r.Date != "" && (date == "" || r.Date < date) {
				date = r.Date
			}
		}
	}
	if date == "" {
		return "", fmt.Errorf("recording %s has no release date", recordingID)
	}

	return model.NormalizeYear(date), nil
}
