package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
	"github.com/ironsheep/paint-match-mcp/internal/detection"
	"github.com/ironsheep/paint-match-mcp/internal/imaging"
)

// ErrSuperseded is returned by LoadImage when a newer load or a Clear made
// its result stale.
var ErrSuperseded = errors.New("image load superseded by a newer request")

// State is the session's position in its lifecycle.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StatePreviewed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StatePreviewed:
		return "previewed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Loader resolves an image source to a decoded image. *imaging.ImageCache
// satisfies it. Evict releases whatever the loader retained for src once the
// session no longer needs it.
type Loader interface {
	Load(ctx context.Context, src imaging.Source) (image.Image, error)
	Evict(src imaging.Source)
}

// Options configures a Session.
type Options struct {
	// MaxWidth bounds the working buffer width. Zero or less keeps full size.
	MaxWidth int

	// Detection configures wall color sampling.
	Detection detection.Options

	// Settings and Mode are the initial render settings, restored by Clear.
	Settings imaging.BlendSettings
	Mode     imaging.Mode

	// DecodeTimeout bounds each LoadImage. Zero means no limit beyond ctx.
	DecodeTimeout time.Duration

	// JPEGQuality is used by Export.
	JPEGQuality int

	Logger hclog.Logger
}

// DefaultOptions returns the standard session configuration.
func DefaultOptions() Options {
	return Options{
		MaxWidth:      imaging.DefaultMaxWidth,
		Detection:     detection.DefaultOptions(),
		Settings:      imaging.DefaultBlendSettings(),
		Mode:          imaging.ModeOverlay,
		DecodeTimeout: 15 * time.Second,
		JPEGQuality:   imaging.DefaultJPEGQuality,
	}
}

// SettingsPatch holds a partial BlendSettings update. Nil fields are kept.
type SettingsPatch struct {
	Tolerance *float64 `json:"tolerance,omitempty"`
	Feather   *float64 `json:"feather,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
}

func (p SettingsPatch) apply(s imaging.BlendSettings) imaging.BlendSettings {
	if p.Tolerance != nil {
		s.Tolerance = *p.Tolerance
	}
	if p.Feather != nil {
		s.Feather = *p.Feather
	}
	if p.Opacity != nil {
		s.Opacity = *p.Opacity
	}
	return s
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State         State                     `json:"state"`
	Width         int                       `json:"width,omitempty"`
	Height        int                       `json:"height,omitempty"`
	WallColors    []detection.DominantColor `json:"wall_colors"`
	SelectedColor string                    `json:"selected_color,omitempty"`
	Settings      imaging.BlendSettings     `json:"settings"`
	Mode          imaging.Mode              `json:"mode"`
}

// Session is one editing context: a working image, its wall colors, and the
// current preview.
type Session struct {
	loader Loader
	opts   Options
	logger hclog.Logger

	mu         sync.Mutex
	state      State
	source     imaging.Source
	original   *image.NRGBA
	preview    *image.NRGBA
	wallColors []detection.DominantColor
	selected   string
	settings   imaging.BlendSettings
	mode       imaging.Mode

	loadGen    uint64
	cancelLoad context.CancelFunc
}

// New creates an empty session. Invalid initial settings fall back to the defaults.
func New(loader Loader, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Settings.Validate() != nil {
		opts.Settings = imaging.DefaultBlendSettings()
	}
	if _, err := imaging.ParseMode(string(opts.Mode)); err != nil || opts.Mode == "" {
		opts.Mode = imaging.ModeOverlay
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = imaging.DefaultJPEGQuality
	}

	return &Session{
		loader:   loader,
		opts:     opts,
		logger:   opts.Logger,
		settings: opts.Settings,
		mode:     opts.Mode,
	}
}

// LoadImage decodes src into a downscaled working buffer, detects its wall
// colors and moves the session to Loaded. Any selected color is dropped;
// settings are kept.
//
// # Errors
//
//   - imaging.ErrImageDecode if the source cannot be read or decoded in time
//   - ErrSuperseded if a newer LoadImage or Clear started meanwhile
//
// On error the previous state is kept.
func (s *Session) LoadImage(ctx context.Context, src imaging.Source) (*Snapshot, error) {
	s.mu.Lock()
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.loadGen++
	gen := s.loadGen
	var loadCtx context.Context
	var cancel context.CancelFunc
	if s.opts.DecodeTimeout > 0 {
		loadCtx, cancel = context.WithTimeout(ctx, s.opts.DecodeTimeout)
	} else {
		loadCtx, cancel = context.WithCancel(ctx)
	}
	s.cancelLoad = cancel
	s.mu.Unlock()
	defer cancel()

	s.logger.Debug("loading image", "source", src.Key(), "generation", gen)

	buf, colors, err := s.decode(loadCtx, src)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.loadGen {
		s.logger.Debug("discarding stale image load", "generation", gen, "current", s.loadGen)
		if err == nil && sourceKey(src) != sourceKey(s.source) {
			s.evict(src)
		}
		return nil, ErrSuperseded
	}
	s.cancelLoad = nil

	if err != nil {
		s.logger.Warn("image load failed", "error", err)
		return nil, err
	}

	if sourceKey(src) != sourceKey(s.source) {
		s.evict(s.source)
	}
	s.source = imaging.Source{Path: src.Path, URL: src.URL}
	s.original = buf
	s.preview = buf
	s.wallColors = colors
	s.selected = ""
	s.setState(StateLoaded)

	return s.snapshotLocked(), nil
}

// sourceKey identifies the cacheable part of src. Byte sources are never
// retained by the loader, so they map to "".
func sourceKey(src imaging.Source) string {
	if src.Path == "" && src.URL == "" {
		return ""
	}
	return src.Key()
}

func (s *Session) evict(src imaging.Source) {
	if sourceKey(src) == "" {
		return
	}
	s.logger.Debug("releasing cached image", "source", src.Key())
	s.loader.Evict(src)
}

func (s *Session) decode(ctx context.Context, src imaging.Source) (*image.NRGBA, []detection.DominantColor, error) {
	img, err := s.loader.Load(ctx, src)
	if err != nil {
		if !errors.Is(err, imaging.ErrImageDecode) {
			err = fmt.Errorf("%w: %w", imaging.ErrImageDecode, err)
		}
		return nil, nil, err
	}

	buf := imaging.FitWidth(img, s.opts.MaxWidth)
	colors, err := detection.DetectWallColors(buf, s.opts.Detection)
	if err != nil {
		return nil, nil, err
	}
	return buf, colors, nil
}

// ApplyColor renders hex over the original image using the current settings
// and moves the session to Previewed.
//
// # Errors
//
//   - imaging.ErrNoImageLoaded in the Empty state
//   - colormath.ErrInvalidColorFormat if hex is unparsable
func (s *Session) ApplyColor(hex string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return nil, imaging.ErrNoImageLoaded
	}
	canonical, err := colormath.Canonicalize(hex)
	if err != nil {
		return nil, err
	}

	if err := s.renderLocked(canonical, s.settings, s.mode); err != nil {
		return nil, err
	}
	return s.snapshotLocked(), nil
}

// UpdateSettings merges patch into the current settings. If a color is
// selected the preview is re-rendered with the new settings.
//
// Returns imaging.ErrInvalidSettings, leaving settings unchanged, if the
// merged settings are out of range.
func (s *Session) UpdateSettings(patch SettingsPatch) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := patch.apply(s.settings)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if s.selected != "" {
		if err := s.renderLocked(s.selected, next, s.mode); err != nil {
			return nil, err
		}
	}
	s.settings = next
	s.logger.Debug("settings updated", "tolerance", next.Tolerance, "feather", next.Feather, "opacity", next.Opacity)

	return s.snapshotLocked(), nil
}

// SetMode switches between the overlay and feathered renderers, re-rendering
// if a color is selected.
func (s *Session) SetMode(mode imaging.Mode) (*Snapshot, error) {
	m, err := imaging.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != "" {
		if err := s.renderLocked(s.selected, s.settings, m); err != nil {
			return nil, err
		}
	}
	s.mode = m
	return s.snapshotLocked(), nil
}

// Reset discards the selected color and restores the preview to the original.
// Wall colors and settings are kept.
func (s *Session) Reset() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return nil, imaging.ErrNoImageLoaded
	}
	s.preview = s.original
	s.selected = ""
	s.setState(StateLoaded)
	return s.snapshotLocked(), nil
}

// Clear returns to Empty with default settings and asks the loader to release
// the photo. Any in-flight LoadImage becomes stale.
func (s *Session) Clear() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.loadGen++

	s.evict(s.source)
	s.source = imaging.Source{}
	s.original = nil
	s.preview = nil
	s.wallColors = nil
	s.selected = ""
	s.settings = s.opts.Settings
	s.mode = s.opts.Mode
	s.setState(StateEmpty)

	return s.snapshotLocked()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Original returns the downscaled working image, or nil when Empty.
// The buffer must not be modified.
func (s *Session) Original() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original
}

// Preview returns the current preview, which is the original until a color
// is applied. The buffer must not be modified.
func (s *Session) Preview() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Export encodes the current preview as "jpeg" (default) or "png".
func (s *Session) Export(format string) (*imaging.EncodedImage, error) {
	f, err := imaging.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	preview := s.preview
	s.mu.Unlock()

	if preview == nil {
		return nil, imaging.ErrNoImageLoaded
	}
	return imaging.EncodeBase64(preview, f, s.opts.JPEGQuality)
}

func (s *Session) renderLocked(hex string, settings imaging.BlendSettings, mode imaging.Mode) error {
	out, err := imaging.Recolor(s.original, detection.MaskColors(s.wallColors), hex, settings, mode)
	if err != nil {
		return err
	}
	s.preview = out
	s.selected = hex
	s.setState(StatePreviewed)
	return nil
}

func (s *Session) setState(next State) {
	if s.state != next {
		s.logger.Debug("state transition", "from", s.state, "to", next)
	}
	s.state = next
}

func (s *Session) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		State:         s.state,
		WallColors:    append([]detection.DominantColor{}, s.wallColors...),
		SelectedColor: s.selected,
		Settings:      s.settings,
		Mode:          s.mode,
	}
	if s.original != nil {
		snap.Width = s.original.Rect.Dx()
		snap.Height = s.original.Rect.Dy()
	}
	return snap
}
