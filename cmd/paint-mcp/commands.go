package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
	"github.com/ironsheep/paint-match-mcp/internal/config"
	"github.com/ironsheep/paint-match-mcp/internal/detection"
	"github.com/ironsheep/paint-match-mcp/internal/imaging"
	"github.com/ironsheep/paint-match-mcp/internal/paint"
	"github.com/ironsheep/paint-match-mcp/internal/server"
)

// setup loads configuration and the logger shared by every command.
func setup() (config.Config, hclog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, cfg.NewLogger("paint-mcp"), nil
}

// openStore selects the catalog backend: PostgreSQL when a database URL is
// configured, else a catalog file, else an empty catalog. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg config.Config, logger hclog.Logger) (paint.Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := paint.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("using postgres paint catalog")
		return pg, func() { pg.Close() }, nil

	case cfg.CatalogPath != "":
		store, err := paint.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("loaded paint catalog", "path", cfg.CatalogPath, "paints", store.Len())
		return store, func() {}, nil

	default:
		logger.Warn("no paint catalog configured; paint tools will return no results")
		return paint.NewMemoryStore(nil), func() {}, nil
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger.Debug("starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(server.Options{
		Config:  cfg,
		Store:   store,
		Logger:  logger,
		Version: Version,
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadWorking decodes a path or URL and downscales it to the working width.
func loadWorking(ctx context.Context, cfg config.Config, ref string) (*image.NRGBA, error) {
	src := imaging.SourceFromString(ref)
	if err := src.Validate(); err != nil {
		return nil, err
	}
	cache := imaging.NewImageCache(imaging.NewFetcher(imaging.FetchOptions{
		Timeout:          cfg.FetchTimeout,
		UserAgentVersion: Version,
	}))
	if cfg.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DecodeTimeout)
		defer cancel()
	}
	img, err := cache.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return imaging.FitWidth(img, cfg.MaxImageWidth), nil
}

func detectCmd() *cobra.Command {
	var maxColors int

	cmd := &cobra.Command{
		Use:   "detect <image-path-or-url>",
		Short: "Print the dominant wall colors of a photo as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			buf, err := loadWorking(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			res, err := detection.Detect(buf, detection.Options{
				SampleTarget: cfg.SampleTarget,
				MaxColors:    maxColors,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().IntVar(&maxColors, "max-colors", detection.DefaultMaxColors, "maximum number of colors")
	return cmd
}

func recolorCmd() *cobra.Command {
	var (
		target     string
		out        string
		mode       string
		maskColors []string
		tolerance  float64
		feather    float64
		opacity    float64
	)

	cmd := &cobra.Command{
		Use:   "recolor <image-path-or-url>",
		Short: "Paint the walls of a photo and write the preview to a file",
		Long: `Paint the walls of a photo and write the preview to a file.

The wall colors are detected unless --mask is given. The output format
follows the --out extension (.png for PNG, anything else JPEG).

Examples:
  paint-mcp recolor room.jpg --color "#9caf88" --out preview.jpg
  paint-mcp recolor room.jpg --color "#9caf88" --mode feathered --feather 40 --out preview.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			m, err := imaging.ParseMode(mode)
			if err != nil {
				return err
			}

			settings := imaging.BlendSettings{Tolerance: cfg.Tolerance, Feather: cfg.Feather, Opacity: cfg.Opacity}
			flags := cmd.Flags()
			if flags.Changed("tolerance") {
				settings.Tolerance = tolerance
			}
			if flags.Changed("feather") {
				settings.Feather = feather
			}
			if flags.Changed("opacity") {
				settings.Opacity = opacity
			}

			buf, err := loadWorking(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			mask, err := parseMask(maskColors)
			if err != nil {
				return err
			}
			if !flags.Changed("mask") {
				colors, err := detection.DetectWallColors(buf, detection.Options{SampleTarget: cfg.SampleTarget})
				if err != nil {
					return err
				}
				mask = detection.MaskColors(colors)
				logger.Debug("detected wall colors", "count", len(mask))
			}

			preview, err := imaging.Recolor(buf, mask, target, settings, m)
			if err != nil {
				return err
			}

			format, _ := imaging.ParseFormat("")
			if strings.EqualFold(filepath.Ext(out), ".png") {
				format, _ = imaging.ParseFormat("png")
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := imaging.Encode(f, preview, format, cfg.JPEGQuality); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, preview.Rect.Dx(), preview.Rect.Dy())
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "color", "", "target paint color as #RRGGBB")
	cmd.Flags().StringVarP(&out, "out", "o", "preview.jpg", "output file")
	cmd.Flags().StringVar(&mode, "mode", string(imaging.ModeOverlay), "render mode: overlay or feathered")
	cmd.Flags().StringSliceVar(&maskColors, "mask", nil, "wall colors to repaint (skips detection)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "match tolerance (default from config)")
	cmd.Flags().Float64Var(&feather, "feather", 0, "feather width (default from config)")
	cmd.Flags().Float64Var(&opacity, "opacity", 0, "blend opacity 0-1 (default from config)")
	_ = cmd.MarkFlagRequired("color")
	return cmd
}

func parseMask(hexes []string) ([]colormath.RGB, error) {
	out := make([]colormath.RGB, 0, len(hexes))
	for _, h := range hexes {
		c, err := colormath.HexToRGB(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func matchCmd() *cobra.Command {
	var (
		maxResults  int
		maxDistance float64
	)

	cmd := &cobra.Command{
		Use:   "match <#RRGGBB>",
		Short: "Print the catalog paints closest to a color as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := paint.NewService(store, logger.Named("catalog"))
			res, err := svc.MatchColor(cmd.Context(), args[0], paint.MatchOptions{
				MaxResults:  maxResults,
				MaxDistance: maxDistance,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().IntVar(&maxResults, "max-results", paint.DefaultMaxResults, "maximum matches")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", paint.DefaultMaxDistance, "maximum weighted distance")
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the PostgreSQL paint catalog",
	}
	cmd.AddCommand(catalogImportCmd())
	return cmd
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.yaml|catalog.json>",
		Short: "Insert or update paints from a catalog file into PostgreSQL",
		Long: `Insert or update paints from a catalog file into PostgreSQL.

Requires PAINT_MCP_DATABASE_URL. The schema is created if missing and
existing rows are updated by id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("%sDATABASE_URL is not set", config.Prefix)
			}
			ctx := cmd.Context()

			file, err := paint.LoadFile(args[0])
			if err != nil {
				return err
			}
			records, err := file.Query(ctx, paint.Filter{})
			if err != nil {
				return err
			}

			pg, err := paint.OpenPostgres(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := pg.Upsert(ctx, records); err != nil {
				return err
			}
			logger.Info("catalog imported", "path", args[0], "paints", len(records))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d paints\n", len(records))
			return nil
		},
	}
}
