// Package export renders storyboards as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/xuri/excelize/v2"

	"storyboard/internal/domain"
	"storyboard/internal/domain/services"
	"storyboard/internal/imagedata"
)

const (
	sheetName = "Storyboard"

	titleRowHeight  = 45
	headerRowHeight = 30
	sceneRowHeight  = 135

	noImageText     = "NO IMAGE"
	imageFailedText = "[image load failed]"

	// ContentType is the MIME type of the generated workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	headers      = []string{"No.", "Image Preview", "Shot Parameters", "Action", "Dialogue / Notes"}
	columnWidths = []float64{6, 40, 15, 35, 30}
	whitespace   = regexp.MustCompile(`\s+`)
)

// ImageFetcher loads a scene image from a URL or data URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, src string) (*imagedata.Image, error)
}

// Service implements services.ExportService with excelize.
type Service struct {
	fetcher ImageFetcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates an export service.
func NewService(fetcher ImageFetcher, logger *slog.Logger) *Service {
	return &Service{fetcher: fetcher, logger: logger, now: time.Now}
}

var _ services.ExportService = (*Service)(nil)

// Filename replaces whitespace runs in the title with "_" and appends "_Storyboard.xlsx".
func (s *Service) Filename(title string) string {
	return whitespace.ReplaceAllString(title, "_") + "_Storyboard.xlsx"
}

// Validate checks that a project and at least one scene are present.
func Validate(req *services.ExportRequest) error {
	if req == nil {
		return fmt.Errorf("%w: invalid data", domain.ErrValidation)
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.Project, validation.Required),
		validation.Field(&req.Scenes, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: invalid data: %s", domain.ErrValidation, err.Error())
	}
	return nil
}

// WriteWorkbook renders the storyboard and writes the XLSX bytes to w.
// Scene images are fetched one by one; a failed image marks its cell and
// does not fail the export.
func (s *Service) WriteWorkbook(ctx context.Context, req *services.ExportRequest, w io.Writer) error {
	if err := Validate(req); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	b, err := newBuilder(f)
	if err != nil {
		return err
	}

	if err := b.writeTitle(req.Project.Title); err != nil {
		return err
	}
	if err := b.writeHeader(); err != nil {
		return err
	}

	for i, scene := range req.Scenes {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := i + 3
		if err := b.writeScene(row, i+1, scene); err != nil {
			return fmt.Errorf("write scene %d: %w", i+1, err)
		}
		if err := s.placeImage(ctx, b, row, i+1, scene.ImageURL); err != nil {
			return fmt.Errorf("write scene %d image: %w", i+1, err)
		}
	}

	footer := fmt.Sprintf("Generated by Storyboard AI - %s", s.now().Format("2006-01-02"))
	if err := b.writeFooter(len(req.Scenes)+3, footer); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// placeImage embeds the scene image in column B or writes a marker text
func (s *Service) placeImage(ctx context.Context, b *builder, row, index int, src *string) error {
	cell := cellName(2, row)
	if src == nil || strings.TrimSpace(*src) == "" {
		return b.setMarker(cell, noImageText, b.styles.noImage)
	}

	img, err := s.fetcher.Fetch(ctx, *src)
	if err == nil {
		err = b.f.AddPictureFromBytes(sheetName, cell, &excelize.Picture{
			Extension: img.Extension(),
			File:      img.Data,
			Format: &excelize.GraphicOptions{
				AutoFit: true,
				OffsetX: 4,
				OffsetY: 4,
			},
		})
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("export image unavailable", "scene", index, "error", err)
		return b.setMarker(cell, imageFailedText, b.styles.imageFailed)
	}
	return nil
}
