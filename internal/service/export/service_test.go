package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"storyboard/internal/domain"
	"storyboard/internal/domain/services"
	"storyboard/internal/imagedata"
)

type mapFetcher map[string]*imagedata.Image

func (m mapFetcher) Fetch(_ context.Context, src string) (*imagedata.Image, error) {
	img, ok := m[src]
	if !ok {
		return nil, errors.New("404")
	}
	return img, nil
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ptr(s string) *string { return &s }

func newTestService(fetcher ImageFetcher) *Service {
	s := NewService(fetcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestFilename(t *testing.T) {
	s := newTestService(nil)
	assert.Equal(t, "My_Short_Film_Storyboard.xlsx", s.Filename("My Short \t Film"))
	assert.Equal(t, "Solo_Storyboard.xlsx", s.Filename("Solo"))
}

func TestWriteWorkbook_Layout(t *testing.T) {
	fetcher := mapFetcher{"https://img.example/1.png": {Data: tinyPNG(t), ContentType: "image/png"}}
	s := newTestService(fetcher)

	req := &services.ExportRequest{
		Project: &services.ExportProject{Title: "Harbour Night"},
		Scenes: []services.ExportScene{
			{
				ShotNumber:      ptr("1"),
				ShotType:        ptr("wide"),
				DurationSeconds: float64(5),
				Frame:           ptr("Wide: harbour"),
				Content:         ptr("Waves crash"),
				Notes:           ptr("Slow dolly"),
				ImageURL:        ptr("https://img.example/1.png"),
			},
			{Content: ptr("No picture here"), DurationSeconds: "7"},
			{ImageURL: ptr("https://img.example/missing.png")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, s.WriteWorkbook(context.Background(), req, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	cell := func(name string) string {
		v, err := f.GetCellValue(sheetName, name)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "HARBOUR NIGHT", cell("A1"))
	assert.Equal(t, "No.", cell("A2"))
	assert.Equal(t, "Dialogue / Notes", cell("E2"))

	assert.Equal(t, "1", cell("A3"))
	assert.Equal(t, "Shot: 1\n\nType: wide\n\nDuration: 5s", cell("C3"))
	assert.Equal(t, "Wide: harbour", cell("D3"))
	assert.Equal(t, "[Dialogue]: Waves crash\n\n[Notes]: Slow dolly", cell("E3"))
	assert.Equal(t, "", cell("B3"))

	pics, err := f.GetPictures(sheetName, "B3")
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	assert.Equal(t, "Duration: 7s", cell("C4"))
	assert.Equal(t, noImageText, cell("B4"))
	assert.Equal(t, imageFailedText, cell("B5"))

	assert.Equal(t, "Generated by Storyboard AI - 2026-10-18", cell("A6"))

	merged, err := f.GetMergeCells(sheetName)
	require.NoError(t, err)
	var ranges []string
	for _, m := range merged {
		ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	assert.ElementsMatch(t, []string{"A1:E1", "A6:E6"}, ranges)

	for row, want := range map[int]float64{1: titleRowHeight, 2: headerRowHeight, 3: sceneRowHeight, 5: sceneRowHeight} {
		h, err := f.GetRowHeight(sheetName, row)
		require.NoError(t, err)
		assert.Equal(t, want, h, "row %d", row)
	}

	width, err := f.GetColWidth(sheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, 40.0, width)
}

func TestWriteWorkbook_RejectsEmpty(t *testing.T) {
	s := newTestService(mapFetcher{})
	tests := []*services.ExportRequest{
		nil,
		{Scenes: []services.ExportScene{{}}},
		{Project: &services.ExportProject{Title: "x"}},
		{Project: &services.ExportProject{Title: "x"}, Scenes: []services.ExportScene{}},
	}
	for _, req := range tests {
		var buf bytes.Buffer
		err := s.WriteWorkbook(context.Background(), req, &buf)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, buf.Len())
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", formatDuration(nil))
	assert.Equal(t, "", formatDuration(float64(0)))
	assert.Equal(t, "2.5", formatDuration(2.5))
	assert.Equal(t, "12", formatDuration("12"))
	assert.Equal(t, "3", formatDuration(3))
}
