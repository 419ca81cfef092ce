package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"storyboard/internal/domain/services"
)

const (
	fontFamily  = "Microsoft YaHei"
	borderColor = "999999"
)

type styleSet struct {
	title       int
	header      int
	index       int
	image       int
	info        int
	text        int
	noImage     int
	imageFailed int
	footer      int
}

// builder writes the fixed storyboard layout into the single sheet
type builder struct {
	f      *excelize.File
	styles styleSet
}

func newBuilder(f *excelize.File) (*builder, error) {
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	paperA4 := 9
	landscape := "landscape"
	fitWidth, fitHeight := 1, 0
	if err := f.SetPageLayout(sheetName, &excelize.PageLayoutOptions{
		Size:        &paperA4,
		Orientation: &landscape,
		FitToWidth:  &fitWidth,
		FitToHeight: &fitHeight,
	}); err != nil {
		return nil, fmt.Errorf("set page layout: %w", err)
	}

	fitToPage := true
	tabColor := "0070C0"
	if err := f.SetSheetProps(sheetName, &excelize.SheetPropsOptions{
		FitToPage:   &fitToPage,
		TabColorRGB: &tabColor,
	}); err != nil {
		return nil, fmt.Errorf("set sheet properties: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	return &builder{f: f, styles: styles}, nil
}

func newStyles(f *excelize.File) (styleSet, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColor, Style: 1},
		{Type: "top", Color: borderColor, Style: 1},
		{Type: "right", Color: borderColor, Style: 1},
		{Type: "bottom", Color: borderColor, Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true, Indent: 1}

	defs := []*excelize.Style{
		{
			Font:      &excelize.Font{Family: fontFamily, Size: 18, Bold: true, Color: "000000"},
			Alignment: center,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
		},
		{
			Font:      &excelize.Font{Family: fontFamily, Size: 11, Bold: true, Color: "FFFFFF"},
			Alignment: center,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2F5597"}},
			Border:    border,
		},
		{
			Font:      &excelize.Font{Family: fontFamily, Size: 10, Bold: true, Color: "333333"},
			Alignment: center,
			Border:    border,
		},
		{Border: border},
		{
			Font:      &excelize.Font{Family: fontFamily, Size: 9, Color: "666666"},
			Alignment: center,
			Border:    border,
		},
		{
			Font:      &excelize.Font{Family: fontFamily, Size: 10, Color: "333333"},
			Alignment: left,
			Border:    border,
		},
		{
			Font:      &excelize.Font{Italic: true, Color: "CCCCCC"},
			Alignment: center,
			Border:    border,
		},
		{
			Font:      &excelize.Font{Family: fontFamily, Size: 10, Color: "C00000"},
			Alignment: center,
			Border:    border,
		},
		{
			Font:      &excelize.Font{Size: 8, Italic: true, Color: "AAAAAA"},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		},
	}

	var s styleSet
	targets := []*int{&s.title, &s.header, &s.index, &s.image, &s.info, &s.text, &s.noImage, &s.imageFailed, &s.footer}
	for i, def := range defs {
		id, err := f.NewStyle(def)
		if err != nil {
			return styleSet{}, fmt.Errorf("create style: %w", err)
		}
		*targets[i] = id
	}
	return s, nil
}

func (b *builder) writeTitle(title string) error {
	if err := b.f.SetCellStr(sheetName, "A1", strings.ToUpper(title)); err != nil {
		return err
	}
	if err := b.f.MergeCell(sheetName, "A1", "E1"); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheetName, "A1", "E1", b.styles.title); err != nil {
		return err
	}
	return b.f.SetRowHeight(sheetName, 1, titleRowHeight)
}

func (b *builder) writeHeader() error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := b.f.SetSheetRow(sheetName, "A2", &values); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheetName, "A2", "E2", b.styles.header); err != nil {
		return err
	}
	return b.f.SetRowHeight(sheetName, 2, headerRowHeight)
}

func (b *builder) writeScene(row, index int, scene services.ExportScene) error {
	values := []interface{}{index, "", shotInfo(scene), deref(scene.Frame), dialogue(scene)}
	if err := b.f.SetSheetRow(sheetName, cellName(1, row), &values); err != nil {
		return err
	}

	cellStyles := []int{b.styles.index, b.styles.image, b.styles.info, b.styles.text, b.styles.text}
	for col, style := range cellStyles {
		cell := cellName(col+1, row)
		if err := b.f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return b.f.SetRowHeight(sheetName, row, sceneRowHeight)
}

func (b *builder) setMarker(cell, text string, style int) error {
	if err := b.f.SetCellStr(sheetName, cell, text); err != nil {
		return err
	}
	return b.f.SetCellStyle(sheetName, cell, cell, style)
}

func (b *builder) writeFooter(row int, text string) error {
	first, last := cellName(1, row), cellName(5, row)
	if err := b.f.SetCellStr(sheetName, first, text); err != nil {
		return err
	}
	if err := b.f.MergeCell(sheetName, first, last); err != nil {
		return err
	}
	return b.f.SetCellStyle(sheetName, first, last, b.styles.footer)
}

// shotInfo joins shot number, shot type and duration with blank lines
func shotInfo(scene services.ExportScene) string {
	var parts []string
	if v := deref(scene.ShotNumber); v != "" {
		parts = append(parts, "Shot: "+v)
	}
	if v := deref(scene.ShotType); v != "" {
		parts = append(parts, "Type: "+v)
	}
	if d := formatDuration(scene.DurationSeconds); d != "" {
		parts = append(parts, "Duration: "+d+"s")
	}
	return strings.Join(parts, "\n\n")
}

func dialogue(scene services.ExportScene) string {
	var parts []string
	if v := deref(scene.Content); v != "" {
		parts = append(parts, "[Dialogue]: "+v)
	}
	if v := deref(scene.Notes); v != "" {
		parts = append(parts, "[Notes]: "+v)
	}
	return strings.Join(parts, "\n\n")
}

// formatDuration renders a JSON number or string, "" for empty or zero
func formatDuration(v interface{}) string {
	switch d := v.(type) {
	case nil:
		return ""
	case float64:
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%g", d)
	case int:
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%d", d)
	case string:
		d = strings.TrimSpace(d)
		if d == "0" {
			return ""
		}
		return d
	default:
		return fmt.Sprintf("%v", d)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
