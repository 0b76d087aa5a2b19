// Package dataset loads the cultural-objects catalog from an Excel
// workbook and serializes it into prompt text. The catalog is read once
// at startup and never changes afterwards.
package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Field is one named cell of a catalog object.
type Field struct {
	Name  string
	Value string
}

// Object is one cultural object: the non-empty cells of a row, keyed by
// the header row, in column order.
type Object struct {
	Fields []Field
}

// Catalog is the loaded dataset plus its pre-rendered prompt text.
type Catalog struct {
	Objects    []Object
	promptText string
}

// Load reads the first sheet of the workbook at path. A missing file is
// not fatal: the bot still runs, with an empty catalog, exactly like the
// original did when the dataset could not be found.
func Load(path string) (*Catalog, error) {
	if path == "" {
		slog.Warn("dataset path not configured, catalog is empty")
		return emptyCatalog(), nil
	}
	if _, err := os.Stat(path); err != nil {
		slog.Error("dataset workbook not found, catalog is empty", "path", path, "error", err)
		return emptyCatalog(), nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		slog.Warn("dataset sheet has no data rows", "sheet", sheets[0])
		return emptyCatalog(), nil
	}

	headers := rows[0]
	objects := make([]Object, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var obj Object
		for i, cell := range row {
			if i >= len(headers) {
				break
			}
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			obj.Fields = append(obj.Fields, Field{Name: headers[i], Value: value})
		}
		if len(obj.Fields) > 0 {
			objects = append(objects, obj)
		}
	}

	c := &Catalog{Objects: objects}
	c.promptText = serialize(objects)
	slog.Info("dataset loaded", "path", path, "objects", len(objects))
	return c, nil
}

func emptyCatalog() *Catalog {
	return &Catalog{promptText: serialize(nil)}
}

// Len reports the number of catalog objects.
func (c *Catalog) Len() int {
	return len(c.Objects)
}

// PromptText returns the catalog rendered as plain prompt lines.
func (c *Catalog) PromptText() string {
	return c.promptText
}

// serialize renders objects as readable lines without JSON, one object
// per line, newlines inside values flattened to spaces.
func serialize(objects []Object) string {
	if len(objects) == 0 {
		return "Нет данных о культурных объектах."
	}

	replacer := strings.NewReplacer("\n", " ", "\r", " ")
	lines := make([]string, 0, len(objects))
	for i, obj := range objects {
		parts := make([]string, 0, len(obj.Fields))
		for _, f := range obj.Fields {
			parts = append(parts, f.Name+": "+replacer.Replace(f.Value))
		}
		lines = append(lines, fmt.Sprintf("• Объект %d: %s", i+1, strings.Join(parts, " | ")))
	}
	return strings.Join(lines, "\n")
}
