// Package export renders a user's aggregated shopping list as plain text or PDF.
// The layout lives in a Liquid template; the PDF is drawn from the rendered lines.
package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/osteele/liquid"

	"github.com/pageza/foodgram/backend/internal/types"
)

//go:embed templates/shopping_list.liquid
var shoppingListTemplate string

// DejaVu covers Latin, Cyrillic and Greek, which is what ingredient names are written in
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	defaultFont []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	defaultBoldFont []byte
)

const fontFamily = "body"

// Filename is the name offered to clients for the PDF download
const Filename = "shopping_list.pdf"

// ShoppingList is everything a rendered document shows
type ShoppingList struct {
	Owner       string
	Username    string
	GeneratedAt time.Time
	Items       []types.ShoppingListItem
}

// Renderer turns shopping lists into documents. It is safe for concurrent use.
type Renderer struct {
	tpl      *liquid.Template
	font     []byte
	boldFont []byte
}

// NewRenderer parses the layout template. fontPath optionally names a UTF-8
// TrueType font that replaces the embedded DejaVu Sans for both weights.
func NewRenderer(fontPath string) (*Renderer, error) {
	engine := liquid.NewEngine()
	tpl, err := engine.ParseString(shoppingListTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shopping list template: %w", err)
	}

	r := &Renderer{tpl: tpl, font: defaultFont, boldFont: defaultBoldFont}
	if fontPath != "" {
		font, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf font: %w", err)
		}
		r.font, r.boldFont = font, font
	}
	return r, nil
}

// Text renders the list as UTF-8 text
func (r *Renderer) Text(list *ShoppingList) ([]byte, error) {
	items := make([]map[string]interface{}, len(list.Items))
	for i, item := range list.Items {
		items[i] = map[string]interface{}{
			"name":   item.Name,
			"unit":   item.MeasurementUnit,
			"amount": item.Amount,
		}
	}

	out, err := r.tpl.RenderString(liquid.Bindings{
		"owner":        list.Owner,
		"username":     list.Username,
		"generated_at": list.GeneratedAt.Format("2006-01-02 15:04"),
		"count":        len(items),
		"items":        items,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render shopping list: %w", err)
	}
	return []byte(out), nil
}

// PDF renders the list as a single A4 document. The first line is the title.
func (r *Renderer) PDF(list *ShoppingList) ([]byte, error) {
	text, err := r.Text(list)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(text), "\n"), "\n")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Shopping list", true)
	pdf.SetCreator("foodgram", true)

	pdf.AddUTF8FontFromBytes(fontFamily, "", r.font)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", r.boldFont)

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 12, lines[0], "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", 12)
	for _, line := range lines[1:] {
		if line == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 7, line, "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to build shopping list pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write shopping list pdf: %w", err)
	}
	return buf.Bytes(), nil
}
