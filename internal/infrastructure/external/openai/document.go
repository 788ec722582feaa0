package openai

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

const renderDPI = 150

// Document is the readable content of an offer PDF
type Document struct {
	Text   string
	Images [][]byte // PNG, one per page
	Pages  int
}

// DocumentReader turns PDF bytes into text and page images
type DocumentReader interface {
	Read(pdf []byte, withImages bool, maxPages int) (*Document, error)
}

// FitzReader reads PDFs with MuPDF
type FitzReader struct {
	logger *zap.Logger
}

// NewFitzReader creates a new MuPDF-backed reader
func NewFitzReader(logger *zap.Logger) *FitzReader {
	return &FitzReader{logger: logger}
}

// Read extracts the text of every page and, when asked, renders up to maxPages pages as PNG.
// maxPages <= 0 renders all pages.
func (r *FitzReader) Read(pdf []byte, withImages bool, maxPages int) (*Document, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	out := &Document{Pages: doc.NumPage()}
	r.logger.Debug("Processing PDF", zap.Int("total_pages", out.Pages))

	var text strings.Builder
	for pageNum := 0; pageNum < out.Pages; pageNum++ {
		pageText, err := doc.Text(pageNum)
		if err != nil {
			r.logger.Warn("Failed to extract page text",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		text.WriteString(pageText)
	}
	out.Text = strings.TrimSpace(text.String())

	if !withImages {
		return out, nil
	}

	pages := out.Pages
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	for pageNum := 0; pageNum < pages; pageNum++ {
		img, err := doc.ImagePNG(pageNum, renderDPI)
		if err != nil {
			r.logger.Warn("Failed to render page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		out.Images = append(out.Images, img)
	}

	return out, nil
}
