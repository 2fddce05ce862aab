package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/lexygraph/docflow/internal/core/ports"
)

// maxProbeBytes bounds how much of a blob the probe is willing to buffer.
const maxProbeBytes = 64 << 20

// PageCounter inspects a stored blob and reports its page (or sheet) count.
// Formats it cannot read yield zero without an error so submission never
// blocks on the probe.
type PageCounter struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *PageCounter {
	return &PageCounter{storage: storage}
}

func (p *PageCounter) CountPages(ctx context.Context, key, mimeType string) (int, error) {
	switch {
	case isPDF(mimeType):
		return p.countPDFPages(ctx, key)
	case isSpreadsheet(mimeType):
		return p.countSheets(ctx, key)
	default:
		return 0, nil
	}
}

func (p *PageCounter) countPDFPages(ctx context.Context, key string) (int, error) {
	data, err := p.readBlob(ctx, key)
	if err != nil {
		return 0, err
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return reader.NumPage(), nil
}

func (p *PageCounter) countSheets(ctx context.Context, key string) (int, error) {
	rc, err := p.storage.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open blob: %w", err)
	}
	defer rc.Close()

	book, err := excelize.OpenReader(io.LimitReader(rc, maxProbeBytes))
	if err != nil {
		return 0, fmt.Errorf("parse workbook: %w", err)
	}
	defer book.Close()

	return book.SheetCount, nil
}

func (p *PageCounter) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, err := p.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxProbeBytes))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func isPDF(mimeType string) bool {
	return strings.EqualFold(mimeType, "application/pdf")
}

func isSpreadsheet(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return true
	}
	return false
}
