// Package export writes analysis series to columnar files.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/tradepilot/internal/technical"
)

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&parquet.Snappy),
		parquet.PageBufferSize(64 * 1024),
	}
}

// WriteMACD writes points to w as one parquet file
func WriteMACD(w io.Writer, points []technical.MACDPoint) error {
	pw := parquet.NewGenericWriter[technical.MACDPoint](w, writerOptions()...)
	if _, err := pw.Write(points); err != nil {
		pw.Close()
		return fmt.Errorf("write macd rows: %w", err)
	}
	// Close writes the footer
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteMACDFile creates path (and its directory) and writes points to it
func WriteMACDFile(path string, points []technical.MACDPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteMACD(f, points); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// ReadMACDFile loads a file written by WriteMACDFile
func ReadMACDFile(path string) ([]technical.MACDPoint, error) {
	rows, err := parquet.ReadFile[technical.MACDPoint](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
