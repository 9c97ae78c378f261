package service

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"facturex/internal/models"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	yekazip "github.com/yeka/zip"
)

// archiveWriter is the streaming target the export pipeline feeds one
// entry at a time. The concrete codec is picked by NewArchiveWriter.
type archiveWriter interface {
	Add(name string, data []byte) error
	Close() error
}

const (
	zipStandardLevel = 6
	zipBestLevel     = flate.BestCompression
)

// NewArchiveWriter opens an archive of the requested format on w.
// Formats that are known but not compiled in (7z) return
// CodecUnavailableError.
func NewArchiveWriter(w io.Writer, format models.ArchiveFormat, password string) (archiveWriter, error) {
	switch format {
	case models.FormatZip:
		return newZipWriter(w, zipStandardLevel), nil
	case models.FormatZipBest:
		return newZipWriter(w, zipBestLevel), nil
	case models.FormatZipPassword:
		return &encryptedZipWriter{zw: yekazip.NewWriter(w), password: password}, nil
	case models.FormatTarGz:
		return newTarGzWriter(w)
	default:
		return nil, &CodecUnavailableError{Format: format}
	}
}

// KnownFormat reports whether the format name is part of the public
// vocabulary, regardless of codec availability.
func KnownFormat(format models.ArchiveFormat) bool {
	switch format {
	case models.FormatZip, models.FormatZipBest, models.FormatZipPassword,
		models.FormatTarGz, models.FormatSevenZip:
		return true
	}
	return false
}

// FormatAvailable reports whether the codec for the format is compiled
// into this build. 7z is part of the vocabulary but has no writer.
func FormatAvailable(format models.ArchiveFormat) bool {
	return KnownFormat(format) && format != models.FormatSevenZip
}

func FormatExtension(format models.ArchiveFormat) string {
	switch format {
	case models.FormatTarGz:
		return "tar.gz"
	case models.FormatSevenZip:
		return "7z"
	default:
		return "zip"
	}
}

func FormatContentType(format models.ArchiveFormat) string {
	switch format {
	case models.FormatTarGz:
		return "application/gzip"
	case models.FormatSevenZip:
		return "application/x-7z-compressed"
	default:
		return "application/zip"
	}
}

// PasswordCapable reports whether the format can protect entries with
// a password.
func PasswordCapable(format models.ArchiveFormat) bool {
	return format == models.FormatZipPassword
}

type zipArchiveWriter struct {
	zw *zip.Writer
}

func newZipWriter(w io.Writer, level int) *zipArchiveWriter {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return &zipArchiveWriter{zw: zw}
}

func (w *zipArchiveWriter) Add(name string, data []byte) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

func (w *zipArchiveWriter) Close() error {
	return w.zw.Close()
}

type encryptedZipWriter struct {
	zw       *yekazip.Writer
	password string
}

func (w *encryptedZipWriter) Add(name string, data []byte) error {
	fw, err := w.zw.Encrypt(name, w.password, yekazip.AES256Encryption)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

func (w *encryptedZipWriter) Close() error {
	return w.zw.Close()
}

type tarGzArchiveWriter struct {
	gz *gzip.Writer
	tw *tar.Writer
}

func newTarGzWriter(w io.Writer) (*tarGzArchiveWriter, error) {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	return &tarGzArchiveWriter{gz: gz, tw: tar.NewWriter(gz)}, nil
}

func (w *tarGzArchiveWriter) Add(name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := w.tw.Write(data)
	return err
}

func (w *tarGzArchiveWriter) Close() error {
	return errors.Join(w.tw.Close(), w.gz.Close())
}

// nameAllocator keeps archive entry paths unique. The first duplicate
// of name.pdf becomes name_2.pdf, the next name_3.pdf, and so on.
type nameAllocator struct {
	used map[string]int
}

func newNameAllocator() *nameAllocator {
	return &nameAllocator{used: make(map[string]int)}
}

func (a *nameAllocator) Claim(name string) string {
	n, taken := a.used[name]
	if !taken {
		a.used[name] = 1
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		n++
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		if _, exists := a.used[candidate]; !exists {
			a.used[name] = n
			a.used[candidate] = 1
			return candidate
		}
	}
}

// kindFolder maps a document kind to its archive subdirectory when
// exports are organized in folders.
func kindFolder(kind models.DocumentKind) string {
	switch kind {
	case models.DocumentKindCustomerInvoice:
		return "clientes"
	case models.DocumentKindCustomerRefund:
		return "nc_clientes"
	case models.DocumentKindVendorInvoice:
		return "proveedores"
	case models.DocumentKindVendorRefund:
		return "nc_proveedores"
	default:
		return "otros"
	}
}
