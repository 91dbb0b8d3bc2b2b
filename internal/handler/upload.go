package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/service"
)

// filePartPrefix marks multipart parts that carry reservation documents,
// e.g. "file_0", "file_syllabus".
const filePartPrefix = "file"

// Uploads stores reservation documents on local disk.
type Uploads struct {
	Dir string
	// MaxBytes limits a single file; zero means unlimited.
	MaxBytes int64
}

// save writes every file part of form under Dir with a uuid prefix.  On
// error the files already written are removed.
func (u Uploads) save(form *multipart.Form) ([]service.Document, error) {
	if form == nil || len(form.File) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		if strings.HasPrefix(field, filePartPrefix) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	var docs []service.Document
	for _, field := range fields {
		for _, fh := range form.File[field] {
			if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
				u.discard(docs)
				return nil, booking.Invalid(field, fmt.Sprintf("file exceeds %d bytes", u.MaxBytes))
			}
			doc, err := u.write(fh)
			if err != nil {
				u.discard(docs)
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (u Uploads) write(fh *multipart.FileHeader) (service.Document, error) {
	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "document"
	}
	src, err := fh.Open()
	if err != nil {
		return service.Document{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(u.Dir, uuid.NewString()+"_"+name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return service.Document{}, fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return service.Document{}, fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return service.Document{}, fmt.Errorf("close upload: %w", err)
	}
	return service.Document{FileName: name, FilePath: path}, nil
}

// discard removes stored documents of a submission that did not go
// through.
func (u Uploads) discard(docs []service.Document) {
	for _, d := range docs {
		_ = os.Remove(d.FilePath)
	}
}
