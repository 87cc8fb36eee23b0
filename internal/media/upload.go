package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

const (
	MaxFileSize    = 5 << 20
	MaxFiles       = 1 + model.MaxSecondaryImages
	FieldMainImage = "mainImage"
	FieldImages    = "images"
	msgInvalidType = "Invalid file type. Only JPEG, PNG, and WebP are allowed."
)

var (
	ErrTooLarge        = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
	ErrInvalidType     = errors.New(msgInvalidType)
	ErrUnexpectedField = errors.New("unexpected file field")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// FlightFiles are the images submitted with a flight form.
type FlightFiles struct {
	Main   *File
	Images []File
}

// All returns the main image (if any) followed by the secondary images.
func (ff FlightFiles) All() []File {
	out := make([]File, 0, len(ff.Images)+1)
	if ff.Main != nil {
		out = append(out, *ff.Main)
	}
	return append(out, ff.Images...)
}

// ReadFlightFiles enforces the upload policy on a parsed multipart form and
// loads the accepted files into memory.
func ReadFlightFiles(form *multipart.Form) (FlightFiles, error) {
	var ff FlightFiles
	if form == nil {
		return ff, nil
	}
	total := 0
	for field, headers := range form.File {
		if field != FieldMainImage && field != FieldImages {
			return ff, fmt.Errorf("%w: %s", ErrUnexpectedField, field)
		}
		total += len(headers)
	}
	if total > MaxFiles || len(form.File[FieldMainImage]) > 1 || len(form.File[FieldImages]) > model.MaxSecondaryImages {
		return ff, ErrTooManyFiles
	}

	if hs := form.File[FieldMainImage]; len(hs) == 1 {
		f, err := readFile(FieldMainImage, hs[0])
		if err != nil {
			return ff, err
		}
		ff.Main = &f
	}
	for _, h := range form.File[FieldImages] {
		f, err := readFile(FieldImages, h)
		if err != nil {
			return ff, err
		}
		ff.Images = append(ff.Images, f)
	}
	return ff, nil
}

func readFile(field string, h *multipart.FileHeader) (File, error) {
	if h.Size > MaxFileSize {
		return File{}, fmt.Errorf("%w: %s", ErrTooLarge, h.Filename)
	}
	ct, _, _ := mime.ParseMediaType(h.Header.Get("Content-Type"))
	if _, ok := allowedTypes[ct]; !ok {
		return File{}, ErrInvalidType
	}
	src, err := h.Open()
	if err != nil {
		return File{}, fmt.Errorf("open %s: %w", h.Filename, err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", h.Filename, err)
	}
	if len(data) > MaxFileSize {
		return File{}, fmt.Errorf("%w: %s", ErrTooLarge, h.Filename)
	}
	return File{Field: field, Name: h.Filename, ContentType: ct, Data: data}, nil
}

// extension maps an accepted content type to a file extension.
func extension(contentType string) string {
	if ext, ok := allowedTypes[contentType]; ok {
		return ext
	}
	return ".bin"
}
