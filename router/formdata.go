package router

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
)

// Supported submission encodings.
const (
	EncTypeURLEncoded = "application/x-www-form-urlencoded"
	EncTypeMultipart  = "multipart/form-data"
)

// FormFile is a binary form field.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// FormData is the payload of a submission: text fields plus optional
// files. Files can only be sent with EncTypeMultipart.
type FormData struct {
	Values url.Values
	Files  []FormFile
}

// NewFormData returns a FormData holding values.
func NewFormData(values url.Values) *FormData {
	if values == nil {
		values = url.Values{}
	}
	return &FormData{Values: values}
}

// Add appends a text value to field.
func (f *FormData) Add(field, value string) *FormData {
	if f.Values == nil {
		f.Values = url.Values{}
	}
	f.Values.Add(field, value)
	return f
}

// Set replaces the text values of field.
func (f *FormData) Set(field, value string) *FormData {
	if f.Values == nil {
		f.Values = url.Values{}
	}
	f.Values.Set(field, value)
	return f
}

// Get returns the first text value of field.
func (f *FormData) Get(field string) string {
	return f.Values.Get(field)
}

// AddFile appends a file.
func (f *FormData) AddFile(file FormFile) *FormData {
	f.Files = append(f.Files, file)
	return f
}

// SearchParams returns the text fields as query values. It fails when the
// form holds files.
func (f *FormData) SearchParams() (url.Values, error) {
	if f == nil {
		return url.Values{}, nil
	}
	if len(f.Files) > 0 {
		return nil, fmt.Errorf("%w: file field %q requires %s", ErrInvalidBody, f.Files[0].Field, EncTypeMultipart)
	}

	return f.textValues(), nil
}

func (f *FormData) textValues() url.Values {
	if f == nil {
		return url.Values{}
	}

	out := make(url.Values, len(f.Values))
	for k, v := range f.Values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Encode renders the form as a request body for encType and returns the
// body with its Content-Type.
func (f *FormData) Encode(encType string) ([]byte, string, error) {
	switch encType {
	case "", EncTypeURLEncoded:
		values, err := f.SearchParams()
		if err != nil {
			return nil, "", err
		}
		return []byte(values.Encode()), EncTypeURLEncoded, nil

	case EncTypeMultipart:
		return f.encodeMultipart()

	default:
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", ErrInvalidBody, encType)
	}
}

func (f *FormData) encodeMultipart() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if f != nil {
		for field, values := range f.Values {
			for _, v := range values {
				if err := w.WriteField(field, v); err != nil {
					return nil, "", err
				}
			}
		}

		for _, file := range f.Files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))

			contentType := file.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			h.Set("Content-Type", contentType)

			part, err := w.CreatePart(h)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(file.Content); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
