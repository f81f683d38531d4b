package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kflex/dashboard/internal/admin/products"
)

// encodeProductForm renders the catalogue form fields the storefront expects: name,
// description, price, optional stock and an optional image file part.
func encodeProductForm(input products.Input) ([]byte, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", input.Name},
		{"description", input.Description},
		{"price", strconv.FormatFloat(input.Price, 'f', -1, 64)},
	}
	if input.Stock != nil {
		fields = append(fields, [2]string{"stock", strconv.Itoa(*input.Stock)})
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("backend: write form field %s: %w", field[0], err)
		}
	}

	if input.Image != nil {
		filename := filepath.Base(strings.TrimSpace(input.Image.Filename))
		if filename == "." || filename == "/" || filename == "" {
			filename = "image"
		}
		contentType := input.Image.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		header.Set("Content-Type", contentType)
		part, err := form.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("backend: create image part: %w", err)
		}
		if _, err := part.Write(input.Image.Data); err != nil {
			return nil, "", fmt.Errorf("backend: write image part: %w", err)
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("backend: close form: %w", err)
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}
