package submission

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"idcard/internal/wizard/models"
)

// Encode writes pkg as multipart/form-data and returns the content type.
func Encode(w io.Writer, pkg *models.SubmissionPackage) (string, error) {
	mw := multipart.NewWriter(w)

	for _, f := range pkg.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}

	attachments := append(append([]models.Attachment{}, pkg.Files...), pkg.Summary)
	for _, a := range attachments {
		if a.Field == "" {
			continue
		}
		if err := writeFile(mw, a); err != nil {
			return "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}
	return mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func writeFile(mw *multipart.Writer, a models.Attachment) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(a.Field), quoteEscaper.Replace(a.Filename)))
	contentType := a.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", a.Field, err)
	}
	if _, err := part.Write(a.Content); err != nil {
		return fmt.Errorf("write part %s: %w", a.Field, err)
	}
	return nil
}
