package upload

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revmak/marketplace-api/internal/config"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

type testPart struct {
	field       string
	filename    string
	contentType string
	size        int
}

func buildMultipart(t *testing.T, parts ...testPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		header.Set("Content-Type", p.contentType)
		w, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = w.Write(bytes.Repeat([]byte("x"), p.size))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func parseForm(t *testing.T, parts ...testPart) *multipart.Form {
	t.Helper()
	body, contentType := buildMultipart(t, parts...)
	boundary := strings.TrimPrefix(contentType, "multipart/form-data; boundary=")
	form, err := multipart.NewReader(body, boundary).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

func testPolicy() Policy {
	return NewPolicy(config.UploadConfig{
		FieldName:         "file",
		MaxSizeBytes:      64,
		MaxFilenameLength: 20,
		AllowedMIMETypes:  []string{"image/jpeg", "image/PNG"},
	})
}

func TestPolicy_Select(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name  string
		parts []testPart
		kind  apperrors.Kind
	}{
		{"single file", []testPart{{"file", "a.png", "image/png", 4}}, ""},
		{"no files", nil, apperrors.KindMissingFile},
		{"wrong field", []testPart{{"avatar", "a.png", "image/png", 4}}, apperrors.KindUnexpectedField},
		{"extra field", []testPart{{"file", "a.png", "image/png", 4}, {"other", "b.png", "image/png", 4}}, apperrors.KindUnexpectedField},
		{"two files", []testPart{{"file", "a.png", "image/png", 4}, {"file", "b.png", "image/png", 4}}, apperrors.KindUnexpectedField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := policy.Select(parseForm(t, tt.parts...))
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, "a.png", file.Filename)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name string
		part testPart
		kind apperrors.Kind
	}{
		{"accepted", testPart{"file", "a.png", "image/png", 64}, ""},
		{"mime parameters ignored", testPart{"file", "a.jpg", "image/jpeg; charset=binary", 8}, ""},
		{"unsupported type", testPart{"file", "a.pdf", "application/pdf", 8}, apperrors.KindUnsupportedFileType},
		{"filename too long", testPart{"file", strings.Repeat("n", 21) + ".png", "image/png", 8}, apperrors.KindFilenameTooLong},
		{"too large", testPart{"file", "a.png", "image/png", 65}, apperrors.KindFileTooLarge},
		{"type checked before size", testPart{"file", "a.gif", "image/gif", 500}, apperrors.KindUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := parseForm(t, tt.part)
			err := policy.Validate(form.File["file"][0])
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestPolicy_ViolationDetails(t *testing.T) {
	form := parseForm(t, testPart{"file", "a.png", "image/png", 65})

	err := testPolicy().Validate(form.File["file"][0])

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, int64(64), domainErr.Details["max_bytes"])
	assert.Equal(t, 400, domainErr.HTTPStatus)
}
