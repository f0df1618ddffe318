package applicationapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idcard/internal/wizard/models"
	dErrors "idcard/pkg/domain-errors"
)

type ApplicationClientSuite struct {
	suite.Suite
	ctx context.Context
}

func TestApplicationClientSuite(t *testing.T) {
	suite.Run(t, new(ApplicationClientSuite))
}

func (s *ApplicationClientSuite) SetupTest() {
	s.ctx = context.Background()
}

func testPackage() *models.SubmissionPackage {
	return &models.SubmissionPackage{
		Fields: []models.PackageField{
			{Name: "userType", Value: "staff"},
			{Name: "staffNo", Value: "S1234"},
		},
		Files: []models.Attachment{
			{Field: "photo", Filename: "photo.jpg", MIMEType: "image/jpeg", Content: []byte{0xFF, 0xD8, 0xFF}},
		},
		Summary:       models.Attachment{Field: "applicationPdf", Filename: "application_S1234.pdf", MIMEType: "application/pdf", Content: []byte("%PDF")},
		ProvisionalID: "NITT-STF-2026-14242",
	}
}

func (s *ApplicationClientSuite) serve(h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	s.T().Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, nil)
}

func (s *ApplicationClientSuite) TestSubmitSendsMultipart() {
	client := s.serve(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(pathSubmit, r.URL.Path)
		s.Require().NoError(r.ParseMultipartForm(1 << 20))
		s.Equal("staff", r.FormValue("userType"))
		s.Equal("S1234", r.FormValue("staffNo"))

		f, hdr, err := r.FormFile("applicationPdf")
		s.Require().NoError(err)
		defer f.Close()
		s.Equal("application_S1234.pdf", hdr.Filename)
		content, _ := io.ReadAll(f)
		s.Equal("%PDF", string(content))

		_, hdr, err = r.FormFile("photo")
		s.Require().NoError(err)
		s.Equal("image/jpeg", hdr.Header.Get("Content-Type"))

		_, _ = w.Write([]byte(`{"applicationId":"APP-2026-0001","application":{"status":"pending"}}`))
	})

	receipt, err := client.Submit(s.ctx, testPackage())
	s.Require().NoError(err)
	s.Equal("APP-2026-0001", receipt.ApplicationID)
	s.JSONEq(`{"status":"pending"}`, string(receipt.Application))
}

func (s *ApplicationClientSuite) TestSubmitIDFallbacks() {
	for _, tc := range []struct {
		name string
		body string
		want string
	}{
		{"string id", `{"id":"665f1c"}`, "665f1c"},
		{"numeric id", `{"id":42}`, "42"},
		{"no id", `{}`, ""},
	} {
		s.Run(tc.name, func() {
			client := s.serve(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			receipt, err := client.Submit(s.ctx, testPackage())
			s.Require().NoError(err)
			s.Equal(tc.want, receipt.ApplicationID)
		})
	}
}

func (s *ApplicationClientSuite) TestSubmitFailure() {
	s.Run("backend message", func() {
		client := s.serve(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Duplicate application"}`))
		})
		_, err := client.Submit(s.ctx, testPackage())
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeSubmissionFailed, de.Code)
		s.Equal("Duplicate application", de.Message)
	})

	s.Run("status without message", func() {
		client := s.serve(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.Submit(s.ctx, testPackage())
		s.True(dErrors.HasCode(err, dErrors.CodeSubmissionFailed))
		s.True(strings.Contains(err.Error(), "status 500"))
	})
}
