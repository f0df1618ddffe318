package submission

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports/mocks"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/requestcontext"
)

type AssemblerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	docs      *mocks.MockDocumentGenerator
	assembler *Assembler
	ctx       context.Context
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.docs = mocks.NewMockDocumentGenerator(s.ctrl)
	a, err := New(s.docs, "nitt", WithSerialSource(func(n int) int { return 4242 }))
	s.Require().NoError(err)
	s.assembler = a
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))
}

func staffInput() Input {
	return Input{
		Role:     models.RoleStaff,
		Identity: models.Identity{Role: models.RoleStaff, Email: "jdoe@nitt.edu", Verified: true},
		Draft: models.Draft{
			"requestCategory":     "New",
			"dataToChange":        []string{},
			"title":               "Mr",
			"staffName":           "John Doe",
			"staffNo":             "S1234",
			"designation":         "Technician",
			"department":          "Physics",
			"dob":                 "1985-01-02",
			"joiningDate":         "2010-06-01",
			"gender":              "Male",
			"bloodGroup":          "O+",
			"phone":               "9876543210",
			"address":             "Tiruchirappalli",
			"retirementDate":      "",
			"officeOrderAttached": false,
			"email":               "spoofed@nitt.edu",
		},
		Files: []models.FileSlot{
			{Slot: models.SlotPhoto, Name: "me.jpg", MIMEType: "image/jpeg", Content: []byte("jpeg")},
		},
	}
}

func (s *AssemblerSuite) TestProvisionalID() {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Equal("NITT-STF-2026-14242", s.assembler.ProvisionalID(models.RoleStaff, now))
	s.Equal("NITT-FAC-2026-14242", s.assembler.ProvisionalID(models.RoleFaculty, now))
	s.Equal("NITT-STU-2026-14242", s.assembler.ProvisionalID(models.RoleStudent, now))

	s.Run("serial stays in range", func() {
		lo, err := New(s.docs, "NITT", WithSerialSource(func(int) int { return 0 }))
		s.Require().NoError(err)
		hi, err := New(s.docs, "NITT", WithSerialSource(func(n int) int { return n - 1 }))
		s.Require().NoError(err)
		s.Equal("NITT-STU-2026-10000", lo.ProvisionalID(models.RoleStudent, now))
		s.Equal("NITT-STU-2026-99999", hi.ProvisionalID(models.RoleStudent, now))
	})
}

func (s *AssemblerSuite) TestAssembleStaff() {
	var snapshot models.SummarySnapshot
	s.docs.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), false).
		DoAndReturn(func(_ context.Context, snap models.SummarySnapshot, _ bool) ([]byte, error) {
			snapshot = snap
			return []byte("%PDF-1.3"), nil
		})

	pkg, err := s.assembler.Assemble(s.ctx, staffInput())
	s.Require().NoError(err)

	s.Run("identity fields come from the verified identity", func() {
		v, _ := pkg.Field("email")
		s.Equal("jdoe@nitt.edu", v)
		v, _ = pkg.Field("userType")
		s.Equal("staff", v)
		_, ok := pkg.Field("rollNo")
		s.False(ok)
	})

	s.Run("empty fields are omitted and sets encoded", func() {
		_, ok := pkg.Field("retirementDate")
		s.False(ok)
		_, ok = pkg.Field("dataToChange")
		s.False(ok)
		v, _ := pkg.Field("officeOrderAttached")
		s.Equal("false", v)
		v, _ = pkg.Field("submittedAt")
		s.Equal("2026-05-04T12:00:00Z", v)
	})

	s.Run("no payment part for staff", func() {
		s.True(pkg.HasFile("photo"))
		s.False(pkg.HasFile("payment"))
	})

	s.Run("summary named after staff number", func() {
		s.Equal("applicationPdf", pkg.Summary.Field)
		s.Equal("application_S1234.pdf", pkg.Summary.Filename)
		s.Equal("NITT-STF-2026-14242", pkg.ProvisionalID)
		s.Equal("jdoe@nitt.edu", snapshot.Draft.Text("email"))
		s.Equal("me.jpg", snapshot.Files[models.SlotPhoto])
	})
}

func (s *AssemblerSuite) TestAssembleStudent() {
	s.docs.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), false).Return([]byte("%PDF"), nil)

	in := Input{
		Role:     models.RoleStudent,
		Identity: models.Identity{Role: models.RoleStudent, Email: "205124040@nitt.edu", RollNo: "205124040", Verified: true},
		Draft: models.Draft{
			"requestCategory": "Correction",
			"dataToChange":    []string{"Name", "Other"},
			"otherDataChange": "Hostel",
			"issuedBooks":     "0",
		},
	}
	pkg, err := s.assembler.Assemble(s.ctx, in)
	s.Require().NoError(err)

	v, _ := pkg.Field("rollNo")
	s.Equal("205124040", v)
	v, _ = pkg.Field("dataToChange")
	s.Equal(`["Name","Other"]`, v)
	v, _ = pkg.Field("issuedBooks")
	s.Equal("0", v)
	s.Equal("application_205124040.pdf", pkg.Summary.Filename)
}

func (s *AssemblerSuite) TestAssembleFailures() {
	s.Run("unverified identity", func() {
		in := staffInput()
		in.Identity.Verified = false
		_, err := s.assembler.Assemble(s.ctx, in)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("summary rendering fails", func() {
		s.docs.EXPECT().RenderSummary(gomock.Any(), gomock.Any(), false).Return(nil, errors.New("font missing"))
		_, err := s.assembler.Assemble(s.ctx, staffInput())
		s.True(dErrors.HasCode(err, dErrors.CodeSubmissionFailed))
	})
}

func (s *AssemblerSuite) TestSummaryFilename() {
	s.Equal("application_NITT-STU-2026-12345.pdf", SummaryFilename(models.Draft{}, "NITT-STU-2026-12345"))
	s.Equal("application_S-12.pdf", SummaryFilename(models.Draft{"staffNo": "S/12"}, "x"))
}

func (s *AssemblerSuite) TestFinalize() {
	pkg := &models.SubmissionPackage{ProvisionalID: "NITT-STF-2026-14242"}

	s.Run("authoritative id wins", func() {
		r := Finalize(pkg, &models.Receipt{ApplicationID: "APP-77"})
		s.Equal("APP-77", r.ApplicationID)
		s.False(r.Provisional)
	})

	s.Run("missing id falls back to provisional", func() {
		r := Finalize(pkg, &models.Receipt{})
		s.Equal("NITT-STF-2026-14242", r.ApplicationID)
		s.True(r.Provisional)
		r = Finalize(pkg, nil)
		s.True(r.Provisional)
	})
}

func (s *AssemblerSuite) TestEncode() {
	pkg := &models.SubmissionPackage{
		Fields: []models.PackageField{{Name: "userType", Value: "staff"}, {Name: "email", Value: "jdoe@nitt.edu"}},
		Files:  []models.Attachment{{Field: "photo", Filename: "me.jpg", MIMEType: "image/jpeg", Content: []byte("jpeg")}},
		Summary: models.Attachment{
			Field: "applicationPdf", Filename: "application_S1.pdf", MIMEType: "application/pdf", Content: []byte("%PDF"),
		},
	}

	var buf bytes.Buffer
	contentType, err := Encode(&buf, pkg)
	s.Require().NoError(err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	s.Require().NoError(err)
	s.Equal("multipart/form-data", mediaType)

	r := multipart.NewReader(&buf, params["boundary"])
	form, err := r.ReadForm(1 << 20)
	s.Require().NoError(err)
	s.Equal([]string{"staff"}, form.Value["userType"])
	s.Require().Len(form.File["photo"], 1)
	s.Equal("image/jpeg", form.File["photo"][0].Header.Get("Content-Type"))
	s.Require().Len(form.File["applicationPdf"], 1)
	s.Equal("application_S1.pdf", form.File["applicationPdf"][0].Filename)

	f, err := form.File["applicationPdf"][0].Open()
	s.Require().NoError(err)
	body, _ := io.ReadAll(f)
	s.Equal("%PDF", string(body))
}
