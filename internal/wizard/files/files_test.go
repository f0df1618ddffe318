package files

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"idcard/internal/wizard/models"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func jpegOfSize(n int) []byte {
	b := make([]byte, n)
	copy(b, jpegHeader)
	return b
}

type CheckerSuite struct {
	suite.Suite
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) TestAccept() {
	s.Run("image gets a data uri preview", func() {
		f, err := Accept(models.SlotPhoto, Candidate{Name: "me.jpg", DeclaredType: "image/jpeg", Body: bytes.NewReader(jpegOfSize(2 * mb))}, Staged)
		s.Require().NoError(err)
		s.Equal(int64(2*mb), f.SizeBytes)
		s.True(strings.HasPrefix(f.PreviewDataURI, "data:image/jpeg;base64,"))
	})

	s.Run("pdf is acknowledged without preview", func() {
		f, err := Accept(models.SlotFIR, Candidate{Name: "fir.pdf", DeclaredType: "application/pdf", Body: strings.NewReader("%PDF-1.4 body")}, Staged)
		s.Require().NoError(err)
		s.Empty(f.PreviewDataURI)
		s.Equal("✓ fir.pdf (13 Bytes)", Acknowledgment(f))
	})

	s.Run("missing type is sniffed from content", func() {
		f, err := Accept(models.SlotPayment, Candidate{Name: "receipt", Body: strings.NewReader("%PDF-1.7\n%...")}, Staged)
		s.Require().NoError(err)
		s.Equal("application/pdf", f.MIMEType)
	})

	s.Run("every slot rejects files over its ceiling", func() {
		for _, p := range []Policy{Staged, LegacyInlinePhoto} {
			for slot, rule := range p.Slots {
				_, err := Accept(slot, Candidate{Name: "big", DeclaredType: "image/jpeg", Body: bytes.NewReader(jpegOfSize(int(rule.MaxBytes) + 1))}, p)
				var rej *RejectionError
				s.Require().True(errors.As(err, &rej), "%s/%s", p.Name, slot)
				s.Equal(ReasonTooLarge, rej.Reason)
				s.Equal(rule.MaxBytes/mb, rej.MaxMB)
			}
		}
	})

	s.Run("file exactly at the ceiling is accepted", func() {
		_, err := Accept(models.SlotPhoto, Candidate{Name: "edge.jpg", DeclaredType: "image/jpeg", Body: bytes.NewReader(jpegOfSize(mb))}, LegacyInlinePhoto)
		s.NoError(err)
	})

	s.Run("legacy photo must be an image", func() {
		_, err := Accept(models.SlotPhoto, Candidate{Name: "photo.pdf", DeclaredType: "application/pdf", Body: strings.NewReader("%PDF-1.4")}, LegacyInlinePhoto)
		var rej *RejectionError
		s.Require().True(errors.As(err, &rej))
		s.Equal(ReasonUnsupportedType, rej.Reason)
	})

	s.Run("staged photo is permissive on type", func() {
		_, err := Accept(models.SlotPhoto, Candidate{Name: "photo.pdf", DeclaredType: "application/pdf", Body: strings.NewReader("%PDF-1.4")}, Staged)
		s.NoError(err)
	})

	s.Run("empty file is rejected", func() {
		_, err := Accept(models.SlotPhoto, Candidate{Name: "empty.jpg", DeclaredType: "image/jpeg", Body: strings.NewReader("")}, Staged)
		var rej *RejectionError
		s.Require().True(errors.As(err, &rej))
		s.Equal(ReasonEmpty, rej.Reason)
	})

	s.Run("message names the limit", func() {
		s.Equal("File size exceeds 5MB limit", (&RejectionError{Reason: ReasonTooLarge, MaxMB: 5}).Error())
	})
}

func (s *CheckerSuite) TestSet() {
	s.Run("remove twice is a no-op the second time", func() {
		set := NewSet()
		set.Put(models.FileSlot{Slot: models.SlotPhoto, Name: "me.jpg", PreviewDataURI: "data:image/jpeg;base64,AA=="})

		s.True(set.Remove(models.SlotPhoto))
		s.False(set.Has(models.SlotPhoto))
		s.Equal(1, set.Generation(models.SlotPhoto))

		s.False(set.Remove(models.SlotPhoto))
		s.False(set.Has(models.SlotPhoto))
		s.Equal(1, set.Generation(models.SlotPhoto))
	})

	s.Run("same file can be put again after removal", func() {
		set := NewSet()
		f := models.FileSlot{Slot: models.SlotFIR, Name: "fir.pdf"}
		set.Put(f)
		set.Remove(models.SlotFIR)
		set.Put(f)
		got, ok := set.Get(models.SlotFIR)
		s.True(ok)
		s.Equal("fir.pdf", got.Name)
	})

	s.Run("manifest and present order", func() {
		set := NewSet()
		set.Put(models.FileSlot{Slot: models.SlotPayment, Name: "pay.pdf"})
		set.Put(models.FileSlot{Slot: models.SlotPhoto, Name: "me.jpg"})
		s.Equal(models.Manifest{models.SlotPayment: "pay.pdf", models.SlotPhoto: "me.jpg"}, set.Manifest())
		present := set.Present()
		s.Require().Len(present, 2)
		s.Equal(models.SlotPhoto, present[0].Slot)
	})
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:       "0 Bytes",
		1:       "1 Bytes",
		1023:    "1023 Bytes",
		1024:    "1 KB",
		1536:    "1.5 KB",
		1048575: "1024 KB",
		1048576: "1 MB",
		2097152: "2 MB",
		5242881: "5 MB",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatSize(in), "FormatSize(%d)", in)
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("legacy-inline-photo")
	require.NoError(t, err)
	assert.True(t, p.Slots[models.SlotPhoto].ImageOnly)

	_, err = PolicyByName("lenient")
	assert.Error(t, err)
}
