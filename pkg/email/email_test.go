package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasDomain(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"jdoe@nitt.edu", true},
		{"  JDoe@NITT.EDU ", true},
		{"jdoe@nitt.edu.in", false},
		{"jdoe@sub.nitt.edu", false},
		{"jdoenitt.edu", false},
		{"@nitt.edu", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			assert.Equal(t, tc.want, HasDomain(tc.addr, "nitt.edu"))
		})
	}
}

func TestFromRollNo(t *testing.T) {
	assert.Equal(t, "205124040@nitt.edu", FromRollNo(" 205124040 ", "nitt.edu"))
	assert.Equal(t, "cs21b001@nitt.edu", FromRollNo("CS21B001", "NITT.edu"))
}
