package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"idcard/pkg/requestcontext"
)

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.7", gotIP)
	assert.Equal(t, "Mozilla/5.0", gotUA)
}

func TestClientIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.4:5123"
	assert.Equal(t, "192.168.1.4", ClientIPFromRequest(req))

	req.Header.Set("X-Real-IP", " 172.16.0.2 ")
	assert.Equal(t, "172.16.0.2", ClientIPFromRequest(req))
}
