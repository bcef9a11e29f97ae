package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestWithDefault(t *testing.T) {
	tests := []struct {
		target     string
		def        int
		wantLimit  int
		wantOffset int
	}{
		{"/", 10, 10, 0},
		{"/?limit=5", 10, 5, 0},
		{"/?limit=500", 10, MaxLimit, 0},
		{"/?limit=abc", 10, 10, 0},
		{"/?limit=0", 10, 10, 0},
		{"/?limit=-3", 10, 10, 0},
		{"/?offset=30", 10, 10, 30},
		{"/?offset=-1", 10, 10, 0},
	}

	for _, tt := range tests {
		p := WithDefault(newContext(tt.target), tt.def)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: got limit=%d offset=%d, want %d/%d", tt.target, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestHasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !p.HasNext(11) {
		t.Error("expected next page with 11 results")
	}
	if p.HasNext(10) {
		t.Error("expected no next page with 10 results")
	}
}
