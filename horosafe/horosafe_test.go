package horosafe_test

import (
	"errors"
	"testing"

	"github.com/hazyhaar/feedwatch/horosafe"
)

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url     string
		wantErr error
	}{
		{"https://example.com/page", nil},
		{"http://example.com", nil},
		{"ftp://example.com", horosafe.ErrUnsafeScheme},
		{"file:///etc/passwd", horosafe.ErrUnsafeScheme},
		{"http://127.0.0.1/admin", horosafe.ErrSSRF},
		{"http://10.0.0.5", horosafe.ErrSSRF},
		{"http://192.168.1.1", horosafe.ErrSSRF},
		{"http://169.254.169.254/latest/meta-data", horosafe.ErrSSRF},
		{"http://[::1]/", horosafe.ErrSSRF},
		{"http://0.0.0.0", horosafe.ErrSSRF},
	}

	for _, c := range cases {
		err := horosafe.ValidateURL(c.url)
		if c.wantErr == nil {
			if err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", c.url, err)
			}
			continue
		}
		if !errors.Is(err, c.wantErr) {
			t.Errorf("ValidateURL(%q) = %v, want %v", c.url, err, c.wantErr)
		}
	}
}

func TestValidateURLNoHost(t *testing.T) {
	if err := horosafe.ValidateURL("https://"); err == nil {
		t.Fatal("expected error for URL without host")
	}
}
