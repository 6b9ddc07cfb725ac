package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://makautwb.ac.in/page.php?id=340",
			wantErr: false,
		},
		{
			name:    "valid http URL",
			url:     "http://example.com/notice.pdf",
			wantErr: false,
		},
		{
			name:    "valid URL with port",
			url:     "https://example.com:8080/feed",
			wantErr: false,
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
		{
			name:    "invalid scheme - ftp",
			url:     "ftp://example.com/feed",
			wantErr: true,
		},
		{
			name:    "javascript link",
			url:     "javascript:void(0)",
			wantErr: true,
		},
		{
			name:    "missing host",
			url:     "https:///path",
			wantErr: true,
		},
		{
			name:    "too long",
			url:     "https://example.com/" + strings.Repeat("a", maxURLLength),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL_ReturnsValidationError(t *testing.T) {
	err := ValidateURL("")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Field != "url" {
		t.Errorf("Field = %q, want url", ve.Field)
	}
}

func TestValidateURL_MalformedIsInvalid(t *testing.T) {
	err := ValidateURL("https://makautwb.ac.in/%zz")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
