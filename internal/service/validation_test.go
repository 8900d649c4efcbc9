package service

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateStructPlatformTag(t *testing.T) {
	tests := []struct {
		name    string
		input   ConnectURLInput
		wantErr string
	}{
		{name: "known alias", input: ConnectURLInput{Platform: "twitter", URL: "x.com/jane"}},
		{name: "unknown platform", input: ConnectURLInput{Platform: "myspace", URL: "myspace.com/jane"}, wantErr: `unsupported platform "myspace"`},
		{name: "missing url", input: ConnectURLInput{Platform: "tiktok"}, wantErr: "url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q wrapped in ErrInvalidInput, got %v", tt.wantErr, err)
			}
		})
	}
}
