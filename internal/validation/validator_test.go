package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Kind string `validate:"required,oneof=image video"`
	URL  string `validate:"omitempty,url"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{name: "valid", in: sample{Kind: "image", URL: "https://cdn.example.com/a.png"}},
		{name: "missing kind", in: sample{}, wantErr: "kind is required"},
		{name: "bad kind", in: sample{Kind: "gif"}, wantErr: "kind must be one of [image video]"},
		{name: "bad url", in: sample{Kind: "video", URL: "not a url"}, wantErr: "url must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
