package validators

import (
	"testing"

	"github.com/anonto42/niche-communities/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     interface{}
		wantErr string
	}{
		{
			name: "valid signup",
			req:  &models.SignupRequest{Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret1", DisplayName: "Alice"},
		},
		{
			name:    "password mismatch",
			req:     &models.SignupRequest{Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret2", DisplayName: "Alice"},
			wantErr: "passwords do not match",
		},
		{
			name:    "bad email",
			req:     &models.SignInRequest{Email: "nope", Password: "x"},
			wantErr: "Email must be a valid email",
		},
		{
			name:    "missing comment",
			req:     &models.CreateCommentRequest{},
			wantErr: "Content is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
