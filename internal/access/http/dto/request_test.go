package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyAccessRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request VerifyAccessRequest
		wantErr bool
	}{
		{name: "Success_Dashes", request: VerifyAccessRequest{DOB: "03-15-1955"}},
		{name: "Success_Slashes", request: VerifyAccessRequest{DOB: "03/15/1955"}},
		{name: "Success_DigitsOnly", request: VerifyAccessRequest{DOB: "03151955"}},
		{name: "Error_Empty", request: VerifyAccessRequest{DOB: ""}, wantErr: true},
		{name: "Error_Blank", request: VerifyAccessRequest{DOB: "   "}, wantErr: true},
		{name: "Error_Letters", request: VerifyAccessRequest{DOB: "March 15 1955"}, wantErr: true},
		{name: "Error_TooShort", request: VerifyAccessRequest{DOB: "3-15-55"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
