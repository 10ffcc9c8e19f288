package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid ulid", ulid.Make().String(), false},
		{"empty", "", true},
		{"too short", "01ABC", true},
		{"mongo style hex id", "507f1f77bcf86cd799439011", true},
		{"garbage", "not-an-id", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("expected ErrInvalidID, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAccountInput(t *testing.T) {
	tests := []struct {
		name    string
		accName string
		email   string
		wantErr bool
	}{
		{"valid", "Ann", "a@x.com", false},
		{"missing name", "", "a@x.com", true},
		{"whitespace name", "   ", "a@x.com", true},
		{"missing email", "Ann", "", true},
		{"malformed email", "Ann", "not-an-email", true},
		{"name too long", strings.Repeat("a", MaxNameLength+1), "a@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountInput(tt.accName, tt.email)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"positive", "100", "100", false},
		{"negative", "-40", "-40", false},
		{"fractional", "12.345", "12.345", false},
		{"zero", "0", "0", false},
		{"empty", "", "", true},
		{"garbage", "abc", "", true},
		{"nan", "NaN", "", true},
		{"infinity", "Inf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("expected %s, got %s", want, got)
			}
		})
	}
}

func TestValidateKind(t *testing.T) {
	if err := ValidateKind("deposit"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := ValidateKind(""); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	if err := ValidateKind(strings.Repeat("k", MaxKindLength+1)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
