package util

import (
	"errors"
	"testing"

	"github.com/genc-murat/crystalbloom/internal/core/models"
)

func TestParseInt64(t *testing.T) {
	tests := []struct {
		name    string
		bulk    string
		want    int64
		wantErr bool
	}{
		{name: "positive", bulk: "42", want: 42},
		{name: "negative", bulk: "-7", want: -7},
		{name: "large", bulk: "9223372036854775807", want: 9223372036854775807},
		{name: "not a number", bulk: "abc", wantErr: true},
		{name: "float", bulk: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInt64(models.Value{Bulk: tt.bulk})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInt64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseInt64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseUint32(t *testing.T) {
	tests := []struct {
		name    string
		bulk    string
		want    uint32
		wantErr bool
	}{
		{name: "small", bulk: "2", want: 2},
		{name: "max", bulk: "4294967295", want: 4294967295},
		{name: "overflow", bulk: "4294967296", wantErr: true},
		{name: "negative", bulk: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint32(models.Value{Bulk: tt.bulk})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUint32() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseUint32() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestToValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		wantType string
	}{
		{name: "string", input: "hello", wantType: "bulk"},
		{name: "int", input: 5, wantType: "integer"},
		{name: "int64", input: int64(5), wantType: "integer"},
		{name: "nil", input: nil, wantType: "null"},
		{name: "error", input: errors.New("boom"), wantType: "error"},
		{name: "string slice", input: []string{"a", "b"}, wantType: "array"},
		{name: "unsupported", input: 1.5, wantType: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToValue(tt.input); got.Type != tt.wantType {
				t.Errorf("ToValue(%v).Type = %s, want %s", tt.input, got.Type, tt.wantType)
			}
		})
	}
}

func TestBoolToInt(t *testing.T) {
	if BoolToInt(true) != 1 || BoolToInt(false) != 0 {
		t.Error("BoolToInt mapping is wrong")
	}
}
