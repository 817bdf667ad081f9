package limits

import (
	"crypto/rand"
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		max     int
		wantErr error
	}{
		{"empty", nil, 10, ErrEmpty},
		{"within limit", make([]byte, 5), 10, nil},
		{"at limit", make([]byte, 10), 10, nil},
		{"over limit", make([]byte, 11), 10, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.data, tt.max)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInnerData(t *testing.T) {
	if err := ValidateInnerData(make([]byte, MaxInnerData)); err != nil {
		t.Fatalf("at cap: %v", err)
	}
	if err := ValidateInnerData(make([]byte, MaxInnerData+1)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("over cap: %v, want ErrTooLarge", err)
	}
}

func TestValidateMetaList(t *testing.T) {
	if err := ValidateMetaList(make([]byte, MaxMetaListBytes)); err != nil {
		t.Fatalf("at cap: %v", err)
	}
	if err := ValidateMetaList(make([]byte, MaxMetaListBytes+1)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("over cap: %v, want ErrTooLarge", err)
	}
}

func BenchmarkValidate(b *testing.B) {
	data := make([]byte, MaxInnerData)
	rand.Read(data)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Validate(data, MaxInnerData)
	}
}
