package notify

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name  string
		phone string
		code  string
		want  string
	}{
		{"local number", "076123456", "+232", "+232076123456"},
		{"spaces and dashes", "076 123-456", "+232", "+232076123456"},
		{"already international", "+232076123456", "+232", "+232076123456"},
		{"country code without plus", "232076123456", "+232", "+232076123456"},
		{"empty", "", "+232", ""},
		{"punctuation only", "()-", "+232", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizePhone(tc.phone, tc.code)
			if got != tc.want {
				t.Fatalf("NormalizePhone(%q, %q) = %q, want %q", tc.phone, tc.code, got, tc.want)
			}
		})
	}
}
