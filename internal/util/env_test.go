package util

import "testing"

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  int
	}{
		{name: "unset", want: 7},
		{name: "number", value: "42", set: true, want: 42},
		{name: "padded", value: " 3 ", set: true, want: 3},
		{name: "malformed", value: "many", set: true, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("CANDIDATE_POOL", tt.value)
			}
			if got := GetEnvInt("CANDIDATE_POOL", 7); got != tt.want {
				t.Fatalf("GetEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("DEBUG", "true")
	if !GetEnvBool("DEBUG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("DEBUG", "yes please")
	if GetEnvBool("DEBUG", false) {
		t.Fatal("malformed values fall back to the default")
	}
	if got := GetEnvString("UNSET_FOR_TEST", "fallback"); got != "fallback" {
		t.Fatalf("GetEnvString() = %q", got)
	}
}
