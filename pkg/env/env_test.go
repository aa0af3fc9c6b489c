package env

import (
	"reflect"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("ENV_TEST_STRING", "  value  ")
	t.Setenv("ENV_TEST_INT", "0x10")
	t.Setenv("ENV_TEST_BOOL", "true")
	t.Setenv("ENV_TEST_DURATION", "15s")
	t.Setenv("ENV_TEST_BAD_DURATION", "soon")
	t.Setenv("ENV_TEST_NEGATIVE_DURATION", "-1s")

	if got := GetEnvStringOrDefault("ENV_TEST_STRING", "x"); got != "value" {
		t.Errorf("GetEnvStringOrDefault = %q, want %q", got, "value")
	}
	if got := GetEnvStringOrDefault("ENV_TEST_MISSING", "x"); got != "x" {
		t.Errorf("GetEnvStringOrDefault(missing) = %q, want %q", got, "x")
	}
	if got := GetEnvIntOrDefault("ENV_TEST_INT", 1); got != 16 {
		t.Errorf("GetEnvIntOrDefault = %d, want 16", got)
	}
	if got := GetEnvBoolOrDefault("ENV_TEST_BOOL", false); !got {
		t.Error("GetEnvBoolOrDefault = false, want true")
	}
	if got := GetEnvDurationOrDefault("ENV_TEST_DURATION", time.Second); got != 15*time.Second {
		t.Errorf("GetEnvDurationOrDefault = %v, want 15s", got)
	}
	if got := GetEnvDurationOrDefault("ENV_TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("GetEnvDurationOrDefault(bad) = %v, want 1s", got)
	}
	if got := GetEnvDurationOrDefault("ENV_TEST_NEGATIVE_DURATION", time.Second); got != time.Second {
		t.Errorf("GetEnvDurationOrDefault(negative) = %v, want 1s", got)
	}
}

func TestGetEnvListOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"split and trim", " https://a.example/hook , https://b.example/hook ", []string{"https://a.example/hook", "https://b.example/hook"}},
		{"drops empty items", "https://a.example/hook,,", []string{"https://a.example/hook"}},
		{"only separators falls back", " , ", []string{"default"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV_TEST_LIST", tc.value)
			got := GetEnvListOrDefault("ENV_TEST_LIST", []string{"default"})
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("GetEnvListOrDefault = %v, want %v", got, tc.want)
			}
		})
	}
}
