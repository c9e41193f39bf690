package mls_test

import (
	"reflect"
	"testing"

	"mls-go/internal/mls"
)

func TestNewExtensionSet(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "normalizes case and adds missing dots",
			in:   []string{"MP3", ".FLAC", "m4a"},
			want: []string{".flac", ".m4a", ".mp3"},
		},
		{
			name: "drops empty entries",
			in:   []string{"", "  ", "mp3"},
			want: []string{".mp3"},
		},
		{
			name: "deduplicates",
			in:   []string{"mp3", ".mp3", "MP3"},
			want: []string{".mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mls.NewExtensionSet(tt.in...).List()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("List() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtensionSet_Contains(t *testing.T) {
	set := mls.NewExtensionSet("mp3", "flac")

	tests := []struct {
		name string
		file string
		want bool
	}{
		{"exact match", "song.mp3", true},
		{"upper case extension", "SONG.MP3", true},
		{"mixed case extension", "song.Mp3", true},
		{"other media type", "song.flac", true},
		{"not in set", "song.wav", false},
		{"no extension", "song", false},
		{"dotfile only", ".mp3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Contains(tt.file); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestDefaultExtensions(t *testing.T) {
	set := mls.DefaultExtensions()

	for _, name := range []string{"x.mp3", "x.flac", "x.m4a", "x.ogg", "x.mp4", "x.mkv"} {
		if !set.Contains(name) {
			t.Errorf("DefaultExtensions() missing %s", name)
		}
	}
	if set.Contains("x.txt") {
		t.Error("DefaultExtensions() contains .txt")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []mls.Status{mls.StatusUploaded, mls.StatusFailed, mls.StatusSkipped} {
		if !s.Valid() {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
	for _, s := range []mls.Status{"", "in-flight", "UPLOADED", "done"} {
		if s.Valid() {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}
