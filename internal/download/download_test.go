package download

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	ts := time.UnixMilli(1700000000123)

	tests := []struct {
		name, ratio, ext string
		want             string
	}{
		{"bouncing-logo", "16:9", "gif", "bouncing-logo-16-9-1700000000123.gif"},
		{"my logo", "9:16", ".png", "my_logo-9-16-1700000000123.png"},
		{"", "1920x1080", "gif", "bouncing-logo-1920x1080-1700000000123.gif"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Filename(tt.name, tt.ratio, tt.ext, ts); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDirSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	s := &DirSaver{Dir: dir}

	path, err := s.Save(context.Background(), []byte("GIF89a"), "a-16-9-1.gif")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("File saved outside output dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "GIF89a" {
		t.Errorf("Unexpected content %q, err %v", data, err)
	}

	if _, err := s.Save(context.Background(), nil, "empty.gif"); err == nil {
		t.Error("Expected error for empty data")
	}
}
