package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	origVersion, origCommit, origBuild := Version, GitCommit, BuildTime
	defer func() {
		Version, GitCommit, BuildTime = origVersion, origCommit, origBuild
	}()

	Version = "1.4.0"
	GitCommit = "9ae3f1c"
	BuildTime = "2026-08-01T09:00:00Z"

	info := Get()
	if info.Version != "1.4.0" || info.GitCommit != "9ae3f1c" {
		t.Fatalf("Get() did not reflect ldflags values: %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}

	line := info.String()
	for _, want := range []string{"aar 1.4.0", "9ae3f1c", "2026-08-01T09:00:00Z"} {
		if !strings.Contains(line, want) {
			t.Errorf("String() = %q, missing %q", line, want)
		}
	}
}

func TestDefaultsAreNonEmpty(t *testing.T) {
	info := Get()
	if info.Version == "" || info.GitCommit == "" || info.BuildTime == "" {
		t.Fatalf("source build must carry default metadata, got %+v", info)
	}
}

func TestBuildInfoJSON(t *testing.T) {
	data, err := json.Marshal(Get())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"version", "git_commit", "go_version", "platform"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON form missing %q key: %s", key, data)
		}
	}
}
