package storage

import "testing"

func TestParamsMerge(t *testing.T) {
	base := Params{"content-type": "application/octet-stream", ParamCacheControl: "no-cache"}
	merged := base.Merge(Params{ParamContentType: "image/png", ParamACL: "private"})

	if len(merged) != 3 {
		t.Fatalf("expected 3 params, got %d: %v", len(merged), merged)
	}
	if v, _ := merged.Get(ParamContentType); v != "image/png" {
		t.Errorf("override should win, got %q", v)
	}
	if v, _ := merged.Get("cache-control"); v != "no-cache" {
		t.Errorf("base value lost, got %q", v)
	}
	if _, ok := base.Get(ParamACL); ok {
		t.Error("Merge must not modify the receiver")
	}
}

func TestParamsGet(t *testing.T) {
	p := Params{"Meta-Owner": "alice"}
	if v, ok := p.Get("meta-owner"); !ok || v != "alice" {
		t.Errorf("Get() = %q, %v", v, ok)
	}
	if _, ok := p.Get("owner"); ok {
		t.Error("unexpected match")
	}
	var empty Params
	if _, ok := empty.Get(ParamContentType); ok {
		t.Error("nil params should not match")
	}
}

func TestMetaName(t *testing.T) {
	tests := []struct {
		key  string
		name string
		ok   bool
	}{
		{"Meta-Owner", "owner", true},
		{"meta-uploaded-by", "uploaded-by", true},
		{"Meta-", "", false},
		{"Metadata", "", false},
	}
	for _, tc := range tests {
		name, ok := metaName(tc.key)
		if name != tc.name || ok != tc.ok {
			t.Errorf("metaName(%q) = %q, %v; want %q, %v", tc.key, name, ok, tc.name, tc.ok)
		}
	}
}
