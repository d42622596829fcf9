package model

import (
	"encoding/json"
	"testing"
	"time"
)

func testFormat() *Format {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Format{
		ID:      "cf-abc123",
		OwnerID: "owner-1",
		Name:    "BR-DISK",
		Service: ServiceRadarr,
		Specifications: []Specification{
			{Name: "BR-DISK", Implementation: "ReleaseTitleSpecification", Fields: json.RawMessage(`{"value":"\\bBR-?DISK\\b"}`)},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestApplyFormatPatch_SpecificationsBumpVersion(t *testing.T) {
	f := testFormat()
	specs := []Specification{
		{Name: "x265", Implementation: "ReleaseTitleSpecification", Fields: json.RawMessage(`{"value":"x265"}`)},
	}

	if bumped := ApplyFormatPatch(f, FormatPatch{Specifications: specs}); !bumped {
		t.Fatal("expected version bump when specifications are submitted")
	}
	if f.Version != 2 {
		t.Errorf("version = %d, want 2", f.Version)
	}
	if f.Specifications[0].Name != "x265" {
		t.Errorf("specifications not replaced: %+v", f.Specifications)
	}
}

func TestApplyFormatPatch_IdenticalSpecificationsStillBump(t *testing.T) {
	// The policy is content-blind: resubmitting the exact same rule set
	// increments the version anyway.
	f := testFormat()
	same := make([]Specification, len(f.Specifications))
	copy(same, f.Specifications)

	if bumped := ApplyFormatPatch(f, FormatPatch{Specifications: same}); !bumped {
		t.Fatal("expected version bump for identical specifications")
	}
	if f.Version != 2 {
		t.Errorf("version = %d, want 2", f.Version)
	}
}

func TestApplyFormatPatch_NameOnlyDoesNotBump(t *testing.T) {
	f := testFormat()
	name := "BR-DISK (renamed)"
	rename := true

	if bumped := ApplyFormatPatch(f, FormatPatch{Name: &name, IncludeWhenRenaming: &rename}); bumped {
		t.Fatal("name/rename-flag edits must not bump the version")
	}
	if f.Version != 1 {
		t.Errorf("version = %d, want 1", f.Version)
	}
	if f.Name != name {
		t.Errorf("name = %q, want %q", f.Name, name)
	}
	if !f.IncludeWhenRenaming {
		t.Error("include_when_renaming not applied")
	}
}

func TestApplyFormatPatch_EmptyPatchTouchesOnlyUpdatedAt(t *testing.T) {
	f := testFormat()
	before := f.UpdatedAt

	if bumped := ApplyFormatPatch(f, FormatPatch{}); bumped {
		t.Fatal("empty patch must not bump the version")
	}
	if f.Version != 1 {
		t.Errorf("version = %d, want 1", f.Version)
	}
	if !f.UpdatedAt.After(before) {
		t.Error("updated_at not refreshed")
	}
}

func TestApplyFormatPatch_SuccessiveBumpsAreMonotonic(t *testing.T) {
	f := testFormat()
	specs := f.Specifications
	for i := 0; i < 3; i++ {
		ApplyFormatPatch(f, FormatPatch{Specifications: specs})
	}
	if f.Version != 4 {
		t.Errorf("version = %d, want 4 after three bumps", f.Version)
	}
}

func TestServiceKindIsValid(t *testing.T) {
	for _, k := range []ServiceKind{ServiceRadarr, ServiceSonarr} {
		if !k.IsValid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []ServiceKind{"", "lidarr", "RADARR"} {
		if ServiceKind(k).IsValid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}
