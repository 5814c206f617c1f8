package packer

import "testing"

func TestResolveNestedNoFakeroot(t *testing.T) {
	p := PathPolicy{BaseDirSrc: "/proj/scenes", DestDir: "/out"}
	destAbs, ref, err := p.Resolve("/proj/textures/wood.png", "/proj/scenes/root.blend")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/out/__/textures/wood.png"; destAbs != want {
		t.Errorf("destAbs = %q, want %q", destAbs, want)
	}
	if want := "//__/textures/wood.png"; ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}
}

func TestResolveEscapingWithoutFakerootIsNested(t *testing.T) {
	p := PathPolicy{BaseDirSrc: "/proj/scenes", DestDir: "/out"}
	destAbs, _, err := p.Resolve("/elsewhere/img.png", "/proj/scenes/root.blend")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/out/__/__/elsewhere/img.png"; destAbs != want {
		t.Errorf("destAbs = %q, want %q", destAbs, want)
	}
}

func TestResolveEscapingWithFakerootGetsAbsoluteMarker(t *testing.T) {
	p := PathPolicy{BaseDirSrc: "/proj/scenes", DestDir: "/out", Fakeroot: "scenes"}
	destAbs, ref, err := p.Resolve("/proj/assets/wood.png", "/proj/scenes/root.blend")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/out/_assets/wood.png"; destAbs != want {
		t.Errorf("destAbs = %q, want %q", destAbs, want)
	}
	if want := "//_assets/wood.png"; ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}
}

func TestResolveWithinBaseDirIsUnchanged(t *testing.T) {
	p := PathPolicy{BaseDirSrc: "/proj/scenes", DestDir: "/out"}
	destAbs, ref, err := p.Resolve("/proj/scenes/textures/wood.png", "/proj/scenes/root.blend")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/out/textures/wood.png"; destAbs != want {
		t.Errorf("destAbs = %q, want %q", destAbs, want)
	}
	if want := "//textures/wood.png"; ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}
}
