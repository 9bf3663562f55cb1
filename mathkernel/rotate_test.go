package mathkernel

import (
	"math"
	"testing"
)

func TestRotateAboutDirectionPreservesUnitLength(t *testing.T) {
	d := Direction{CosX: 0, CosY: 0, CosZ: 1}
	rotated := RotateAboutDirection(d, 0.5, math.Pi/3)

	length := UnitLength(rotated.CosX, rotated.CosY, rotated.CosZ)
	if math.Abs(length-1) > 1e-7 {
		t.Fatalf("rotated direction not unit length: %v", length)
	}
}

func TestIsotropicDirectionIsUnit(t *testing.T) {
	d := IsotropicDirection(0.3, 1.2)
	length := UnitLength(d.CosX, d.CosY, d.CosZ)
	if math.Abs(length-1) > 1e-7 {
		t.Fatalf("isotropic direction not unit length: %v", length)
	}
	if math.Abs(d.CosZ-0.3) > 1e-9 {
		t.Fatalf("expected cosZ == cosAlpha, got %v", d.CosZ)
	}
}

func TestRotateAboutDirectionZeroAngleIsIdentity(t *testing.T) {
	d := Direction{CosX: 0.6, CosY: 0.8, CosZ: 0}
	rotated := RotateAboutDirection(d, 1.0, 0.0)

	if math.Abs(rotated.CosX-d.CosX) > 1e-7 ||
		math.Abs(rotated.CosY-d.CosY) > 1e-7 ||
		math.Abs(rotated.CosZ-d.CosZ) > 1e-7 {
		t.Fatalf("expected identity rotation, got %+v", rotated)
	}
}
