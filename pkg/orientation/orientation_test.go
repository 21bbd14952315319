package orientation

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-5

// angleDiff returns the distance between two angles modulo 2π
func angleDiff(a, b float64) float64 {
	return math.Abs(math.Remainder(a-b, 2*math.Pi))
}

func quatClose(a, b quat.Number, eps float64) bool {
	a, b = Canonical(a), Canonical(b)
	return math.Abs(a.Real-b.Real) < eps && math.Abs(a.Imag-b.Imag) < eps &&
		math.Abs(a.Jmag-b.Jmag) < eps && math.Abs(a.Kmag-b.Kmag) < eps
}

func TestClamp(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{1.0000001, 1},
		{-1.0000001, -1},
		{0.5, 0.5},
		{1, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if math.IsNaN(2 * math.Acos(Clamp(1.0000001))) {
		t.Error("clamped acos returned NaN")
	}
}

// TestMulConvention pins the Hamilton product: i·j = k and j·i = -k
func TestMulConvention(t *testing.T) {
	i := quat.Number{Imag: 1}
	j := quat.Number{Jmag: 1}

	if got := Mul(i, j); got != (quat.Number{Kmag: 1}) {
		t.Errorf("i*j = %v, want k", got)
	}
	if got := Mul(j, i); got != (quat.Number{Kmag: -1}) {
		t.Errorf("j*i = %v, want -k", got)
	}
}

func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 2000; n++ {
		e := Euler{
			Phi1: rng.Float64() * 2 * math.Pi,
			Phi:  0.01 + rng.Float64()*(math.Pi-0.02),
			Phi2: rng.Float64() * 2 * math.Pi,
		}
		got := QuaternionToEuler(EulerToQuaternion(e))

		if angleDiff(got.Phi1, e.Phi1) > tol || math.Abs(got.Phi-e.Phi) > tol || angleDiff(got.Phi2, e.Phi2) > tol {
			t.Fatalf("round trip of %+v gave %+v", e, got)
		}
		if got.Phi1 < 0 || got.Phi1 >= 2*math.Pi || got.Phi2 < 0 || got.Phi2 >= 2*math.Pi {
			t.Fatalf("angles out of range: %+v", got)
		}
	}
}

func TestEulerDegenerate(t *testing.T) {
	// Phi = 0: only phi1 + phi2 is defined
	e := EulerFromDegrees(30, 0, 20)
	got := QuaternionToEuler(EulerToQuaternion(e))
	if math.Abs(got.Degrees()[0]-50) > tol || got.Phi != 0 || got.Phi2 != 0 {
		t.Errorf("Phi=0 case gave %v", got.Degrees())
	}

	// Phi = π: only phi1 - phi2 is defined
	e = EulerFromDegrees(30, 180, 20)
	got = QuaternionToEuler(EulerToQuaternion(e))
	if math.Abs(got.Degrees()[0]-10) > tol || math.Abs(got.Phi-math.Pi) > tol {
		t.Errorf("Phi=π case gave %v", got.Degrees())
	}
}

func TestEulerToQuaternionKnownValue(t *testing.T) {
	q := EulerToQuaternion(EulerFromDegrees(90, 0, 0))
	want := quat.Number{Real: math.Sqrt2 / 2, Kmag: math.Sqrt2 / 2}
	if !quatClose(q, want, 1e-12) {
		t.Errorf("EulerToQuaternion(90,0,0) = %v, want %v", q, want)
	}
	if q.Real < 0 {
		t.Errorf("scalar part should be non-negative, got %v", q.Real)
	}
}

// bungeMatrix is the textbook passive Bunge matrix, written out independently
// of the quaternion path.
func bungeMatrix(e Euler) *mat.Dense {
	c1, s1 := math.Cos(e.Phi1), math.Sin(e.Phi1)
	c, s := math.Cos(e.Phi), math.Sin(e.Phi)
	c2, s2 := math.Cos(e.Phi2), math.Sin(e.Phi2)
	return mat.NewDense(3, 3, []float64{
		c1*c2 - s1*s2*c, s1*c2 + c1*s2*c, s2 * s,
		-c1*s2 - s1*c2*c, -s1*s2 + c1*c2*c, c2 * s,
		s1 * s, -c1 * s, c,
	})
}

func TestMatrixMatchesBunge(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	identity := mat.NewDiagDense(3, []float64{1, 1, 1})

	for n := 0; n < 500; n++ {
		e := Euler{rng.Float64() * 2 * math.Pi, rng.Float64() * math.Pi, rng.Float64() * 2 * math.Pi}
		m := EulerToMatrix(e)

		if !mat.EqualApprox(m, bungeMatrix(e), 1e-9) {
			t.Fatalf("matrix mismatch for %+v:\n%v\n%v", e, mat.Formatted(m), mat.Formatted(bungeMatrix(e)))
		}

		var mmT mat.Dense
		mmT.Mul(m, m.T())
		if !mat.EqualApprox(&mmT, identity, 1e-9) {
			t.Fatalf("matrix for %+v is not orthogonal", e)
		}
		if d := mat.Det(m); math.Abs(d-1) > 1e-9 {
			t.Fatalf("det = %v, want 1", d)
		}

		q := EulerToQuaternion(e)
		if back := MatrixToQuaternion(m); !quatClose(back, q, 1e-9) {
			t.Fatalf("MatrixToQuaternion = %v, want %v", back, q)
		}
	}
}

// TestCrystalSymmetryActsOnTheRight checks that a crystal symmetry S, which
// changes g to S·g, appears as right multiplication of the quaternion.
func TestCrystalSymmetryActsOnTheRight(t *testing.T) {
	e := EulerFromDegrees(30, 40, 50)
	g := EulerToMatrix(e)
	s := AxisAngleToQuaternion(AxisAngle{Axis: r3.Vec{Z: 1}, Angle: math.Pi / 2})

	var sg mat.Dense
	sg.Mul(QuaternionToMatrix(s), g)
	if got := QuaternionToMatrix(Mul(EulerToQuaternion(e), s)); !mat.EqualApprox(got, &sg, 1e-12) {
		t.Errorf("q*s gives\n%v\nwant S*g\n%v", mat.Formatted(got), mat.Formatted(&sg))
	}

	// a quarter turn of phi2 is a quarter turn about the crystal c axis
	turned := EulerToQuaternion(EulerFromDegrees(30, 40, 140))
	if want := Mul(EulerToQuaternion(e), s); !Equal(turned, want, 1e-12) {
		t.Errorf("phi2+90 = %v, want q*s = %v", turned, want)
	}
}

func TestMatrixToQuaternionHalfTurns(t *testing.T) {
	// Half turns have zero trace branches; every diagonal branch must be hit.
	for _, axis := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 1}} {
		q := AxisAngleToQuaternion(AxisAngle{Axis: axis, Angle: math.Pi})
		back := MatrixToQuaternion(QuaternionToMatrix(q))
		if !Equal(back, q, 1e-12) {
			t.Errorf("half turn about %v: got %v, want %v", axis, back, q)
		}
	}
}

func TestAxisAngle(t *testing.T) {
	a := QuaternionToAxisAngle(Identity)
	if a.Angle != 0 || a.Axis != (r3.Vec{Z: 1}) {
		t.Errorf("identity gave %+v", a)
	}

	in := AxisAngle{Axis: r3.Vec{X: 1, Y: 2, Z: 2}, Angle: 1.2}
	q := AxisAngleToQuaternion(in)
	if math.Abs(quat.Abs(q)-1) > 1e-12 {
		t.Errorf("quaternion not normalized: |q| = %v", quat.Abs(q))
	}
	out := QuaternionToAxisAngle(q)
	if math.Abs(out.Angle-1.2) > 1e-12 {
		t.Errorf("angle = %v, want 1.2", out.Angle)
	}
	want := r3.Unit(in.Axis)
	if r3.Norm(r3.Sub(out.Axis, want)) > 1e-12 {
		t.Errorf("axis = %v, want %v", out.Axis, want)
	}

	// -q must give the same axis-angle pair
	neg := QuaternionToAxisAngle(quat.Scale(-1, q))
	if math.Abs(neg.Angle-out.Angle) > 1e-12 || r3.Norm(r3.Sub(neg.Axis, out.Axis)) > 1e-12 {
		t.Errorf("-q gave %+v, want %+v", neg, out)
	}
}

func TestRodrigues(t *testing.T) {
	q := AxisAngleToQuaternion(AxisAngle{Axis: r3.Vec{Z: 1}, Angle: math.Pi / 2})
	r, ok := QuaternionToRodrigues(q)
	if !ok {
		t.Fatal("90° rotation should have a finite Rodrigues vector")
	}
	if math.Abs(r.Z-1) > 1e-12 || math.Abs(r.X) > 1e-12 || math.Abs(r.Y) > 1e-12 {
		t.Errorf("Rodrigues = %v, want (0,0,1)", r.Vec)
	}
	if math.Abs(r.Angle()-math.Pi/2) > 1e-12 {
		t.Errorf("Angle() = %v, want π/2", r.Angle())
	}
	if back := RodriguesToQuaternion(r); !quatClose(back, q, 1e-12) {
		t.Errorf("round trip = %v, want %v", back, q)
	}

	half := AxisAngleToQuaternion(AxisAngle{Axis: r3.Vec{X: 1}, Angle: math.Pi})
	if _, ok := QuaternionToRodrigues(half); ok {
		t.Error("180° rotation should be reported as singular")
	}
}

func TestHomochoricRoundTrip(t *testing.T) {
	for _, omega := range []float64{0.01, 0.1, 0.5, 1, 2, 3, math.Pi - 1e-3} {
		in := AxisAngle{Axis: r3.Unit(r3.Vec{X: 1, Y: -2, Z: 0.5}), Angle: omega}
		h := AxisAngleToHomochoric(in)

		if got, want := r3.Norm(h.Vec), HomochoricMagnitude(omega); math.Abs(got-want) > 1e-12 {
			t.Errorf("|h| = %v, want %v", got, want)
		}
		out := HomochoricToAxisAngle(h)
		if math.Abs(out.Angle-omega) > 1e-7 {
			t.Errorf("omega %v came back as %v", omega, out.Angle)
		}
		if r3.Norm(r3.Sub(out.Axis, in.Axis)) > 1e-9 {
			t.Errorf("axis %v came back as %v", in.Axis, out.Axis)
		}
	}

	if got := HomochoricToAxisAngle(Homochoric{r3.Vec{X: 2 * HomochoricRadius}}); got.Angle != math.Pi {
		t.Errorf("over-long vector gave angle %v, want π", got.Angle)
	}
	if got := HomochoricToQuaternion(QuaternionToHomochoric(Identity)); !quatClose(got, Identity, 1e-12) {
		t.Errorf("identity round trip gave %v", got)
	}
}

func TestRotate(t *testing.T) {
	q := AxisAngleToQuaternion(AxisAngle{Axis: r3.Vec{Z: 1}, Angle: math.Pi / 2})
	got := Rotate(q, r3.Vec{X: 1})
	if r3.Norm(r3.Sub(got, r3.Vec{Y: 1})) > 1e-12 {
		t.Errorf("Rotate = %v, want (0,1,0)", got)
	}

	// Rotate applies the transpose of the orientation matrix
	m := QuaternionToMatrix(q)
	v := mat.NewVecDense(3, []float64{0.3, -0.4, 0.5})
	var mv mat.VecDense
	mv.MulVec(m.T(), v)
	rv := Rotate(q, r3.Vec{X: 0.3, Y: -0.4, Z: 0.5})
	if math.Abs(mv.AtVec(0)-rv.X) > 1e-12 || math.Abs(mv.AtVec(1)-rv.Y) > 1e-12 || math.Abs(mv.AtVec(2)-rv.Z) > 1e-12 {
		t.Errorf("matrix gives %v, Rotate gives %v", mv.RawVector().Data, rv)
	}
}

func TestCanonicalAndEqual(t *testing.T) {
	q := Normalize(quat.Number{Real: -0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5})
	c := Canonical(q)
	if c.Real <= 0 {
		t.Errorf("Canonical scalar = %v, want positive", c.Real)
	}
	if !Equal(q, c, 1e-12) {
		t.Error("q and its canonical form should be the same rotation")
	}

	zero := Canonical(quat.Number{Jmag: -1})
	if zero.Jmag != 1 {
		t.Errorf("tie-break gave %v, want +j", zero)
	}

	if got := Normalize(quat.Number{}); got != Identity {
		t.Errorf("Normalize(0) = %v, want identity", got)
	}
	if got := Angle(quat.Scale(-1, Identity)); got != 0 {
		t.Errorf("Angle(-1) = %v, want 0", got)
	}
}
