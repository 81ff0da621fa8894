package emath

import(
	"fmt"
	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point
)

// A Vec3 holds one value per colour channel, in R,G,B order.
type Vec3 f64.Vec3

func Gray3(v float64) Vec3 { return Vec3{v, v, v} }

func (v Vec3)String() string {
	return fmt.Sprintf("[%8.5f, %8.5f, %8.5f]", v[0], v[1], v[2])
}

func (v Vec3)Max() float64 {
	m := v[0]
	if v[1] > m { m = v[1] }
	if v[2] > m { m = v[2] }
	return m
}

func (v Vec3)Scale(f float64) Vec3 {
	return Vec3{v[0]*f, v[1]*f, v[2]*f}
}

func (v *Vec3)FloorAt(min float64) {
	if v[0] < min { v[0] = min }
	if v[1] < min { v[1] = min }
	if v[2] < min { v[2] = min }
}

func (v *Vec3)CeilingAt(max float64) {
	if v[0] > max { v[0] = max }
	if v[1] > max { v[1] = max }
	if v[2] > max { v[2] = max }
}
