package numeric

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"
)

// Matrix is an M x N row-major slice of float32. Concurrent row updates
// from multiple goroutines are intentional (Hogwild-style SGD): no locking
// is performed here, plain slice stores race on purpose and correctness
// relies on the sparsity of the updates, not on atomicity of any single
// store. See pkg/train for the discipline that makes this safe in practice.
type Matrix struct {
	M, N int
	Data []float32
}

// NewMatrix allocates a zeroed m x n matrix.
func NewMatrix(m, n int) *Matrix {
	return &Matrix{M: m, N: n, Data: make([]float32, m*n)}
}

func (mx *Matrix) row(i int) []float32 {
	off := i * mx.N
	return mx.Data[off : off+mx.N]
}

// AddRow adds a*v into row i in place: M[i,:] += a*v.
func (mx *Matrix) AddRow(v *Vector, i int, a float32) {
	row := mx.row(i)
	for j := range row {
		row[j] += a * v.Data[j]
	}
}

// DotRow returns <M[i,:], v>.
func (mx *Matrix) DotRow(v *Vector, i int) float32 {
	row := mx.row(i)
	var s float32
	for j := range row {
		s += row[j] * v.Data[j]
	}
	return s
}

func (mx *Matrix) GetCell(i, j int) float32 {
	return mx.Data[i*mx.N+j]
}

func (mx *Matrix) UpdateCell(i, j int, v float32) {
	mx.Data[i*mx.N+j] = v
}

func (mx *Matrix) Zero() {
	for i := range mx.Data {
		mx.Data[i] = 0
	}
}

// Uniform fills the matrix with independent draws from Uniform[-a, a].
func (mx *Matrix) Uniform(a float32, rng *rand.Rand) {
	for i := range mx.Data {
		mx.Data[i] = (rng.Float32()*2 - 1) * a
	}
}

// Gaussian fills the matrix with independent standard normal draws.
func (mx *Matrix) Gaussian(rng *rand.Rand) {
	for i := range mx.Data {
		mx.Data[i] = float32(rng.NormFloat64())
	}
}

// BetaColumns fills column j of an m x n matrix by drawing each row's entry
// from Beta(a_j, b), where a_j is supplied per column by aFor. This backs
// the theta gate's Beta-distributed initialization (spec §3: columns rise
// 1..ws+1 then mirror back down).
func (mx *Matrix) BetaColumns(b float32, aFor func(col int) float32, rng *rand.Rand) {
	for j := 0; j < mx.N; j++ {
		a := aFor(j)
		for i := 0; i < mx.M; i++ {
			mx.UpdateCell(i, j, float32(SampleBeta(rng, float64(a), float64(b))))
		}
	}
}

func (mx *Matrix) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(mx.M)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(mx.N)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, mx.Data)
}

func (mx *Matrix) Load(r io.Reader) error {
	var m, n int64
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	mx.M, mx.N = int(m), int(n)
	mx.Data = make([]float32, mx.M*mx.N)
	return binary.Read(r, binary.LittleEndian, mx.Data)
}

func (mx *Matrix) String() string {
	return fmt.Sprintf("Matrix(%dx%d)", mx.M, mx.N)
}

// L1 returns the sum of absolute values, used only for diagnostic logging.
func (mx *Matrix) L1() float64 {
	var s float64
	for _, x := range mx.Data {
		s += math.Abs(float64(x))
	}
	return s
}
