package lossy

import (
	"math/rand"
	"testing"

	"github.com/deepteams/vp8enc/internal/bitio"
	"github.com/deepteams/vp8enc/internal/dsp"
)

// readCoeffs decodes one block the way a VP8 decoder does and reports
// whether it had a non-zero level.
func readCoeffs(br *bitio.BoolReader, p *ProbaTable, t, ctx, n int, out *[16]int16) int {
	prob := &p[t][kBands[n]][ctx]
	if br.GetBit(prob[0]) == 0 {
		return 0
	}
	for {
		if br.GetBit(prob[1]) == 0 {
			n++
			prob = &p[t][kBands[n]][0]
			continue
		}
		var v int
		if br.GetBit(prob[2]) == 0 {
			v, ctx = 1, 1
		} else {
			switch {
			case br.GetBit(prob[3]) == 0:
				if br.GetBit(prob[4]) == 0 {
					v = 2
				} else {
					v = 3 + br.GetBit(prob[5])
				}
			case br.GetBit(prob[6]) == 0:
				if br.GetBit(prob[7]) == 0 {
					v = 5 + br.GetBit(159)
				} else {
					v = 7 + 2*br.GetBit(165)
					v += br.GetBit(145)
				}
			default:
				b1 := br.GetBit(prob[8])
				b0 := br.GetBit(prob[9+b1])
				cat := 2*b1 + b0
				tab := [][]uint8{kCat3, kCat4, kCat5, kCat6}[cat]
				for _, pr := range tab {
					v = 2*v + br.GetBit(pr)
				}
				v += 3 + (8 << cat)
			}
			ctx = 2
		}
		if br.GetBit(128) != 0 {
			v = -v
		}
		out[n] = int16(v)
		n++
		if n == 16 {
			return 1
		}
		prob = &p[t][kBands[n]][ctx]
		if br.GetBit(prob[0]) == 0 {
			return 1
		}
	}
}

func randomLevels(rng *rand.Rand, first int) [16]int16 {
	var c [16]int16
	last := first + rng.Intn(16-first)
	for n := first; n <= last; n++ {
		switch rng.Intn(4) {
		case 0:
			c[n] = 0
		case 1:
			c[n] = int16(rng.Intn(5) - 2)
		case 2:
			c[n] = int16(rng.Intn(80) - 40)
		default:
			c[n] = int16(rng.Intn(2*MaxLevel+1) - MaxLevel)
		}
	}
	return c
}

func TestMagnitudeCategory(t *testing.T) {
	tests := []struct {
		v, cat, bits int
	}{
		{1, 0, 0}, {4, 0, 0},
		{5, 1, 1}, {6, 1, 1},
		{7, 2, 2}, {10, 2, 2},
		{11, 3, 3}, {18, 3, 3},
		{19, 4, 4}, {34, 4, 4},
		{35, 5, 5}, {66, 5, 5},
		{67, 6, 11}, {2048, 6, 11},
	}
	for _, tt := range tests {
		cat, bits := MagnitudeCategory(tt.v)
		if cat != tt.cat || bits != tt.bits {
			t.Errorf("MagnitudeCategory(%d) = (%d, %d), want (%d, %d)", tt.v, cat, bits, tt.cat, tt.bits)
		}
	}
}

func TestResidualInitLast(t *testing.T) {
	var c [16]int16
	var r Residual
	r.Init(0, TypeI4, &c)
	if r.Last != -1 {
		t.Errorf("empty block: Last = %d, want -1", r.Last)
	}
	c[0] = 5
	r.Init(1, TypeI16AC, &c)
	if r.Last != -1 {
		t.Errorf("DC only with first=1: Last = %d, want -1", r.Last)
	}
	c[9] = -1
	r.Init(0, TypeI4, &c)
	if r.Last != 9 {
		t.Errorf("Last = %d, want 9", r.Last)
	}
}

func TestCodeBlockRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type block struct {
		typ, first, ctx int
		levels      [16]int16
	}
	var blocks []block
	for i := 0; i < 400; i++ {
		typ := rng.Intn(NumTypes)
		first := 0
		if typ == TypeI16AC {
			first = 1
		}
		b := block{typ: typ, first: first, ctx: rng.Intn(NumCtx)}
		if i%5 != 0 {
			b.levels = randomLevels(rng, first)
		}
		blocks = append(blocks, b)
	}

	bw := bitio.NewBoolWriter(0)
	for i := range blocks {
		var r Residual
		r.Init(blocks[i].first, blocks[i].typ, &blocks[i].levels)
		CodeBlock(bw, &r, blocks[i].ctx, &CoeffsProba0)
	}
	data := bw.Finish()
	if err := bw.Err(); err != nil {
		t.Fatalf("writer error: %v", err)
	}

	br := bitio.NewBoolReader(data)
	for i, b := range blocks {
		var got [16]int16
		nz := readCoeffs(br, &CoeffsProba0, b.typ, b.ctx, b.first, &got)
		want := b.levels
		if b.first == 1 {
			want[0] = 0
		}
		if got != want {
			t.Fatalf("block %d: got %v, want %v", i, got, want)
		}
		if wantNZ := boolInt(want != [16]int16{}); nz != wantNZ {
			t.Fatalf("block %d: non-zero flag %d, want %d", i, nz, wantNZ)
		}
	}
}

func TestCodeBlockReturnsNonZero(t *testing.T) {
	var c [16]int16
	var r Residual
	r.Init(0, TypeChroma, &c)
	bw := bitio.NewBoolWriter(0)
	if nz := CodeBlock(bw, &r, 0, &CoeffsProba0); nz != 0 {
		t.Errorf("empty block: nz = %d, want 0", nz)
	}
	c[15] = 1
	r.Init(0, TypeChroma, &c)
	if nz := CodeBlock(bw, &r, 2, &CoeffsProba0); nz != 1 {
		t.Errorf("block with last level set: nz = %d, want 1", nz)
	}
}

// The cost of a block is the branch cost of the recorded tree decisions
// plus the signs and literal extra bits reported beside the statistics.
func TestStatisticsMatchCost(t *testing.T) {
	magnitudes := []int16{1, 2, 3, 4, 5, 6, 8, 10, 12, 25, 50, 100, 500, 2000}
	rng := rand.New(rand.NewSource(3))
	for iter := 0; iter < 200; iter++ {
		var c [16]int16
		for n := 0; n < 16; n++ {
			if rng.Intn(3) == 0 {
				c[n] = magnitudes[rng.Intn(len(magnitudes))] * int16(1-2*rng.Intn(2))
			}
		}
		typ := rng.Intn(NumTypes)
		ctx := rng.Intn(NumCtx)
		var r Residual
		r.Init(0, typ, &c)

		var stats ProbaStats
		want := 0
		RecordStatistics(&stats, &r, ctx, &want)
		for b := 0; b < NumBands; b++ {
			for cc := 0; cc < NumCtx; cc++ {
				for i := 0; i < NumProbas; i++ {
					cell := stats[typ][b][cc][i]
					want += dsp.BranchCost(int(cell[1]-cell[0]), int(cell[0]), CoeffsProba0[typ][b][cc][i])
				}
			}
		}
		if got := BlockCost(&r, ctx, &CoeffsProba0); got != want {
			t.Fatalf("iteration %d: BlockCost = %d, want %d", iter, got, want)
		}
	}
}

func TestRecordStatisticsFixedBits(t *testing.T) {
	var c [16]int16
	c[0] = -1
	var r Residual
	r.Init(0, TypeI4, &c)
	var stats ProbaStats
	bits := 0
	RecordStatistics(&stats, &r, 0, &bits)
	if bits != 256 {
		t.Errorf("one level of magnitude one: fixed bits = %d, want 256 (sign)", bits)
	}

	c[0] = 6 // category 1: one extra bit at probability 159
	r.Init(0, TypeI4, &c)
	bits = 0
	RecordStatistics(&stats, &r, 0, &bits)
	if want := 256 + dsp.BitCost(1, 159); bits != want {
		t.Errorf("level 6: fixed bits = %d, want %d", bits, want)
	}

	// A nil accumulator only records the tree decisions.
	RecordStatistics(&stats, &r, 0, nil)
}
