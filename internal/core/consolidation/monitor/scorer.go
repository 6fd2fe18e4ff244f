package monitor

import (
	"github.com/holiman/uint256"

	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

// DefaultScorer 默认碎片化评分：round(100 × (1 − 最大票据 / 总额))
//
// 少于 2 张或总额为 0 时为 0。全部余额集中在一张票据上得 0，
// 余额均匀分散在大量票据上趋近 100。
var DefaultScorer consolidation.FragmentationScorer = consolidation.ScorerFunc(defaultScore)

func defaultScore(notes []types.Note) uint8 {
	if len(notes) < 2 {
		return 0
	}
	var total, largest uint256.Int
	for i := range notes {
		total.Add(&total, &notes[i].Amount)
		if notes[i].Amount.Gt(&largest) {
			largest.Set(&notes[i].Amount)
		}
	}
	if total.IsZero() {
		return 0
	}

	// round(100·(total−largest)/total) = ⌊(200·(total−largest) + total) / (2·total)⌋
	var num, den uint256.Int
	num.Sub(&total, &largest)
	num.Mul(&num, uint256.NewInt(200))
	num.Add(&num, &total)
	den.Mul(&total, uint256.NewInt(2))
	num.Div(&num, &den)
	return uint8(num.Uint64())
}
