package parallel

// BlockSplit divides NItems consecutive items among NRanks ranks. The
// first NItems%NRanks ranks hold one item more than the rest.
type BlockSplit struct {
	NItems, NRanks int
	Ranges         [][2]int // Half open item range held by each rank
}

func NewBlockSplit(nRanks, nItems int) (bs *BlockSplit) {
	bs = &BlockSplit{
		NItems: nItems,
		NRanks: nRanks,
		Ranges: make([][2]int, nRanks),
	}
	var (
		size  = nItems / nRanks
		extra = nItems % nRanks
		begin int
	)
	for r := range bs.Ranges {
		end := begin + size
		if r < extra {
			end++
		}
		bs.Ranges[r] = [2]int{begin, end}
		begin = end
	}
	return
}

// Rank returns the rank holding item k, -1 when k is out of range
func (bs *BlockSplit) Rank(k int) int {
	if k < 0 || k >= bs.NItems {
		return -1
	}
	size, extra := bs.NItems/bs.NRanks, bs.NItems%bs.NRanks
	if k < extra*(size+1) {
		return k / (size + 1)
	}
	return extra + (k-extra*(size+1))/size
}

// Count is the number of items held by rank r
func (bs *BlockSplit) Count(r int) int {
	return bs.Ranges[r][1] - bs.Ranges[r][0]
}
