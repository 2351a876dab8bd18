package kernel

import (
	"fmt"
	"sort"
)

const partitionAlignment = 0x100

// Block is an allocated range [Low, High) of emulated memory.
type Block struct {
	Low  uint32 `json:"low"`
	High uint32 `json:"high"`
	Name string `json:"name"`
}

func (b Block) Size() uint32 {
	return b.High - b.Low
}

type partitionSegment struct {
	Block
	allocated bool
}

// MemoryPartition hands out thread stacks from a fixed region. Segments cover
// the region exactly and are kept sorted by address; allocation is best fit
// and freeing merges with free neighbours.
type MemoryPartition struct {
	Base     uint32
	Size     uint32
	segments []partitionSegment
}

func NewMemoryPartition(base, size uint32) *MemoryPartition {
	return &MemoryPartition{
		Base:     base,
		Size:     size,
		segments: []partitionSegment{{Block: Block{Low: base, High: base + size}}},
	}
}

// Alloc reserves size bytes rounded up to the partition alignment. Stacks are
// taken from the high end of the chosen segment.
func (p *MemoryPartition) Alloc(name string, size uint32) (Block, error) {
	if size == 0 {
		return Block{}, ErrIllegalStackSize
	}
	size = (size + partitionAlignment - 1) &^ (partitionAlignment - 1)

	best := -1
	for i, seg := range p.segments {
		if seg.allocated || seg.Size() < size {
			continue
		}
		if best == -1 || seg.Size() < p.segments[best].Size() {
			best = i
		}
	}
	if best == -1 {
		return Block{}, ErrNoMemory
	}

	seg := p.segments[best]
	block := Block{Low: seg.High - size, High: seg.High, Name: name}
	if seg.Size() == size {
		p.segments[best] = partitionSegment{Block: block, allocated: true}
		return block, nil
	}

	p.segments[best].High = block.Low
	p.segments = append(p.segments, partitionSegment{})
	copy(p.segments[best+2:], p.segments[best+1:])
	p.segments[best+1] = partitionSegment{Block: block, allocated: true}
	return block, nil
}

// Free releases a block returned by Alloc.
func (p *MemoryPartition) Free(block Block) error {
	i := sort.Search(len(p.segments), func(i int) bool { return p.segments[i].Low >= block.Low })
	if i == len(p.segments) || p.segments[i].Low != block.Low || !p.segments[i].allocated {
		return fmt.Errorf("freeing 0x%08X: %w", block.Low, ErrInconsistentState)
	}
	p.segments[i].allocated = false
	p.segments[i].Name = ""

	if i+1 < len(p.segments) && !p.segments[i+1].allocated {
		p.segments[i].High = p.segments[i+1].High
		p.segments = append(p.segments[:i+1], p.segments[i+2:]...)
	}
	if i > 0 && !p.segments[i-1].allocated {
		p.segments[i-1].High = p.segments[i].High
		p.segments = append(p.segments[:i], p.segments[i+1:]...)
	}
	return nil
}

// FreeBytes is the total of all free segments.
func (p *MemoryPartition) FreeBytes() uint32 {
	var total uint32
	for _, seg := range p.segments {
		if !seg.allocated {
			total += seg.Size()
		}
	}
	return total
}

// MaxFreeBlock is the largest single allocation that could succeed.
func (p *MemoryPartition) MaxFreeBlock() uint32 {
	var max uint32
	for _, seg := range p.segments {
		if !seg.allocated && seg.Size() > max {
			max = seg.Size()
		}
	}
	return max
}

// Allocated lists the live blocks in address order.
func (p *MemoryPartition) Allocated() []Block {
	var out []Block
	for _, seg := range p.segments {
		if seg.allocated {
			out = append(out, seg.Block)
		}
	}
	return out
}
