package pool

import (
	"github.com/defistate/pool-factory-go/safecast"
	"github.com/holiman/uint256"
)

const (
	pointBits   = 24
	createdFlag = uint32(1) << pointBits
	pointMask   = createdFlag - 1
)

// state is the storage of one pool. reserves packs reserveX into the low 128 bits and reserveY
// into the high 128 bits; slot0 packs the active point into the low 24 bits above which sits
// the created flag.
type state struct {
	reserves uint256.Int
	slot0    uint32
}

func newState(initialPoint *uint256.Int) (*state, error) {
	p, err := safecast.Narrow(initialPoint, safecast.Uint24)
	if err != nil {
		return nil, err
	}
	return &state{slot0: createdFlag | uint32(p.Uint64())}, nil
}

func (s *state) created() bool { return s.slot0&createdFlag != 0 }

func (s *state) point() uint32 { return s.slot0 & pointMask }

// unpack returns fresh copies of both reserves.
func (s *state) unpack() (x, y *uint256.Int) {
	x = new(uint256.Int).Set(&s.reserves)
	x[2], x[3] = 0, 0
	y = new(uint256.Int).Rsh(&s.reserves, 128)
	return x, y
}

// pack stores both reserves, failing if either needs more than 128 bits. The state is left
// untouched on failure.
func (s *state) pack(x, y *uint256.Int) error {
	x, err := safecast.ToUint128(x)
	if err != nil {
		return err
	}
	y, err = safecast.ToUint128(y)
	if err != nil {
		return err
	}
	s.reserves.Lsh(y, 128)
	s.reserves.Or(&s.reserves, x)
	return nil
}
