package poolfactory

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// SortTokens orders two addresses by their numeric value.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// NewTokenPair validates and canonicalizes a caller-supplied pair.
func NewTokenPair(tokenA, tokenB common.Address) (TokenPair, error) {
	if tokenA == tokenB || tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return TokenPair{}, ErrInvalidAddress
	}
	tokenX, tokenY := SortTokens(tokenA, tokenB)
	return TokenPair{TokenX: tokenX, TokenY: tokenY}, nil
}

// IsCanonical reports whether the pair is a valid, sorted pair of non-zero tokens.
func (p TokenPair) IsCanonical() bool {
	return p.TokenX != (common.Address{}) && bytes.Compare(p.TokenX.Bytes(), p.TokenY.Bytes()) < 0
}
