package domain

import "time"

// CandidateEvent represents a newly launched token observed on a program log
// stream. Created once per on-chain creation/migration log match and immutable
// after creation. Mint is the unique identity for in-flight and daily dedup.
type CandidateEvent struct {
	Mint        string // token mint address, unique id
	Name        string // token name from launch metadata (may be empty)
	Symbol      string // token symbol from launch metadata (may be empty)
	Source      Source // RAYDIUM | PUMPFUN
	TxSignature string // discovery transaction signature
	Slot        int64  // Solana slot number
	DetectedAt  time.Time
	Keywords    []string // narrative keywords that matched this candidate
}

// MetadataText returns the lowercased text the narrative filter matches
// keywords against.
func (c CandidateEvent) MetadataText() string {
	return c.Name + " " + c.Symbol
}
