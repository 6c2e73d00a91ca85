package domain

// Source identifies the launch protocol a candidate was discovered on.
type Source string

const (
	// SourceRaydium marks candidates from Raydium AMM v4 pool initialization.
	SourceRaydium Source = "RAYDIUM"
	// SourcePumpFun marks candidates from pump.fun token creation.
	SourcePumpFun Source = "PUMPFUN"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceRaydium || s == SourcePumpFun
}
