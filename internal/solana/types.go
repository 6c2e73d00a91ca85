package solana

// LogsFilter selects program-log notifications by mentioned account.
type LogsFilter struct {
	Mentions []string
}

// LogNotification is one logsNotification delivered by the stream.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{} // non-nil when the transaction failed
}

// TokenAccountBalance is one entry from getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address  string
	Amount   float64 // ui amount
	Decimals int
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime int64
	Err       interface{}
}
