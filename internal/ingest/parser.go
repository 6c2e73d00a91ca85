// Package ingest decodes program-log notifications into launch candidates
// and drives them through the narrative filter into the pipeline.
package ingest

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/solana"
)

// Known launch program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// Parser extracts a launch candidate from one log notification.
// Returns false when the notification is not a recognized launch.
type Parser interface {
	Parse(notif solana.LogNotification, at time.Time) (domain.CandidateEvent, bool)
}

// PumpFunParser detects pump.fun token creation.
type PumpFunParser struct {
	createPattern *regexp.Regexp
	dataPattern   *regexp.Regexp
}

var _ Parser = (*PumpFunParser)(nil)

// NewPumpFunParser creates a pump.fun launch parser.
func NewPumpFunParser() *PumpFunParser {
	return &PumpFunParser{
		createPattern: regexp.MustCompile(`Program log: Instruction: Create`),
		dataPattern:   regexp.MustCompile(`Program data: ([A-Za-z0-9+/=]+)`),
	}
}

// Parse detects a Create instruction and extracts mint, name and symbol from
// the anchor event payload, falling back to textual log patterns.
func (p *PumpFunParser) Parse(notif solana.LogNotification, at time.Time) (domain.CandidateEvent, bool) {
	inProgram := false
	created := false
	var name, symbol, mint string

	for _, logLine := range notif.Logs {
		if strings.Contains(logLine, "Program "+PumpFun+" invoke") {
			inProgram = true
			continue
		}
		if strings.Contains(logLine, "Program "+PumpFun+" success") ||
			strings.Contains(logLine, "Program "+PumpFun+" failed") {
			inProgram = false
			continue
		}
		if !inProgram {
			continue
		}

		if p.createPattern.MatchString(logLine) {
			created = true
			continue
		}

		if m := p.dataPattern.FindStringSubmatch(logLine); m != nil {
			if n, s, mt, ok := decodeCreateEvent(m[1]); ok {
				name, symbol, mint = n, s, mt
			}
		}
	}

	if !created {
		return domain.CandidateEvent{}, false
	}
	if mint == "" {
		// Some providers strip event data; fall back to textual patterns.
		name, symbol, mint = extractTextMetadata(notif.Logs, name, symbol)
	}
	if mint == "" {
		return domain.CandidateEvent{}, false
	}

	return domain.CandidateEvent{
		Mint:        mint,
		Name:        name,
		Symbol:      symbol,
		Source:      domain.SourcePumpFun,
		TxSignature: notif.Signature,
		Slot:        notif.Slot,
		DetectedAt:  at,
	}, true
}

// decodeCreateEvent parses the pump.fun anchor CreateEvent payload:
// discriminator(8) + name(borsh string) + symbol(borsh string) +
// uri(borsh string) + mint(32) + bondingCurve(32) + user(32).
func decodeCreateEvent(b64 string) (name, symbol, mint string, ok bool) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) < 8 {
		return "", "", "", false
	}

	offset := 8
	name, offset, ok = readBorshString(data, offset)
	if !ok {
		return "", "", "", false
	}
	symbol, offset, ok = readBorshString(data, offset)
	if !ok {
		return "", "", "", false
	}
	_, offset, ok = readBorshString(data, offset) // uri, unused
	if !ok {
		return "", "", "", false
	}
	if offset+32 > len(data) {
		return "", "", "", false
	}
	mintBytes := data[offset : offset+32]
	if !isOnCurve(mintBytes) {
		return "", "", "", false
	}
	mint = base58.Encode(mintBytes)
	return name, symbol, mint, true
}

// isOnCurve reports whether b is the canonical encoding of an ed25519
// curve point. Launch mints are generated keypairs, so a real mint always
// decodes to an on-curve point; anything else is a misparse.
func isOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// validMintAddress checks base58 shape and curve membership for addresses
// recovered from free-form log text.
func validMintAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return isOnCurve(raw)
}

// readBorshString reads a u32-length-prefixed string at offset.
func readBorshString(data []byte, offset int) (string, int, bool) {
	if offset+4 > len(data) {
		return "", 0, false
	}
	n := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if n < 0 || offset+n > len(data) || n > 1024 {
		return "", 0, false
	}
	return string(data[offset : offset+n]), offset + n, true
}

// RaydiumParser detects Raydium AMM v4 pool initialization.
type RaydiumParser struct {
	initPattern *regexp.Regexp
}

var _ Parser = (*RaydiumParser)(nil)

// NewRaydiumParser creates a Raydium launch parser.
func NewRaydiumParser() *RaydiumParser {
	return &RaydiumParser{
		initPattern: regexp.MustCompile(`Program log: initialize2: InitializeInstruction2`),
	}
}

// Parse detects pool initialization and extracts the mint from textual log
// patterns. The init ray_log carries no mint, so text extraction is the only
// source here.
func (p *RaydiumParser) Parse(notif solana.LogNotification, at time.Time) (domain.CandidateEvent, bool) {
	invoked := false
	initialized := false
	for _, logLine := range notif.Logs {
		if strings.Contains(logLine, "Program "+RaydiumAMMV4+" invoke") {
			invoked = true
		}
		if p.initPattern.MatchString(logLine) {
			initialized = true
		}
	}
	if !invoked || !initialized {
		return domain.CandidateEvent{}, false
	}

	name, symbol, mint := extractTextMetadata(notif.Logs, "", "")
	if mint == "" {
		return domain.CandidateEvent{}, false
	}

	return domain.CandidateEvent{
		Mint:        mint,
		Name:        name,
		Symbol:      symbol,
		Source:      domain.SourceRaydium,
		TxSignature: notif.Signature,
		Slot:        notif.Slot,
		DetectedAt:  at,
	}, true
}

var (
	mintPrefixPattern = regexp.MustCompile(`(?i)(?:mint|token):\s*([1-9A-HJ-NP-Za-km-z]{32,44})`)
	nameEqPattern     = regexp.MustCompile(`(?i)name=["']?([^"'\s]+)`)
	symbolEqPattern   = regexp.MustCompile(`(?i)symbol=["']?([^"'\s]+)`)
)

// extractTextMetadata scans logs for mint addresses and name/symbol pairs,
// accepting JSON program logs and key=value patterns. Existing non-empty
// name/symbol values are kept.
func extractTextMetadata(logs []string, name, symbol string) (string, string, string) {
	var mint string

	for _, logLine := range logs {
		if m := mintPrefixPattern.FindStringSubmatch(logLine); m != nil && mint == "" && validMintAddress(m[1]) {
			mint = m[1]
		}

		if !strings.Contains(logLine, "Program log:") {
			continue
		}
		content := strings.TrimSpace(strings.TrimPrefix(logLine, "Program log:"))

		var jsonLog struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
			Mint   string `json:"mint"`
		}
		if err := json.Unmarshal([]byte(content), &jsonLog); err == nil {
			if name == "" {
				name = jsonLog.Name
			}
			if symbol == "" {
				symbol = jsonLog.Symbol
			}
			if mint == "" && validMintAddress(jsonLog.Mint) {
				mint = jsonLog.Mint
			}
			continue
		}

		if m := nameEqPattern.FindStringSubmatch(content); m != nil && name == "" {
			name = m[1]
		}
		if m := symbolEqPattern.FindStringSubmatch(content); m != nil && symbol == "" {
			symbol = m[1]
		}
	}
	return name, symbol, mint
}
