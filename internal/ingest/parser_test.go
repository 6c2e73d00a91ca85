package ingest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/solana"
)

// curveMint returns the n-th multiple of the ed25519 base point, so tests
// use mint bytes that pass curve validation like real keypair addresses.
func curveMint(n int) [32]byte {
	p := edwards25519.NewGeneratorPoint()
	for i := 1; i < n; i++ {
		p.Add(p, edwards25519.NewGeneratorPoint())
	}
	var out [32]byte
	copy(out[:], p.Bytes())
	return out
}

// offCurveMint returns 32 bytes that are not a valid point encoding.
func offCurveMint() [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = 0xFF
	}
	return out
}

// buildCreateEvent assembles a pump.fun CreateEvent payload for tests.
func buildCreateEvent(name, symbol, uri string, mint [32]byte) string {
	var buf bytes.Buffer
	buf.Write(make([]byte, 8)) // discriminator
	for _, s := range []string{name, symbol, uri} {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		buf.Write(n[:])
		buf.WriteString(s)
	}
	buf.Write(mint[:])
	buf.Write(make([]byte, 64)) // bonding curve + user
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPumpFunParserCreate(t *testing.T) {
	mint := curveMint(1)
	payload := buildCreateEvent("TrumpCoin", "TRUMP", "https://example/meta.json", mint)

	notif := solana.LogNotification{
		Signature: "sig123",
		Slot:      555,
		Logs: []string{
			"Program " + PumpFun + " invoke [1]",
			"Program log: Instruction: Create",
			"Program data: " + payload,
			"Program " + PumpFun + " success",
		},
	}

	p := NewPumpFunParser()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c, ok := p.Parse(notif, now)
	require.True(t, ok)

	assert.Equal(t, base58.Encode(mint[:]), c.Mint)
	assert.Equal(t, "TrumpCoin", c.Name)
	assert.Equal(t, "TRUMP", c.Symbol)
	assert.Equal(t, domain.SourcePumpFun, c.Source)
	assert.Equal(t, "sig123", c.TxSignature)
	assert.Equal(t, int64(555), c.Slot)
	assert.Equal(t, now, c.DetectedAt)
}

func TestPumpFunParserIgnoresBuy(t *testing.T) {
	notif := solana.LogNotification{
		Logs: []string{
			"Program " + PumpFun + " invoke [1]",
			"Program log: Instruction: Buy",
			"Program " + PumpFun + " success",
		},
	}

	_, ok := NewPumpFunParser().Parse(notif, time.Now())
	assert.False(t, ok)
}

func TestPumpFunParserCreateOutsideProgram(t *testing.T) {
	// Create instruction logged by a different program must not match.
	notif := solana.LogNotification{
		Logs: []string{
			"Program SomeOtherProgram1111111111111111111111111 invoke [1]",
			"Program log: Instruction: Create",
		},
	}

	_, ok := NewPumpFunParser().Parse(notif, time.Now())
	assert.False(t, ok)
}

func TestPumpFunParserTextFallback(t *testing.T) {
	mint := curveMint(2)
	mintAddr := base58.Encode(mint[:])
	notif := solana.LogNotification{
		Signature: "sigfb",
		Logs: []string{
			"Program " + PumpFun + " invoke [1]",
			"Program log: Instruction: Create",
			`Program log: {"name":"FedWatch","symbol":"FEDW","mint":"` + mintAddr + `"}`,
			"Program " + PumpFun + " success",
		},
	}

	c, ok := NewPumpFunParser().Parse(notif, time.Now())
	require.True(t, ok)
	assert.Equal(t, mintAddr, c.Mint)
	assert.Equal(t, "FedWatch", c.Name)
	assert.Equal(t, "FEDW", c.Symbol)
}

func TestRaydiumParserInitialize(t *testing.T) {
	mint := curveMint(3)
	mintAddr := base58.Encode(mint[:])
	notif := solana.LogNotification{
		Signature: "sigray",
		Slot:      777,
		Logs: []string{
			"Program " + RaydiumAMMV4 + " invoke [1]",
			"Program log: initialize2: InitializeInstruction2 { nonce: 254 }",
			"Program log: mint: " + mintAddr,
			"Program log: name=Maduro symbol=MAD",
			"Program " + RaydiumAMMV4 + " success",
		},
	}

	c, ok := NewRaydiumParser().Parse(notif, time.Now())
	require.True(t, ok)
	assert.Equal(t, mintAddr, c.Mint)
	assert.Equal(t, "Maduro", c.Name)
	assert.Equal(t, "MAD", c.Symbol)
	assert.Equal(t, domain.SourceRaydium, c.Source)
}

func TestRaydiumParserIgnoresSwaps(t *testing.T) {
	notif := solana.LogNotification{
		Logs: []string{
			"Program " + RaydiumAMMV4 + " invoke [1]",
			"Program log: ray_log: AwAAAAA=",
			"Program " + RaydiumAMMV4 + " success",
		},
	}

	_, ok := NewRaydiumParser().Parse(notif, time.Now())
	assert.False(t, ok)
}

func TestDecodeCreateEventTruncated(t *testing.T) {
	_, _, _, ok := decodeCreateEvent("AAAA")
	assert.False(t, ok)

	_, _, _, ok = decodeCreateEvent("not-base64!!!")
	assert.False(t, ok)
}

func TestDecodeCreateEventRejectsOffCurveMint(t *testing.T) {
	payload := buildCreateEvent("Junk", "JNK", "https://example/meta.json", offCurveMint())
	_, _, _, ok := decodeCreateEvent(payload)
	assert.False(t, ok)
}

func TestTextFallbackRejectsInvalidMint(t *testing.T) {
	bad := offCurveMint()
	badAddr := base58.Encode(bad[:])

	notif := solana.LogNotification{
		Logs: []string{
			"Program " + PumpFun + " invoke [1]",
			"Program log: Instruction: Create",
			`Program log: {"name":"Junk","symbol":"JNK","mint":"` + badAddr + `"}`,
			"Program " + PumpFun + " success",
		},
	}
	_, ok := NewPumpFunParser().Parse(notif, time.Now())
	assert.False(t, ok)

	notif = solana.LogNotification{
		Logs: []string{
			"Program " + RaydiumAMMV4 + " invoke [1]",
			"Program log: initialize2: InitializeInstruction2 { nonce: 254 }",
			"Program log: mint: " + badAddr,
			"Program " + RaydiumAMMV4 + " success",
		},
	}
	_, ok = NewRaydiumParser().Parse(notif, time.Now())
	assert.False(t, ok)
}
