package wallet

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	fcrypto "github.com/filecoin-project/go-state-types/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/filsign/internal/fil"
)

func testKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	priv, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)
	kp, err := NewKeyPair(priv)
	require.NoError(t, err)
	return kp
}

func testMessage(t *testing.T, from address.Address) *fil.Message {
	t.Helper()
	to, err := address.NewIDAddress(1001)
	require.NoError(t, err)
	return &fil.Message{
		To:         to,
		From:       from,
		Nonce:      5,
		Value:      abi.NewTokenAmount(100),
		GasLimit:   1000,
		GasFeeCap:  abi.NewTokenAmount(10),
		GasPremium: abi.NewTokenAmount(2),
		Method:     fil.MethodSend,
	}
}

func TestKeyPair(t *testing.T) {
	t.Run("derives a secp256k1 address", func(t *testing.T) {
		kp := testKeyPair(t)
		assert.Equal(t, address.SECP256K1, kp.Address.Protocol())
		assert.Len(t, kp.PublicKey, 65)
	})

	t.Run("wipe zeroes the scalar", func(t *testing.T) {
		priv, err := crypto.HexToECDSA(testPrivateKey)
		require.NoError(t, err)
		kp, err := NewKeyPair(priv)
		require.NoError(t, err)

		words := priv.D.Bits()
		require.NotEmpty(t, words)

		kp.Wipe()
		assert.Equal(t, 0, priv.D.Sign())
		assert.True(t, kp.Wiped())
		for i, w := range words {
			assert.Zero(t, w, "word %d", i)
		}

		// second wipe is a no-op
		kp.Wipe()
	})

	t.Run("string shows only the address", func(t *testing.T) {
		kp := testKeyPair(t)
		assert.Equal(t, kp.Address.String(), kp.String())
		assert.NotContains(t, kp.String(), testPrivateKey)
	})
}

func TestFilecoinSigner_Sign(t *testing.T) {
	signer := NewFilecoinSigner()

	t.Run("signature recovers to the sender", func(t *testing.T) {
		kp := testKeyPair(t)
		msg := testMessage(t, kp.Address)

		sm, err := signer.Sign(msg, kp)
		require.NoError(t, err)

		assert.Equal(t, fcrypto.SigTypeSecp256k1, sm.Signature.Type)
		require.Len(t, sm.Signature.Data, SignatureLength)
		assert.LessOrEqual(t, sm.Signature.Data[64], byte(1))

		c, err := msg.Cid()
		require.NoError(t, err)
		assert.NoError(t, Verify(sm.Signature.Data, c.Bytes(), kp.Address))
	})

	t.Run("copies the message", func(t *testing.T) {
		kp := testKeyPair(t)
		msg := testMessage(t, kp.Address)

		sm, err := signer.Sign(msg, kp)
		require.NoError(t, err)

		msg.Nonce = 99
		assert.Equal(t, uint64(5), sm.Message.Nonce)
	})

	t.Run("rejects a foreign sender", func(t *testing.T) {
		kp := testKeyPair(t)
		other, err := address.NewIDAddress(7)
		require.NoError(t, err)

		_, err = signer.Sign(testMessage(t, other), kp)
		assert.ErrorIs(t, err, ErrSigning)
	})

	t.Run("fails after wipe", func(t *testing.T) {
		kp := testKeyPair(t)
		msg := testMessage(t, kp.Address)
		kp.Wipe()

		_, err := signer.Sign(msg, kp)
		assert.ErrorIs(t, err, ErrSigning)
	})

	t.Run("rejects nil", func(t *testing.T) {
		_, err := signer.Sign(nil, testKeyPair(t))
		assert.ErrorIs(t, err, ErrSigning)
	})
}

func TestFilecoinSigner_KnownVector(t *testing.T) {
	kp := testKeyPair(t)
	require.Equal(t, "t1nqjokbjze2a2nx36kz6oq54wns4w5jcwhzuzy2i", fil.FormatAddress(fil.Testnet, kp.Address))

	msg := testMessage(t, kp.Address)
	data, err := msg.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "8a004300e90755016c12e505392681a6df7e567ce877966cb96ea456054200641903e842000a4200020040", hex.EncodeToString(data))

	c, err := msg.Cid()
	require.NoError(t, err)
	assert.Equal(t, "bafy2bzaceagw4bdzr2vfsokj6uj5cnbdsu6k4gyn5oi3qhuaurjxwtxbxjvgq", c.String())

	sm, err := NewFilecoinSigner().Sign(msg, kp)
	require.NoError(t, err)
	assert.Equal(t,
		"1bafd95f8e14c585f8276c3f640de57263c177e540ebcc34f8ac8a4734aebd3b2385f70dbb0929789e8989bed4c1bd636d8bca63bfa4e51410a7e8a73402833001",
		hex.EncodeToString(sm.Signature.Data))

	t.Run("signed cid covers the envelope", func(t *testing.T) {
		signed, err := sm.Cid()
		require.NoError(t, err)
		assert.Equal(t, "bafy2bzacedw23aqv3qx3d3ei44iumag3hju4ge2a4zskp6ro5pmwlue5dbie2", signed.String())
		assert.False(t, signed.Equals(c))
	})
}

func TestFilecoinSigner_SignRaw(t *testing.T) {
	signer := NewFilecoinSigner()

	t.Run("signs the cid of the blob", func(t *testing.T) {
		kp := testKeyPair(t)
		data, err := testMessage(t, kp.Address).Serialize()
		require.NoError(t, err)

		sig, err := signer.SignRaw(data, kp)
		require.NoError(t, err)
		require.Len(t, sig, SignatureLength)

		c, err := fil.CborCid(data)
		require.NoError(t, err)
		assert.NoError(t, Verify(sig, c.Bytes(), kp.Address))
	})

	t.Run("matches structured signing for the same message", func(t *testing.T) {
		kp := testKeyPair(t)
		msg := testMessage(t, kp.Address)
		data, err := msg.Serialize()
		require.NoError(t, err)

		raw, err := signer.SignRaw(data, kp)
		require.NoError(t, err)
		sm, err := signer.Sign(msg, kp)
		require.NoError(t, err)

		assert.Equal(t, sm.Signature.Data, raw)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := signer.SignRaw(nil, testKeyPair(t))
		assert.ErrorIs(t, err, ErrSigning)
	})
}

func TestVerify(t *testing.T) {
	kp := testKeyPair(t)
	payload := []byte("payload")
	sig, err := signPayload(payload, kp)
	require.NoError(t, err)

	t.Run("wrong address fails", func(t *testing.T) {
		other, err := address.NewIDAddress(7)
		require.NoError(t, err)
		assert.Error(t, Verify(sig, payload, other))
	})

	t.Run("wrong length fails", func(t *testing.T) {
		assert.Error(t, Verify(sig[:64], payload, kp.Address))
	})
}
