package tx

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/filsign/internal/fil"
)

func TestOptional(t *testing.T) {
	t.Run("provided zero is distinguishable from unset", func(t *testing.T) {
		zero := Provided(int64(0))
		v, ok := zero.Get()
		assert.True(t, ok)
		assert.Equal(t, int64(0), v)

		unset := Unset[int64]()
		_, ok = unset.Get()
		assert.False(t, ok)
		assert.False(t, unset.IsSet())
	})

	t.Run("or else", func(t *testing.T) {
		assert.Equal(t, int64(7), Unset[int64]().OrElse(7))
		assert.Equal(t, int64(3), Provided(int64(3)).OrElse(7))
	})
}

func TestParseRequest(t *testing.T) {
	t.Run("zero and empty gas mean unset", func(t *testing.T) {
		for _, zero := range []string{"", "0", " 0 "} {
			req, err := ParseRequest(RequestInput{
				To:         "t01001",
				Value:      "100",
				GasLimit:   zero,
				GasPremium: zero,
				GasFeeCap:  zero,
			})
			require.NoError(t, err, zero)
			assert.False(t, req.GasLimit.IsSet(), zero)
			assert.False(t, req.GasPremium.IsSet(), zero)
			assert.False(t, req.GasFeeCap.IsSet(), zero)
		}
	})

	t.Run("concrete gas is provided", func(t *testing.T) {
		req, err := ParseRequest(RequestInput{
			To:         "f01001",
			Value:      "1.5FIL",
			GasLimit:   "500",
			GasPremium: "3",
			GasFeeCap:  "7",
		})
		require.NoError(t, err)

		limit, ok := req.GasLimit.Get()
		require.True(t, ok)
		assert.Equal(t, int64(500), limit)

		premium, ok := req.GasPremium.Get()
		require.True(t, ok)
		assert.Equal(t, "3", premium.String())

		feeCap, ok := req.GasFeeCap.Get()
		require.True(t, ok)
		assert.Equal(t, "7", feeCap.String())

		assert.Equal(t, "1500000000000000000", req.Value.String())
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for name, in := range map[string]RequestInput{
			"bad address":  {To: "nope", Value: "1"},
			"bad value":    {To: "t01001", Value: "x"},
			"bad limit":    {To: "t01001", Value: "1", GasLimit: "many"},
			"negative gas": {To: "t01001", Value: "1", GasLimit: "-5"},
			"bad premium":  {To: "t01001", Value: "1", GasPremium: "-1"},
			"bad fee cap":  {To: "t01001", Value: "1", GasFeeCap: "1.5"},
		} {
			_, err := ParseRequest(in)
			assert.Error(t, err, name)
		}
	})
}

func TestPolicy(t *testing.T) {
	a, err := address.NewIDAddress(1001)
	require.NoError(t, err)
	b, err := address.NewIDAddress(1002)
	require.NoError(t, err)

	msg := func(to address.Address, value int64) *fil.Message {
		return &fil.Message{To: to, Value: abi.NewTokenAmount(value)}
	}

	t.Run("empty policy allows everything", func(t *testing.T) {
		assert.NoError(t, Policy{}.Check(msg(a, 1_000_000)))
	})

	t.Run("deny list", func(t *testing.T) {
		p := Policy{DenyTo: []address.Address{a}}
		assert.ErrorIs(t, p.Check(msg(a, 1)), ErrPolicyViolation)
		assert.NoError(t, p.Check(msg(b, 1)))
	})

	t.Run("allow list", func(t *testing.T) {
		p := Policy{AllowTo: []address.Address{a}}
		assert.NoError(t, p.Check(msg(a, 1)))
		assert.ErrorIs(t, p.Check(msg(b, 1)), ErrPolicyViolation)
	})

	t.Run("max value", func(t *testing.T) {
		p := Policy{MaxValue: abi.NewTokenAmount(100)}
		assert.NoError(t, p.Check(msg(a, 100)))
		assert.ErrorIs(t, p.Check(msg(a, 101)), ErrPolicyViolation)
	})

	t.Run("parses configured values", func(t *testing.T) {
		p, err := NewPolicy("1FIL", []string{"t01001"}, []string{"f01002"})
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", p.MaxValue.String())
		assert.Equal(t, []address.Address{a}, p.AllowTo)
		assert.Equal(t, []address.Address{b}, p.DenyTo)

		_, err = NewPolicy("", []string{"bogus"}, nil)
		assert.Error(t, err)
	})
}

func TestState(t *testing.T) {
	assert.Equal(t, "awaiting_confirmation", StateAwaitingConfirmation.String())
	assert.True(t, StateSigned.Terminal())
	assert.True(t, StateRejected.Terminal())
	assert.False(t, StateGasResolved.Terminal())
}

func TestRenderRawSummary(t *testing.T) {
	from, err := address.NewIDAddress(1000)
	require.NoError(t, err)

	t.Run("echoes every byte of a long payload", func(t *testing.T) {
		long := bytes.Repeat([]byte{0xab}, 600)
		long[len(long)-1] = 0xcd

		s := RenderRawSummary(testWallet, long, from)
		assert.Contains(t, s, hex.EncodeToString(long))
		assert.True(t, strings.Contains(s, "abcd\n"), "tail of the payload is shown")
		assert.NotContains(t, s, "...")
		assert.Contains(t, s, "payload: 600 bytes")
		assert.Contains(t, s, "with account t01000?")
	})

	t.Run("short payload", func(t *testing.T) {
		s := RenderRawSummary(testWallet, []byte{1, 2}, from)
		assert.Contains(t, s, "0102\n")
		assert.Contains(t, s, "payload: 2 bytes")
	})
}
