package tx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/yolodolo42/filsign/internal/fil"
)

var ErrPolicyViolation = errors.New("policy violation")

// MessageRequest is a caller's transfer request. It is never modified after
// construction.
type MessageRequest struct {
	To         address.Address
	Value      abi.TokenAmount
	GasLimit   Optional[int64]
	GasPremium Optional[abi.TokenAmount]
	GasFeeCap  Optional[abi.TokenAmount]
}

// RequestInput is the string form of a request as it arrives from flags or
// JSON. Empty and zero gas values mean "not provided".
type RequestInput struct {
	To         string
	Value      string
	GasLimit   string
	GasPremium string
	GasFeeCap  string
}

// ParseRequest converts wire input into a MessageRequest.
func ParseRequest(in RequestInput) (MessageRequest, error) {
	to, err := fil.ParseAddress(in.To)
	if err != nil {
		return MessageRequest{}, err
	}

	value, err := fil.ParseAmount(in.Value)
	if err != nil {
		return MessageRequest{}, fmt.Errorf("value: %w", err)
	}

	gasLimit, err := parseGasLimit(in.GasLimit)
	if err != nil {
		return MessageRequest{}, err
	}
	premium, err := parseGasAmount("gas premium", in.GasPremium)
	if err != nil {
		return MessageRequest{}, err
	}
	feeCap, err := parseGasAmount("gas fee cap", in.GasFeeCap)
	if err != nil {
		return MessageRequest{}, err
	}

	return MessageRequest{
		To:         to,
		Value:      value,
		GasLimit:   gasLimit,
		GasPremium: premium,
		GasFeeCap:  feeCap,
	}, nil
}

func parseGasLimit(s string) (Optional[int64], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unset[int64](), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Unset[int64](), fmt.Errorf("gas limit: %w", err)
	}
	if v < 0 {
		return Unset[int64](), fmt.Errorf("gas limit must not be negative: %d", v)
	}
	if v == 0 {
		return Unset[int64](), nil
	}
	return Provided(v), nil
}

func parseGasAmount(field, s string) (Optional[abi.TokenAmount], error) {
	if strings.TrimSpace(s) == "" {
		return Unset[abi.TokenAmount](), nil
	}
	v, err := fil.ParseAmount(s)
	if err != nil {
		return Unset[abi.TokenAmount](), fmt.Errorf("%s: %w", field, err)
	}
	if v.IsZero() {
		return Unset[abi.TokenAmount](), nil
	}
	return Provided(v), nil
}

// Policy enforces safety constraints before a message is shown for
// confirmation. A nil MaxValue means no limit.
type Policy struct {
	MaxValue abi.TokenAmount
	AllowTo  []address.Address
	DenyTo   []address.Address
}

// NewPolicy parses configured policy values.
func NewPolicy(maxValue string, allowTo, denyTo []string) (Policy, error) {
	var p Policy
	if strings.TrimSpace(maxValue) != "" {
		v, err := fil.ParseAmount(maxValue)
		if err != nil {
			return Policy{}, fmt.Errorf("max value: %w", err)
		}
		p.MaxValue = v
	}
	for _, s := range allowTo {
		a, err := fil.ParseAddress(s)
		if err != nil {
			return Policy{}, err
		}
		p.AllowTo = append(p.AllowTo, a)
	}
	for _, s := range denyTo {
		a, err := fil.ParseAddress(s)
		if err != nil {
			return Policy{}, err
		}
		p.DenyTo = append(p.DenyTo, a)
	}
	return p, nil
}

// Check applies allow/deny lists and the value limit.
func (p Policy) Check(msg *fil.Message) error {
	for _, a := range p.DenyTo {
		if a == msg.To {
			return fmt.Errorf("%w: destination %s denied", ErrPolicyViolation, msg.To)
		}
	}
	if len(p.AllowTo) > 0 {
		allowed := false
		for _, a := range p.AllowTo {
			if a == msg.To {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: destination %s not in allowlist", ErrPolicyViolation, msg.To)
		}
	}
	if !p.MaxValue.Nil() && !msg.Value.Nil() && big.Cmp(msg.Value, p.MaxValue) > 0 {
		return fmt.Errorf("%w: value %s FIL exceeds limit %s FIL", ErrPolicyViolation,
			fil.FormatFIL(msg.Value), fil.FormatFIL(p.MaxValue))
	}
	return nil
}
