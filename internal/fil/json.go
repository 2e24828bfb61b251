package fil

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
)

// MessageJSON is the Lotus JSON shape of a message. Token amounts travel as
// decimal strings and addresses carry an explicit network prefix.
type MessageJSON struct {
	Version    uint64 `json:"Version"`
	To         string `json:"To"`
	From       string `json:"From"`
	Nonce      uint64 `json:"Nonce"`
	Value      string `json:"Value"`
	GasLimit   int64  `json:"GasLimit"`
	GasFeeCap  string `json:"GasFeeCap"`
	GasPremium string `json:"GasPremium"`
	Method     uint64 `json:"Method"`
	Params     []byte `json:"Params"`
}

// SignatureJSON mirrors crypto.Signature with base64 data.
type SignatureJSON struct {
	Type crypto.SigType `json:"Type"`
	Data []byte         `json:"Data"`
}

// CidJSON is the IPLD link form {"/": "bafy..."}.
type CidJSON struct {
	Root string `json:"/"`
}

// SignedMessageJSON is the Lotus JSON shape of a signed message.
type SignedMessageJSON struct {
	Message   MessageJSON   `json:"Message"`
	Signature SignatureJSON `json:"Signature"`
	CID       CidJSON       `json:"CID"`
}

// ToJSON converts the message for the given network.
func (m *Message) ToJSON(n Network) MessageJSON {
	var params []byte
	if len(m.Params) > 0 {
		params = m.Params
	}
	return MessageJSON{
		Version:    m.Version,
		To:         FormatAddress(n, m.To),
		From:       FormatAddress(n, m.From),
		Nonce:      m.Nonce,
		Value:      amountString(m.Value),
		GasLimit:   m.GasLimit,
		GasFeeCap:  amountString(m.GasFeeCap),
		GasPremium: amountString(m.GasPremium),
		Method:     uint64(m.Method),
		Params:     params,
	}
}

// ToJSON converts the signed message, including its CID, for the given network.
func (sm *SignedMessage) ToJSON(n Network) (SignedMessageJSON, error) {
	c, err := sm.Cid()
	if err != nil {
		return SignedMessageJSON{}, err
	}
	return SignedMessageJSON{
		Message: sm.Message.ToJSON(n),
		Signature: SignatureJSON{
			Type: sm.Signature.Type,
			Data: sm.Signature.Data,
		},
		CID: CidJSON{Root: c.String()},
	}, nil
}

func amountString(v abi.TokenAmount) string {
	if v.Nil() {
		return "0"
	}
	return v.String()
}
