package types

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Payload is an opaque message body. In JSON it is either 0x-prefixed hex
// or plain text, which is taken as its UTF-8 bytes.
type Payload []byte

func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Encode(p))
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hexutil.Decode("0x" + s[2:])
		if err == nil {
			*p = b
			return nil
		}
	}
	*p = Payload(s)
	return nil
}

func (p Payload) String() string {
	return hexutil.Encode(p)
}
