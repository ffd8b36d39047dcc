package token

import "github.com/ethereum/go-ethereum/common"

var (
	balancePrefix = []byte("token/balance/")
	supplyPrefix  = []byte("token/supply/")
)

func balanceKey(token, holder common.Address) []byte {
	buf := make([]byte, 0, len(balancePrefix)+2*common.AddressLength+1)
	buf = append(buf, balancePrefix...)
	buf = append(buf, token.Bytes()...)
	buf = append(buf, '/')
	buf = append(buf, holder.Bytes()...)
	return buf
}

func supplyKey(token common.Address) []byte {
	buf := make([]byte, 0, len(supplyPrefix)+common.AddressLength)
	buf = append(buf, supplyPrefix...)
	buf = append(buf, token.Bytes()...)
	return buf
}
