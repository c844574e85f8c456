package parser

import "github.com/eth2030/evmtac/evm"

// listingNames maps every mnemonic the opcode table assigns (upper-case)
// to its opcode byte, built once from the table itself so it can never
// drift out of sync with evm.Lookup.
var listingNames = func() map[string]byte {
	m := make(map[string]byte, 256)
	for i := 0; i < 256; i++ {
		oc := evm.Lookup(byte(i))
		if oc.Name == "INVALID" && byte(i) != byte(evm.INVALID) {
			continue // unnamed byte; not a valid listing mnemonic
		}
		m[oc.Name] = oc.Code
	}
	return m
}()
