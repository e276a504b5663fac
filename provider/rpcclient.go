package provider

import (
	"context"
	"fmt"
	"math/big"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/rlp"
	"github.com/HerodotusDev/hdp-sub002/trie"
)

// RPCClient wraps go-ethereum's rpc.Client (already a teacher dependency,
// repurposed here from node-to-node transport to HDP's archival data
// source) to answer account/storage/transaction/receipt proof queries
// (spec §4.5).
type RPCClient struct {
	client *gethrpc.Client
}

// DialRPCClient connects to url (the RPC_URL from spec §6).
func DialRPCClient(ctx context.Context, url string) (*RPCClient, error) {
	c, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrRPC, url, err)
	}
	return &RPCClient{client: c}, nil
}

// Close releases the underlying connection.
func (c *RPCClient) Close() { c.client.Close() }

type rpcAccountProof struct {
	Address      string               `json:"address"`
	AccountProof []string             `json:"accountProof"`
	Balance      string               `json:"balance"`
	CodeHash     string               `json:"codeHash"`
	Nonce        string               `json:"nonce"`
	StorageHash  string               `json:"storageHash"`
	StorageProof []rpcStorageProof    `json:"storageProof"`
}

type rpcStorageProof struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Proof []string `json:"proof"`
}

// GetProof calls eth_getProof for a single block, returning the parsed
// EIP-1186 proof for address and the given storage keys.
func (c *RPCClient) GetProof(ctx context.Context, address types.Address, storageKeys []types.Hash, block uint64) (EIP1186Proof, error) {
	keyStrs := make([]string, len(storageKeys))
	for i, k := range storageKeys {
		keyStrs[i] = "0x" + hexString(k[:])
	}

	var raw rpcAccountProof
	err := c.client.CallContext(ctx, &raw, "eth_getProof", "0x"+hexString(address[:]), keyStrs, blockNumberHex(block))
	if err != nil {
		return EIP1186Proof{}, fmt.Errorf("%w: eth_getProof: %v", ErrRPC, err)
	}

	proof := EIP1186Proof{Address: address}
	proof.AccountProof = decodeHexList(raw.AccountProof)
	balance, err := decodeHexBytes(raw.Balance)
	if err != nil {
		return EIP1186Proof{}, fmt.Errorf("%w: balance: %v", ErrRPC, err)
	}
	proof.Balance = balance
	codeHashB, err := decodeHexBytes(raw.CodeHash)
	if err != nil {
		return EIP1186Proof{}, fmt.Errorf("%w: codeHash: %v", ErrRPC, err)
	}
	proof.CodeHash = types.BytesToHash(codeHashB)
	proof.Nonce = hexToUint64(raw.Nonce)
	storageHashB, err := decodeHexBytes(raw.StorageHash)
	if err != nil {
		return EIP1186Proof{}, fmt.Errorf("%w: storageHash: %v", ErrRPC, err)
	}
	proof.StorageHash = types.BytesToHash(storageHashB)

	for _, sp := range raw.StorageProof {
		keyB, err := decodeHexBytes(sp.Key)
		if err != nil {
			return EIP1186Proof{}, fmt.Errorf("%w: storage key: %v", ErrRPC, err)
		}
		valB, err := decodeHexBytes(sp.Value)
		if err != nil {
			return EIP1186Proof{}, fmt.Errorf("%w: storage value: %v", ErrRPC, err)
		}
		proof.StorageProof = append(proof.StorageProof, EIP1186StorageProof{
			Key:   types.BytesToHash(keyB),
			Value: valB,
			Proof: decodeHexList(sp.Proof),
		})
	}
	return proof, nil
}

type rpcBlockHeaderOnly struct {
	Transactions []string `json:"transactions"` // tx hashes, fullTx=false
}

// GetBlockTxCount returns the number of transactions in a block, used to
// bounds-check transaction/receipt index requests (spec §4.5,
// "Out-of-bound").
func (c *RPCClient) GetBlockTxCount(ctx context.Context, block uint64) (uint64, error) {
	var raw rpcBlockHeaderOnly
	err := c.client.CallContext(ctx, &raw, "eth_getBlockByNumber", blockNumberHex(block), false)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_getBlockByNumber: %v", ErrRPC, err)
	}
	return uint64(len(raw.Transactions)), nil
}

// GetRawTransaction fetches the raw RLP bytes of one transaction by its
// position within a block, via the widely supported (if non-standard)
// eth_getRawTransactionByBlockNumberAndIndex method.
func (c *RPCClient) GetRawTransaction(ctx context.Context, block, index uint64) ([]byte, error) {
	var raw string
	err := c.client.CallContext(ctx, &raw, "eth_getRawTransactionByBlockNumberAndIndex", blockNumberHex(block), indexHex(index))
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getRawTransactionByBlockNumberAndIndex: %v", ErrRPC, err)
	}
	return decodeHexBytes(raw)
}

type rpcReceipt struct {
	Type              string    `json:"type"`
	Status            string    `json:"status"`
	CumulativeGasUsed string    `json:"cumulativeGasUsed"`
	LogsBloom         string    `json:"logsBloom"`
	Logs              []rpcLog  `json:"logs"`
	TransactionIndex  string    `json:"transactionIndex"`
}

type rpcLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// GetBlockReceipts fetches every receipt in a block via eth_getBlockReceipts
// (supported by go-ethereum and major archive providers) and RLP-encodes
// each one with the consensus encoding from core/types, so the caller can
// build a receipt trie identical to the one committed in the block header.
func (c *RPCClient) GetBlockReceipts(ctx context.Context, block uint64) ([][]byte, error) {
	var raw []rpcReceipt
	err := c.client.CallContext(ctx, &raw, "eth_getBlockReceipts", blockNumberHex(block))
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getBlockReceipts: %v", ErrRPC, err)
	}
	out := make([][]byte, len(raw))
	for i, r := range raw {
		receipt, err := convertReceipt(r)
		if err != nil {
			return nil, fmt.Errorf("%w: receipt %d: %v", ErrRPC, i, err)
		}
		enc, err := receipt.EncodeRLP()
		if err != nil {
			return nil, fmt.Errorf("%w: receipt %d rlp: %v", ErrRPC, i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func convertReceipt(r rpcReceipt) (*types.Receipt, error) {
	status := hexToUint64(r.Status)
	cumGas := hexToUint64(r.CumulativeGasUsed)
	typ := uint8(hexToUint64(r.Type))

	bloomB, err := decodeHexBytes(r.LogsBloom)
	if err != nil {
		return nil, err
	}
	var bloom types.Bloom
	copy(bloom[types.BloomLength-len(bloomB):], bloomB)

	logs := make([]*types.Log, len(r.Logs))
	for i, l := range r.Logs {
		addrB, err := decodeHexBytes(l.Address)
		if err != nil {
			return nil, err
		}
		var addr types.Address
		copy(addr[types.AddressLength-len(addrB):], addrB)

		topics := make([]types.Hash, len(l.Topics))
		for j, topic := range l.Topics {
			tb, err := decodeHexBytes(topic)
			if err != nil {
				return nil, err
			}
			topics[j] = types.BytesToHash(tb)
		}
		data, err := decodeHexBytes(l.Data)
		if err != nil {
			return nil, err
		}
		logs[i] = &types.Log{Address: addr, Topics: topics, Data: data}
	}

	return &types.Receipt{
		Type:              typ,
		Status:            status,
		CumulativeGasUsed: cumGas,
		Bloom:             bloom,
		Logs:              logs,
	}, nil
}

// BuildOrderedTrie builds an in-memory trie keyed by rlp(index) over a
// block's full item list (all transactions, or all receipts), the standard
// Ethereum indexing scheme for the transactions/receipts trie.
func BuildOrderedTrie(items [][]byte) (*trie.Trie, error) {
	t := trie.New()
	for i, item := range items {
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			return nil, fmt.Errorf("%w: encode trie key %d: %v", ErrRPC, i, err)
		}
		if err := t.Put(key, item); err != nil {
			return nil, fmt.Errorf("%w: insert trie key %d: %v", ErrRPC, i, err)
		}
	}
	return t, nil
}

func hexString(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

func decodeHexList(in []string) [][]byte {
	out := make([][]byte, len(in))
	for i, s := range in {
		b, err := decodeHexBytes(s)
		if err != nil {
			continue
		}
		out[i] = b
	}
	return out
}

func hexToUint64(s string) uint64 {
	s = trimHexPrefix(s)
	if s == "" {
		return 0
	}
	n := new(big.Int)
	n.SetString(s, 16)
	return n.Uint64()
}

func blockNumberHex(block uint64) string {
	return "0x" + new(big.Int).SetUint64(block).Text(16)
}

func indexHex(index uint64) string {
	return "0x" + new(big.Int).SetUint64(index).Text(16)
}
