// Package anchorsink periodically anchors the WORM ledger's Merkle root
// to an external chain so a tamper that also rewrites the local ledger
// file still leaves a detectable trail off-host. It is entirely
// optional: the orchestrator's decisions never depend on it.
package anchorsink

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// anchorABI is the minimal interface the anchor contract must expose:
// one method taking the 32-byte Merkle root and an opaque sequence
// marker, emitting an event a later auditor can look up by root.
const anchorABI = `[{"inputs":[{"internalType":"bytes32","name":"root","type":"bytes32"},{"internalType":"uint64","name":"sequence","type":"uint64"}],"name":"anchorRoot","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// EthereumAnchor submits the ledger's Merkle root to a fixed contract
// address on an EVM chain, one write per call to Anchor.
type EthereumAnchor struct {
	client          *ethclient.Client
	chainID         *big.Int
	contractAddress common.Address
	privateKey      *ecdsa.PrivateKey
	contractABI     abi.ABI
	gasLimit        uint64
}

// NewEthereumAnchor dials rpcURL and prepares to sign transactions with
// privateKeyHex against the anchor contract at contractAddressHex.
func NewEthereumAnchor(ctx context.Context, rpcURL string, chainID int64, contractAddressHex, privateKeyHex string) (*EthereumAnchor, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("anchorsink: dialing %s: %w", rpcURL, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(anchorABI))
	if err != nil {
		return nil, fmt.Errorf("anchorsink: parsing anchor ABI: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("anchorsink: parsing private key: %w", err)
	}

	return &EthereumAnchor{
		client:          client,
		chainID:         big.NewInt(chainID),
		contractAddress: common.HexToAddress(contractAddressHex),
		privateKey:      privateKey,
		contractABI:     parsedABI,
		gasLimit:        100_000,
	}, nil
}

// Receipt is what the caller needs to later verify the anchor
// transaction landed and to cross-reference it against the ledger
// sequence it anchored.
type Receipt struct {
	TransactionHash string
	BlockNumber     uint64
	Success         bool
}

// Anchor submits merkleRootHex (64 hex chars, no 0x prefix) tagged with
// ledgerSequence, waits for one confirmation, and returns its receipt.
func (a *EthereumAnchor) Anchor(ctx context.Context, merkleRootHex string, ledgerSequence uint64) (Receipt, error) {
	rootBytes, err := hexTo32(merkleRootHex)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: decoding merkle root: %w", err)
	}

	callData, err := a.contractABI.Pack("anchorRoot", rootBytes, ledgerSequence)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: packing call data: %w", err)
	}

	publicKeyECDSA := a.privateKey.Public().(*ecdsa.PublicKey)
	fromAddress := crypto.PubkeyToAddress(*publicKeyECDSA)

	nonce, err := a.client.PendingNonceAt(ctx, fromAddress)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: fetching nonce: %w", err)
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: fetching gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, a.contractAddress, big.NewInt(0), a.gasLimit, gasPrice, callData)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(a.chainID), a.privateKey)
	if err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: signing transaction: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: sending transaction: %w", err)
	}

	receipt, err := a.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return Receipt{}, fmt.Errorf("anchorsink: waiting for confirmation: %w", err)
	}

	return Receipt{
		TransactionHash: signedTx.Hash().Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		Success:         receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}

func (a *EthereumAnchor) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := a.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func hexTo32(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return out, fmt.Errorf("expected 64 hex chars, got %d", len(s))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded)
	return out, nil
}
